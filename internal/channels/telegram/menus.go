package telegram

import (
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/defizo/silentwatch/internal/ceremony"
)

// Callback data for the inline keyboard surface.
const (
	cbTokens          = "tokens"
	cbAddTokens       = "add_tokens"
	cbRemoveTokens    = "remove_tokens"
	cbTokenInfo       = "token_info"
	cbBackToMain      = "back_to_main"
	cbPosition        = "position"
	cbStartMonitoring = "start_monitoring"
	cbStopMonitoring  = "stop_monitoring"
	cbAbout           = "about"

	removePrefix = "remove_"
	infoPrefix   = "info_"
)

const (
	mainMenuText = "🔍 Silent Protocol Monitoring Bot\nChoose an option:"

	aboutText = "🤖 Silent Protocol Monitor Bot\n\n" +
		"Track your ceremony participation status\n" +
		"Developed by DEFIZO"

	addTokensPrompt = "📥 Send tokens (one per line):\nExample:\ntoken1\ntoken2\ntoken3"
)

func mainMenu() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("Tokens").WithCallbackData(cbTokens),
			tu.InlineKeyboardButton("Position").WithCallbackData(cbPosition),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("Start Monitoring").WithCallbackData(cbStartMonitoring),
			tu.InlineKeyboardButton("Stop Monitoring").WithCallbackData(cbStopMonitoring),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("About").WithCallbackData(cbAbout),
		),
	)
}

func tokenMenu() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("Add Tokens").WithCallbackData(cbAddTokens),
			tu.InlineKeyboardButton("Remove Tokens").WithCallbackData(cbRemoveTokens),
			tu.InlineKeyboardButton("Token Info").WithCallbackData(cbTokenInfo),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("Main Menu").WithCallbackData(cbBackToMain),
		),
	)
}

// selectionMenu lists one button per token, labelled with its redacted
// form, carrying "<prefix><index>" as callback data. The index is relative
// to the sequence shown right now — a removal invalidates higher indices,
// which is why every press re-checks against the registry.
func selectionMenu(action, prefix string, tokens []string) *telego.InlineKeyboardMarkup {
	rows := make([][]telego.InlineKeyboardButton, 0, len(tokens)+1)
	for i, token := range tokens {
		label := fmt.Sprintf("%s %s", action, ceremony.Redact(token))
		data := fmt.Sprintf("%s%d", prefix, i)
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(label).WithCallbackData(data),
		))
	}
	rows = append(rows, tu.InlineKeyboardRow(
		tu.InlineKeyboardButton("Back").WithCallbackData(cbTokens),
	))
	return tu.InlineKeyboard(rows...)
}

func removeMenu(tokens []string) *telego.InlineKeyboardMarkup {
	return selectionMenu("Remove", removePrefix, tokens)
}

func infoMenu(tokens []string) *telego.InlineKeyboardMarkup {
	return selectionMenu("Info", infoPrefix, tokens)
}

func backTo(target string) *telego.InlineKeyboardMarkup {
	label := "Back"
	if target == cbBackToMain {
		label = "Main Menu"
	}
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(label).WithCallbackData(target),
		),
	)
}
