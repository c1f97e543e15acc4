package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/defizo/silentwatch/internal/ceremony"
	"github.com/defizo/silentwatch/internal/monitor"
	"github.com/defizo/silentwatch/internal/registry"
)

func (c *Channel) handleMessage(ctx context.Context, msg *telego.Message) {
	if msg.From == nil {
		return
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID
	text := msg.Text

	cmd := strings.ToLower(strings.SplitN(strings.TrimSpace(text), " ", 2)[0])
	cmd = strings.SplitN(cmd, "@", 2)[0]

	switch cmd {
	case "/start":
		c.setAwaiting(userID, false)
		c.reply(ctx, chatID, mainMenuText, mainMenu())
	case "/cancel":
		c.setAwaiting(userID, false)
		c.reply(ctx, chatID, "❌ Operation cancelled", nil)
	default:
		if c.isAwaiting(userID) {
			c.processTokens(ctx, userID, chatID, text)
		}
	}
}

// processTokens handles the one-token-per-line submission that follows the
// add-tokens prompt.
func (c *Channel) processTokens(ctx context.Context, userID, chatID int64, text string) {
	c.setAwaiting(userID, false)

	added, total, err := c.tokens.Add(userID, strings.Split(text, "\n"))
	if errors.Is(err, registry.ErrNoValidTokens) {
		c.reply(ctx, chatID, "❌ No valid tokens found.", nil)
		return
	}
	c.reply(ctx, chatID, fmt.Sprintf("✅ Added %d tokens\nTotal: %d", added, total), tokenMenu())
}

func (c *Channel) handleCallback(ctx context.Context, query *telego.CallbackQuery) {
	// Ack first so the button stops spinning even if the action is slow.
	if err := c.bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{CallbackQueryID: query.ID}); err != nil {
		slog.Debug("answer callback failed", "error", err)
	}

	userID := query.From.ID
	chatID := userID
	messageID := 0
	if query.Message != nil {
		chatID = query.Message.GetChat().ID
		messageID = query.Message.GetMessageID()
	}

	edit := func(text string, kb *telego.InlineKeyboardMarkup) {
		c.edit(ctx, chatID, messageID, text, kb)
	}

	data := query.Data
	switch data {
	case cbTokens:
		edit("🔑 Token Management", tokenMenu())

	case cbAddTokens:
		c.setAwaiting(userID, true)
		edit(addTokensPrompt, nil)

	case cbRemoveTokens:
		tokens := c.tokens.List(userID)
		if len(tokens) == 0 {
			edit("❌ No tokens to remove", nil)
			return
		}
		edit("Select token to remove:", removeMenu(tokens))

	case cbTokenInfo:
		tokens := c.tokens.List(userID)
		if len(tokens) == 0 {
			edit("❌ No tokens to view", nil)
			return
		}
		edit("Select token to view:", infoMenu(tokens))

	case cbBackToMain:
		edit(mainMenuText, mainMenu())

	case cbPosition:
		c.sendPositions(ctx, userID)

	case cbStartMonitoring:
		if _, err := c.monitors.Start(userID); errors.Is(err, monitor.ErrAlreadyRunning) {
			edit("🔔 Monitoring already running", nil)
			return
		}
		edit("🚀 Started continuous monitoring for all tokens", nil)

	case cbStopMonitoring:
		if err := c.monitors.Stop(userID); errors.Is(err, monitor.ErrNotRunning) {
			edit("❌ No active monitoring", nil)
			return
		}
		edit("🛑 Stopped monitoring", nil)

	case cbAbout:
		edit(aboutText, backTo(cbBackToMain))

	default:
		c.handleTokenAction(ctx, userID, data, edit)
	}
}

// handleTokenAction resolves remove_<i> / info_<i> callbacks. The index is
// checked against the current sequence; stale buttons from an earlier menu
// fall through to "invalid selection".
func (c *Channel) handleTokenAction(ctx context.Context, userID int64, data string, edit func(string, *telego.InlineKeyboardMarkup)) {
	switch {
	case strings.HasPrefix(data, removePrefix):
		index, err := parseIndex(data, removePrefix)
		if err != nil {
			return
		}
		removed, err := c.tokens.Remove(userID, index)
		if errors.Is(err, registry.ErrInvalidSelection) {
			edit("❌ Invalid token selection", nil)
			return
		}
		edit(fmt.Sprintf("✅ Removed token: %s", ceremony.Redact(removed)), nil)

	case strings.HasPrefix(data, infoPrefix):
		index, err := parseIndex(data, infoPrefix)
		if err != nil {
			return
		}
		token, err := c.tokens.Get(userID, index)
		if errors.Is(err, registry.ErrInvalidSelection) {
			edit("❌ Invalid token selection", nil)
			return
		}
		c.showTokenInfo(ctx, token, edit)
	}
}

// showTokenInfo runs a one-shot ping + position for a single token. Failed
// calls show as "Error"; nothing here is fatal.
func (c *Channel) showTokenInfo(ctx context.Context, token string, edit func(string, *telego.InlineKeyboardMarkup)) {
	ping, _ := c.client.Ping(ctx, token)
	pos, _ := c.client.Position(ctx, token)

	text := strings.Join([]string{
		fmt.Sprintf("🔐 Token: %s", ceremony.Redact(token)),
		fmt.Sprintf("🟢 Status: %s", ceremony.StatusText(ping)),
		fmt.Sprintf("📌 Position: %s", ceremony.PositionText(pos)),
	}, "\n")

	edit(text, backTo(cbTokenInfo))
}

// sendPositions sweeps the user's tokens and reports each queue position in
// one message, delivered through the sink like the monitor loops do.
func (c *Channel) sendPositions(ctx context.Context, userID int64) {
	tokens := c.tokens.List(userID)
	if len(tokens) == 0 {
		c.send(ctx, userID, "⚠️ No tokens registered")
		return
	}

	lines := make([]string, 0, len(tokens)+1)
	lines = append(lines, "📊 Current Positions:")
	for _, token := range tokens {
		pos, _ := c.client.Position(ctx, token)
		lines = append(lines, fmt.Sprintf("• %s: %s", ceremony.Redact(token), ceremony.PositionText(pos)))
	}
	c.send(ctx, userID, strings.Join(lines, "\n"))
}

// --- small helpers ---

func parseIndex(data, prefix string) (int, error) {
	return strconv.Atoi(strings.TrimPrefix(data, prefix))
}

func (c *Channel) reply(ctx context.Context, chatID int64, text string, kb *telego.InlineKeyboardMarkup) {
	params := tu.Message(tu.ID(chatID), text)
	if kb != nil {
		params.ReplyMarkup = kb
	}
	if _, err := c.bot.SendMessage(ctx, params); err != nil {
		slog.Warn("telegram reply failed", "chat", chatID, "error", err)
	}
}

func (c *Channel) edit(ctx context.Context, chatID int64, messageID int, text string, kb *telego.InlineKeyboardMarkup) {
	if messageID == 0 {
		c.reply(ctx, chatID, text, kb)
		return
	}
	params := &telego.EditMessageTextParams{
		ChatID:    tu.ID(chatID),
		MessageID: messageID,
		Text:      text,
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}
	if _, err := c.bot.EditMessageText(ctx, params); err != nil {
		slog.Warn("telegram edit failed", "chat", chatID, "error", err)
	}
}

func (c *Channel) send(ctx context.Context, chatID int64, text string) {
	if err := c.sender.Send(ctx, chatID, text); err != nil {
		slog.Warn("telegram send failed", "chat", chatID, "error", err)
	}
}
