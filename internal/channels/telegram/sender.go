package telegram

import (
	"context"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"golang.org/x/time/rate"

	"github.com/defizo/silentwatch/internal/notify"
)

// Telegram's global ceiling is roughly 30 messages per second; the limiter
// stays under it with a little headroom for bursts.
const (
	sendRate  = 25
	sendBurst = 5
)

// Sender delivers messages through the Telegram Bot API. It implements
// notify.Sink for the monitor loops and is also used for the bot's own
// plain replies. No retries: a rejection is reported once as a
// DeliveryError and the caller decides.
type Sender struct {
	bot     *telego.Bot
	limiter *rate.Limiter
}

// NewSender creates a rate-limited sender over bot.
func NewSender(bot *telego.Bot) *Sender {
	return &Sender{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(sendRate), sendBurst),
	}
}

// Send delivers text to the chat, waiting on the rate limiter first.
func (s *Sender) Send(ctx context.Context, chatID int64, text string, opts ...notify.Option) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	params := tu.Message(tu.ID(chatID), text)
	if notify.Build(opts...).Markdown {
		params.ParseMode = telego.ModeMarkdown
	}
	if _, err := s.bot.SendMessage(ctx, params); err != nil {
		return &notify.DeliveryError{Err: err}
	}
	return nil
}
