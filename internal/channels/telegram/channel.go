// Package telegram is the bot's chat surface: inline keyboard menus, the
// bulk token-add conversation, and outbound delivery. It is a thin layer
// over the monitoring core — commands come in, registry and supervisor
// calls go out, replies come back through the same bot.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mymmrac/telego"

	"github.com/defizo/silentwatch/internal/ceremony"
	"github.com/defizo/silentwatch/internal/monitor"
	"github.com/defizo/silentwatch/internal/registry"
)

// statusClient is the slice of the ceremony API the on-demand actions need.
type statusClient interface {
	Ping(ctx context.Context, token string) (*ceremony.PingResult, error)
	Position(ctx context.Context, token string) (*ceremony.PositionResult, error)
}

// Channel owns the Telegram update loop and the per-user conversation
// state for the add-tokens prompt.
type Channel struct {
	bot      *telego.Bot
	sender   *Sender
	tokens   *registry.Store
	client   statusClient
	monitors *monitor.Supervisor

	mu       sync.Mutex
	awaiting map[int64]bool // users currently in the add-tokens prompt
}

// New creates the Telegram channel.
func New(bot *telego.Bot, sender *Sender, tokens *registry.Store, client statusClient, monitors *monitor.Supervisor) *Channel {
	return &Channel{
		bot:      bot,
		sender:   sender,
		tokens:   tokens,
		client:   client,
		monitors: monitors,
		awaiting: make(map[int64]bool),
	}
}

// Run consumes updates via long polling until ctx is cancelled.
func (c *Channel) Run(ctx context.Context) error {
	updates, err := c.bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}
	slog.Info("telegram channel running", "bot", c.bot.Username())

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			c.handleUpdate(ctx, update)
		}
	}
}

func (c *Channel) handleUpdate(ctx context.Context, update telego.Update) {
	switch {
	case update.CallbackQuery != nil:
		c.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		c.handleMessage(ctx, update.Message)
	}
}

// setAwaiting marks or clears the user's pending add-tokens step.
func (c *Channel) setAwaiting(userID int64, v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v {
		c.awaiting[userID] = true
	} else {
		delete(c.awaiting, userID)
	}
}

func (c *Channel) isAwaiting(userID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.awaiting[userID]
}
