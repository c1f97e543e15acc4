// Package notify defines how status messages reach a user's chat.
package notify

import (
	"context"
	"fmt"
)

// Options carries per-message delivery settings.
type Options struct {
	Markdown bool
}

// Option mutates Options.
type Option func(*Options)

// WithMarkdown requests Markdown formatting for the message.
func WithMarkdown() Option {
	return func(o *Options) { o.Markdown = true }
}

// Build folds opts into an Options value.
func Build(opts ...Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Sink delivers a message to a user. Implementations must not retry on
// their own; a delivery failure is reported once and the caller decides.
type Sink interface {
	Send(ctx context.Context, chatID int64, text string, opts ...Option) error
}

// DeliveryError wraps a rejection from the underlying chat channel.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver message: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
