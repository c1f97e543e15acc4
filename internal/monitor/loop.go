package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/defizo/silentwatch/internal/ceremony"
	"github.com/defizo/silentwatch/internal/notify"
)

// watch drives one token's polling loop and classifies how it ended.
// Cancellation is silent; anything else is a crash the user must hear
// about, and it must never take sibling loops down with it.
func (s *Supervisor) watch(ctx context.Context, sess *session, userID int64, token string) {
	s.rec.HandleStarted()
	defer s.rec.HandleExited()
	defer sess.live.Add(-1)

	err := s.poll(ctx, userID, token)
	if errors.Is(err, context.Canceled) {
		slog.Debug("monitor loop cancelled", "user", userID, "session", sess.id, "token", ceremony.Redact(token))
		return
	}

	slog.Error("monitor loop crashed", "user", userID, "session", sess.id, "token", ceremony.Redact(token), "error", err)
	msg := fmt.Sprintf("❌ Monitoring crashed for %s - restart required", ceremony.Redact(token))
	// The session context may already be gone; the crash notice still has
	// to go out, so it rides on a fresh context.
	if serr := s.sink.Send(context.Background(), userID, msg); serr != nil {
		slog.Warn("crash notification failed", "user", userID, "error", serr)
	}
}

// poll repeats the ping → position → notify cycle until the context is
// cancelled. There is no sleep between iterations: the timeout-free remote
// calls pace the loop by their own round-trip time. Remote failures show up
// as "Error" fields and keep the loop going; only a cancellation or an
// internal fault ends it.
func (s *Supervisor) poll(ctx context.Context, userID int64, token string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("monitor loop panic: %v", r)
		}
	}()

	for {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		ping, pingErr := s.client.Ping(ctx, token)
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		s.rec.RecordPoll("ping", pingErr == nil)

		// Position is attempted even when ping failed; the two results
		// are independent.
		pos, posErr := s.client.Position(ctx, token)
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		s.rec.RecordPoll("position", posErr == nil)

		text := "🔄 Status Update:\n" + StatusLine(token, ping, pos)
		if serr := s.sink.Send(ctx, userID, text, notify.WithMarkdown()); serr != nil {
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			// A missed notification is not a reason to stop monitoring.
			slog.Warn("status update delivery failed", "user", userID, "token", ceremony.Redact(token), "error", serr)
			s.rec.RecordNotify(false)
			continue
		}
		s.rec.RecordNotify(true)
	}
}

// StatusLine renders one token's status in the bullet form the bot uses
// everywhere tokens are listed.
func StatusLine(token string, ping *ceremony.PingResult, pos *ceremony.PositionResult) string {
	return fmt.Sprintf("• *%s*:\n  Status: `%s`\n  Position: `%s`",
		ceremony.Redact(token), ceremony.StatusText(ping), ceremony.PositionText(pos))
}
