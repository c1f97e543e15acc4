// Package monitor runs the per-token background polling loops.
//
// The Supervisor owns every monitoring session. A session belongs to one
// user and holds one handle per token that existed when the session
// started; nothing else may create or cancel a handle. Starting is
// all-or-nothing — to pick up tokens added later, stop and start again.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/defizo/silentwatch/internal/ceremony"
	"github.com/defizo/silentwatch/internal/notify"
)

var (
	// ErrAlreadyRunning means the user already has an active session.
	// Callers treat it as a no-op, not a failure.
	ErrAlreadyRunning = errors.New("monitoring already running")

	// ErrNotRunning means there is no session to stop.
	ErrNotRunning = errors.New("no active monitoring")
)

// StatusClient is the slice of the ceremony API the loops need.
type StatusClient interface {
	Ping(ctx context.Context, token string) (*ceremony.PingResult, error)
	Position(ctx context.Context, token string) (*ceremony.PositionResult, error)
}

// TokenSource yields the token snapshot a session starts from.
type TokenSource interface {
	List(userID int64) []string
}

// Recorder receives lifecycle and poll events for metrics. All methods must
// be safe for concurrent use.
type Recorder interface {
	RecordPoll(call string, ok bool)
	RecordNotify(ok bool)
	SessionStarted()
	SessionStopped()
	HandleStarted()
	HandleExited()
}

type nopRecorder struct{}

func (nopRecorder) RecordPoll(string, bool) {}
func (nopRecorder) RecordNotify(bool)       {}
func (nopRecorder) SessionStarted()         {}
func (nopRecorder) SessionStopped()         {}
func (nopRecorder) HandleStarted()          {}
func (nopRecorder) HandleExited()           {}

// session is one user's set of live handles.
type session struct {
	id     string
	cancel context.CancelFunc
	live   atomic.Int64
}

// Supervisor tracks monitoring sessions across all users.
type Supervisor struct {
	client StatusClient
	tokens TokenSource
	sink   notify.Sink
	rec    Recorder

	mu       sync.Mutex
	sessions map[int64]*session
}

// New creates a supervisor. rec may be nil.
func New(client StatusClient, tokens TokenSource, sink notify.Sink, rec Recorder) *Supervisor {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Supervisor{
		client:   client,
		tokens:   tokens,
		sink:     sink,
		rec:      rec,
		sessions: make(map[int64]*session),
	}
}

// Start begins a monitoring session for the user, spawning one polling loop
// per currently registered token, and returns how many loops it spawned.
// A user with zero tokens still gets a valid (empty) session. Returns
// ErrAlreadyRunning when a session already exists.
func (s *Supervisor) Start(userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[userID]; ok {
		return 0, ErrAlreadyRunning
	}

	// The registry copies under its own lock, so this is a consistent
	// snapshot even while commands mutate concurrently.
	snapshot := s.tokens.List(userID)

	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{id: uuid.NewString(), cancel: cancel}
	sess.live.Store(int64(len(snapshot)))
	s.sessions[userID] = sess

	for _, token := range snapshot {
		go s.watch(ctx, sess, userID, token)
	}

	s.rec.SessionStarted()
	slog.Info("monitoring started", "user", userID, "session", sess.id, "tokens", len(snapshot))
	return len(snapshot), nil
}

// Stop cancels every handle of the user's session and discards it. It does
// not wait for loops to unwind: each one observes the cancellation at its
// next suspension point, which with timeout-free remote calls can be a
// while. Returns ErrNotRunning when the user has no session.
func (s *Supervisor) Stop(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return ErrNotRunning
	}
	sess.cancel()
	delete(s.sessions, userID)

	s.rec.SessionStopped()
	slog.Info("monitoring stopped", "user", userID, "session", sess.id)
	return nil
}

// Shutdown cancels every session of every user. Used on process exit.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for userID, sess := range s.sessions {
		sess.cancel()
		delete(s.sessions, userID)
		s.rec.SessionStopped()
		slog.Debug("monitoring cancelled on shutdown", "user", userID, "session", sess.id)
	}
}

// Running reports whether the user has an active session.
func (s *Supervisor) Running(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[userID]
	return ok
}

// ActiveHandles returns how many of the user's polling loops are still
// alive. Zero once the session is stopped, and it also drops when a loop
// crashes while its siblings keep running.
func (s *Supervisor) ActiveHandles(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return 0
	}
	return int(sess.live.Load())
}
