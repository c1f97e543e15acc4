package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/defizo/silentwatch/internal/ceremony"
	"github.com/defizo/silentwatch/internal/notify"
	"github.com/defizo/silentwatch/internal/registry"
)

const user = int64(7)

// fakeClient scripts ping/position responses per token. A small sleep per
// call keeps the delay-free polling loop from spinning hot in tests.
type fakeClient struct {
	pingFn func(token string) (*ceremony.PingResult, error)
	posFn  func(token string) (*ceremony.PositionResult, error)
}

func (f *fakeClient) Ping(ctx context.Context, token string) (*ceremony.PingResult, error) {
	time.Sleep(time.Millisecond)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.pingFn != nil {
		return f.pingFn(token)
	}
	return &ceremony.PingResult{Status: "waiting"}, nil
}

func (f *fakeClient) Position(ctx context.Context, token string) (*ceremony.PositionResult, error) {
	time.Sleep(time.Millisecond)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.posFn != nil {
		return f.posFn(token)
	}
	return &ceremony.PositionResult{Behind: "3"}, nil
}

type sentMsg struct {
	chatID int64
	text   string
}

type recordingSink struct {
	mu       sync.Mutex
	messages []sentMsg
	failNext int // number of upcoming sends to reject
}

func (r *recordingSink) Send(ctx context.Context, chatID int64, text string, opts ...notify.Option) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext > 0 {
		r.failNext--
		return &notify.DeliveryError{Err: errors.New("channel rejected message")}
	}
	r.messages = append(r.messages, sentMsg{chatID: chatID, text: text})
	return nil
}

func (r *recordingSink) count(substr string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.messages {
		if strings.Contains(m.text, substr) {
			n++
		}
	}
	return n
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func newTestSupervisor(tokens []string) (*Supervisor, *registry.Store, *recordingSink) {
	store := registry.New()
	if len(tokens) > 0 {
		store.Add(user, tokens)
	}
	sink := &recordingSink{}
	sup := New(&fakeClient{}, store, sink, nil)
	return sup, store, sink
}

func TestStartIsIdempotent(t *testing.T) {
	sup, _, _ := newTestSupervisor([]string{"token-aaa111", "token-bbb222"})
	defer sup.Shutdown()

	n, err := sup.Start(user)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Start spawned %d handles, want 2", n)
	}

	if _, err := sup.Start(user); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start err = %v, want ErrAlreadyRunning", err)
	}
	if got := sup.ActiveHandles(user); got > 2 {
		t.Errorf("ActiveHandles = %d after double start, want <= 2", got)
	}
}

func TestStopClearsHandlesAndIsIdempotent(t *testing.T) {
	sup, _, _ := newTestSupervisor([]string{"token-aaa111", "token-bbb222", "token-ccc333"})

	if _, err := sup.Start(user); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := sup.Stop(user); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if got := sup.ActiveHandles(user); got != 0 {
		t.Errorf("ActiveHandles = %d after Stop, want 0", got)
	}
	if sup.Running(user) {
		t.Error("Running = true after Stop")
	}
	if err := sup.Stop(user); !errors.Is(err, ErrNotRunning) {
		t.Errorf("second Stop err = %v, want ErrNotRunning", err)
	}
}

func TestStartWithZeroTokens(t *testing.T) {
	sup, _, _ := newTestSupervisor(nil)

	// A user with no tokens still gets a valid, empty session.
	n, err := sup.Start(user)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Start spawned %d handles, want 0", n)
	}
	if !sup.Running(user) {
		t.Error("Running = false for empty session")
	}
	if err := sup.Stop(user); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestSessionSnapshotsRegistryAtStart(t *testing.T) {
	sup, store, _ := newTestSupervisor([]string{"token-aaa111"})
	defer sup.Shutdown()

	if _, err := sup.Start(user); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	store.Add(user, []string{"token-added-later"})

	if got := sup.ActiveHandles(user); got != 1 {
		t.Errorf("ActiveHandles = %d after late add, want 1", got)
	}
}

func TestFailingRemoteProducesErrorStatusForever(t *testing.T) {
	store := registry.New()
	store.Add(user, []string{"token-aaa111"})
	sink := &recordingSink{}
	client := &fakeClient{
		pingFn: func(string) (*ceremony.PingResult, error) {
			return nil, errors.New("connection refused")
		},
		posFn: func(string) (*ceremony.PositionResult, error) {
			return nil, errors.New("connection refused")
		},
	}
	sup := New(client, store, sink, nil)
	defer sup.Shutdown()

	if _, err := sup.Start(user); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// The loop must keep reporting Error/Error without terminating.
	waitFor(t, 2*time.Second, func() bool {
		return sink.count("Status: `Error`") >= 3
	})
	if sink.count("Position: `Error`") < 3 {
		t.Errorf("Position Error count = %d, want >= 3", sink.count("Position: `Error`"))
	}
	if !sup.Running(user) {
		t.Error("loop terminated on remote failure")
	}
	if got := sup.ActiveHandles(user); got != 1 {
		t.Errorf("ActiveHandles = %d, want 1", got)
	}
}

func TestCrashIsolatedToOneLoop(t *testing.T) {
	const (
		goodToken = "token-good-111111"
		badToken  = "token-bad-222222"
	)
	store := registry.New()
	store.Add(user, []string{goodToken, badToken})
	sink := &recordingSink{}
	client := &fakeClient{
		pingFn: func(token string) (*ceremony.PingResult, error) {
			if token == badToken {
				panic("unexpected internal fault")
			}
			return &ceremony.PingResult{Status: "waiting"}, nil
		},
	}
	sup := New(client, store, sink, nil)
	defer sup.Shutdown()

	if _, err := sup.Start(user); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	crashNotice := fmt.Sprintf("Monitoring crashed for %s", ceremony.Redact(badToken))
	waitFor(t, 2*time.Second, func() bool {
		return sink.count(crashNotice) == 1
	})
	waitFor(t, 2*time.Second, func() bool {
		return sup.ActiveHandles(user) == 1
	})

	// The sibling loop keeps producing updates after the crash.
	goodUpdates := sink.count(ceremony.Redact(goodToken))
	waitFor(t, 2*time.Second, func() bool {
		return sink.count(ceremony.Redact(goodToken)) > goodUpdates
	})

	// Still exactly one crash notification.
	if got := sink.count(crashNotice); got != 1 {
		t.Errorf("crash notifications = %d, want exactly 1", got)
	}
	if !sup.Running(user) {
		t.Error("session discarded after a single-loop crash")
	}
}

func TestDeliveryFailureDoesNotStopLoop(t *testing.T) {
	store := registry.New()
	store.Add(user, []string{"token-aaa111"})
	sink := &recordingSink{failNext: 2}
	sup := New(&fakeClient{}, store, sink, nil)
	defer sup.Shutdown()

	if _, err := sup.Start(user); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		return sink.count("Status Update") >= 2
	})
	if got := sup.ActiveHandles(user); got != 1 {
		t.Errorf("ActiveHandles = %d after delivery failures, want 1", got)
	}
}

func TestShutdownCancelsAllSessions(t *testing.T) {
	sup, store, _ := newTestSupervisor([]string{"token-aaa111"})
	otherUser := int64(99)
	store.Add(otherUser, []string{"token-bbb222"})

	sup.Start(user)
	sup.Start(otherUser)
	sup.Shutdown()

	if sup.Running(user) || sup.Running(otherUser) {
		t.Error("sessions survive Shutdown")
	}
	if sup.ActiveHandles(user)+sup.ActiveHandles(otherUser) != 0 {
		t.Error("handles tracked after Shutdown")
	}
}

func TestFullScenario(t *testing.T) {
	sup, store, _ := newTestSupervisor(nil)
	defer sup.Shutdown()

	if _, _, err := store.Add(user, []string{"aaaaaaaaaa1111", "bbbbbbbbbb2222"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	got := store.List(user)
	if len(got) != 2 || got[0] != "aaaaaaaaaa1111" || got[1] != "bbbbbbbbbb2222" {
		t.Fatalf("List = %v", got)
	}

	if removed, err := store.Remove(user, 0); err != nil || removed != "aaaaaaaaaa1111" {
		t.Fatalf("Remove = (%q, %v)", removed, err)
	}
	if got := store.List(user); len(got) != 1 || got[0] != "bbbbbbbbbb2222" {
		t.Fatalf("List after remove = %v", got)
	}

	n, err := sup.Start(user)
	if err != nil || n != 1 {
		t.Fatalf("Start = (%d, %v), want (1, nil)", n, err)
	}
	if err := sup.Stop(user); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if got := sup.ActiveHandles(user); got != 0 {
		t.Errorf("ActiveHandles = %d, want 0", got)
	}
	if err := sup.Stop(user); !errors.Is(err, ErrNotRunning) {
		t.Errorf("second Stop err = %v, want ErrNotRunning", err)
	}
}

func TestStatusLine(t *testing.T) {
	line := StatusLine("aaaaaaaaaa1111", &ceremony.PingResult{Status: "waiting"}, &ceremony.PositionResult{Behind: "12"})
	want := "• *...aa1111*:\n  Status: `waiting`\n  Position: `12`"
	if line != want {
		t.Errorf("StatusLine = %q, want %q", line, want)
	}

	errLine := StatusLine("aaaaaaaaaa1111", nil, nil)
	if !strings.Contains(errLine, "Status: `Error`") || !strings.Contains(errLine, "Position: `Error`") {
		t.Errorf("StatusLine with absent results = %q", errLine)
	}
	if strings.Contains(errLine, "aaaaaaaaaa1111") {
		t.Error("StatusLine leaked the full token")
	}
}
