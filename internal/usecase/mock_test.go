//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nyx-chat/internal/domain/model"
	"nyx-chat/internal/domain/ports/adapter"
	"nyx-chat/internal/domain/ports/repository"
	"nyx-chat/internal/infra/logging"
	"nyx-chat/internal/usecase"
)

// -----------------------------
// Utilities: tiny helpers
// -----------------------------

const sessionsKey = "nyx_ai_sessions"

// testClock hands out strictly increasing millisecond timestamps.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func newTestStore(t *testing.T, slot repository.SlotStore) *usecase.SessionStore {
	t.Helper()
	clk := newTestClock()
	return usecase.NewSessionStore(slot, sessionsKey, logging.Nop(), usecase.WithClock(clk.Now))
}

func userMsg(text string) model.Message {
	return model.NewMessage(model.RoleUser, text, time.Now())
}

func sameSession(a, b model.ChatSession) bool {
	if a.ID != b.ID || a.Title != b.Title || !a.UpdatedAt.Equal(b.UpdatedAt) || len(a.Messages) != len(b.Messages) {
		return false
	}
	for i := range a.Messages {
		x, y := a.Messages[i], b.Messages[i]
		if x.ID != y.ID || x.Role != y.Role || x.Content != y.Content || !x.Timestamp.Equal(y.Timestamp) {
			return false
		}
	}
	return true
}

// -----------------------------
// memSlot: in-memory SlotStore
// -----------------------------

type memSlot struct {
	mu       sync.Mutex
	data     map[string][]byte
	writes   [][]byte
	loadErr  error
	storeErr error
}

func newMemSlot() *memSlot { return &memSlot{data: map[string][]byte{}} }

var _ repository.SlotStore = (*memSlot)(nil)

func (m *memSlot) Load(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	b, ok := m.data[key]
	if !ok {
		return nil, repository.ErrSlotEmpty
	}
	return append([]byte(nil), b...), nil
}

func (m *memSlot) Store(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storeErr != nil {
		return m.storeErr
	}
	cp := append([]byte(nil), value...)
	m.data[key] = cp
	m.writes = append(m.writes, cp)
	return nil
}

func (m *memSlot) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memSlot) Close() error { return nil }

func (m *memSlot) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.writes)
}

func (m *memSlot) stored(t *testing.T) model.Sessions {
	t.Helper()
	m.mu.Lock()
	b := m.data[sessionsKey]
	m.mu.Unlock()
	s, err := model.ParseSessions(b)
	if err != nil {
		t.Fatalf("stored slot is not valid json: %v", err)
	}
	return s
}

// -----------------------------
// fakeAI: scripted TextGenerator
// -----------------------------

type generateCall struct {
	Prompt  string
	History []adapter.Turn
}

type fakeAI struct {
	mu    sync.Mutex
	calls []generateCall
	reply string
	err   error
	// gate, when set, blocks Generate until it is closed or ctx is done.
	gate chan struct{}
}

var _ adapter.TextGenerator = (*fakeAI)(nil)

func (f *fakeAI) Generate(ctx context.Context, prompt string, history []adapter.Turn) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, generateCall{Prompt: prompt, History: append([]adapter.Turn(nil), history...)})
	gate, reply, err := f.gate, f.reply, f.err
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return reply, err
}

func (f *fakeAI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeAI) lastCall() generateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

// -----------------------------
// fakeIdentity: controllable IdentityProvider
// -----------------------------

type fakeIdentity struct {
	mu          sync.Mutex
	listeners   map[int]func(*adapter.ProviderUser)
	nextID      int
	subscribes  int
	reportOnSub bool
	current     *adapter.ProviderUser

	signInUser *adapter.ProviderUser
	signInErr  error
	popupErr   error
	signOutErr error
	signOuts   int
}

var _ adapter.IdentityProvider = (*fakeIdentity)(nil)

func newFakeIdentity(reportOnSub bool) *fakeIdentity {
	return &fakeIdentity{listeners: map[int]func(*adapter.ProviderUser){}, reportOnSub: reportOnSub}
}

func (f *fakeIdentity) Subscribe(fn func(*adapter.ProviderUser)) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subscribes++
	f.listeners[id] = fn
	report, cur := f.reportOnSub, f.current
	f.mu.Unlock()

	if report {
		fn(cur)
	}
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

func (f *fakeIdentity) emit(pu *adapter.ProviderUser) {
	f.mu.Lock()
	f.current = pu
	fns := make([]func(*adapter.ProviderUser), 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(pu)
	}
}

func (f *fakeIdentity) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

func (f *fakeIdentity) SignInWithPassword(ctx context.Context, email, password string) (*adapter.ProviderUser, error) {
	return f.signInUser, f.signInErr
}

func (f *fakeIdentity) SignUpWithPassword(ctx context.Context, email, password string) (*adapter.ProviderUser, error) {
	return f.signInUser, f.signInErr
}

func (f *fakeIdentity) SignInWithPopup(ctx context.Context) (*adapter.ProviderUser, error) {
	if f.popupErr != nil {
		return nil, f.popupErr
	}
	return f.signInUser, nil
}

func (f *fakeIdentity) SignOut(ctx context.Context) error {
	f.mu.Lock()
	f.signOuts++
	f.mu.Unlock()
	return f.signOutErr
}

var errBoom = errors.New("boom")
