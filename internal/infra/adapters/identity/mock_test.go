//go:build !integration

package identity_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"nyx-chat/internal/domain/ports/adapter"
	"nyx-chat/internal/domain/ports/repository"
	"nyx-chat/internal/infra/adapters/identity"
)

type memSlot struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemSlot() *memSlot { return &memSlot{data: map[string][]byte{}} }

var _ repository.SlotStore = (*memSlot)(nil)

func (m *memSlot) Load(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return nil, repository.ErrSlotEmpty
	}
	return append([]byte(nil), b...), nil
}

func (m *memSlot) Store(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memSlot) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memSlot) Close() error { return nil }

func (m *memSlot) get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	return string(b), ok
}

// idToken builds an ID token with the given claims. Signatures are not checked by the client.
func idToken(t *testing.T, uid, email, name string) string {
	t.Helper()
	claims := identity.IDTokenClaims{
		UserID: uid,
		Email:  email,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// recorder collects auth-state notifications.
type recorder struct {
	ch chan *adapter.ProviderUser
}

func newRecorder() *recorder { return &recorder{ch: make(chan *adapter.ProviderUser, 16)} }

func (r *recorder) fn(u *adapter.ProviderUser) { r.ch <- u }

func (r *recorder) next(t *testing.T) *adapter.ProviderUser {
	t.Helper()
	select {
	case u := <-r.ch:
		return u
	case <-time.After(3 * time.Second):
		t.Fatal("no auth-state notification")
		return nil
	}
}
