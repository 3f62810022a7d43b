// File: internal/usecase/session_store.go
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"nyx-chat/internal/domain"
	"nyx-chat/internal/domain/model"
	"nyx-chat/internal/domain/ports/repository"
	"nyx-chat/internal/infra/logging"
	"nyx-chat/internal/infra/metrics"
)

// StoreSnapshot is what subscribers receive after every change.
type StoreSnapshot struct {
	Sessions model.Sessions
	ActiveID string
}

// SessionStore owns the session collection and the active session id. Every mutation
// replaces the snapshot and rewrites the storage slot before the lock is released.
type SessionStore struct {
	slot repository.SlotStore
	key  string
	log  *zerolog.Logger

	now   func() time.Time
	newID func() string

	mu       sync.Mutex
	sessions model.Sessions
	activeID string

	subMu   sync.Mutex
	subs    map[int]func(StoreSnapshot)
	nextSub int
}

type SessionStoreOption func(*SessionStore)

// WithClock replaces time.Now (tests).
func WithClock(now func() time.Time) SessionStoreOption {
	return func(s *SessionStore) { s.now = now }
}

// WithIDGenerator replaces the session id source (tests).
func WithIDGenerator(fn func() string) SessionStoreOption {
	return func(s *SessionStore) { s.newID = fn }
}

func NewSessionStore(slot repository.SlotStore, key string, logger *zerolog.Logger, opts ...SessionStoreOption) *SessionStore {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &SessionStore{
		slot:  slot,
		key:   key,
		log:   logger,
		now:   time.Now,
		newID: uuid.NewString,
		subs:  make(map[int]func(StoreSnapshot)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Hydrate replaces the collection with the slot's content. A missing or unreadable slot
// yields an empty collection; the error is logged, never returned. Nothing is written back.
func (s *SessionStore) Hydrate(ctx context.Context) {
	defer logging.TraceDuration(s.log, "SessionStore.Hydrate")()

	loaded, result := s.load(ctx)

	s.mu.Lock()
	s.sessions = loaded
	s.activeID = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()

	metrics.IncHydration(result)
	s.log.Debug().Int("sessions", loaded.Len()).Str("result", result).Msg("sessions hydrated")
	s.notify(snap)
}

func (s *SessionStore) load(ctx context.Context) (model.Sessions, string) {
	raw, err := s.slot.Load(ctx, s.key)
	if errors.Is(err, repository.ErrSlotEmpty) || (err == nil && len(raw) == 0) {
		return model.Sessions{}, "empty"
	}
	if err != nil {
		s.log.Warn().Err(err).Str("key", s.key).Msg("session slot unreadable; starting empty")
		return model.Sessions{}, "reset"
	}
	parsed, err := model.ParseSessions(raw)
	if err != nil {
		s.log.Warn().Err(err).Str("key", s.key).Msg("session slot malformed; starting empty")
		return model.Sessions{}, "reset"
	}
	return parsed, "ok"
}

func (s *SessionStore) Snapshot() StoreSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *SessionStore) snapshotLocked() StoreSnapshot {
	return StoreSnapshot{Sessions: s.sessions, ActiveID: s.activeID}
}

func (s *SessionStore) Sessions() model.Sessions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions
}

func (s *SessionStore) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// ActiveSession returns the session the active id points at.
func (s *SessionStore) ActiveSession() (model.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.Find(s.activeID)
}

func (s *SessionStore) Find(id string) (model.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.Find(id)
}

// CreateSession starts a session from its first message, puts it at the front and
// makes it active.
func (s *SessionStore) CreateSession(ctx context.Context, first model.Message) (model.ChatSession, error) {
	s.mu.Lock()
	cs := model.NewChatSession(s.newID(), first, s.now())
	next, err := s.sessions.Prepend(cs)
	if err != nil {
		s.mu.Unlock()
		return model.ChatSession{}, err
	}
	s.sessions = next
	s.activeID = cs.ID
	s.persistLocked(ctx)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	metrics.IncSessionCreated()
	logging.With(logging.WithSessID(ctx, cs.ID), s.log).Debug().Msg("session created")
	s.notify(snap)
	return cs, nil
}

// AppendMessage adds msg to the session with the given id. Other sessions are shared
// with the previous snapshot unchanged. An unknown id returns domain.ErrSessionNotFound.
func (s *SessionStore) AppendMessage(ctx context.Context, sessionID string, msg model.Message) (model.ChatSession, error) {
	s.mu.Lock()
	next, updated, err := s.sessions.WithMessage(sessionID, msg, s.now())
	if err != nil {
		s.mu.Unlock()
		return model.ChatSession{}, err
	}
	s.sessions = next
	s.persistLocked(ctx)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return updated, nil
}

// Select makes an existing session active.
func (s *SessionStore) Select(id string) error {
	s.mu.Lock()
	if !s.sessions.Contains(id) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	s.activeID = id
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// NewChat clears the active id; the next send creates a session.
func (s *SessionStore) NewChat() {
	s.mu.Lock()
	s.activeID = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// DeleteSession removes a session with its messages.
func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	next, ok := s.sessions.Without(id)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	s.sessions = next
	if s.activeID == id {
		s.activeID = ""
	}
	s.persistLocked(ctx)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	logging.With(logging.WithSessID(ctx, id), s.log).Debug().Msg("session deleted")
	s.notify(snap)
	return nil
}

// Subscribe registers fn for change notifications. fn runs on the mutating goroutine
// after the store lock is released.
func (s *SessionStore) Subscribe(fn func(StoreSnapshot)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *SessionStore) notify(snap StoreSnapshot) {
	s.subMu.Lock()
	fns := make([]func(StoreSnapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// persistLocked writes the whole collection. Failures are logged; the in-memory
// snapshot has already advanced.
func (s *SessionStore) persistLocked(ctx context.Context) {
	b, err := json.Marshal(s.sessions)
	if err != nil {
		s.log.Error().Err(err).Msg("encode sessions")
		return
	}
	if err := s.slot.Store(ctx, s.key, b); err != nil {
		s.log.Error().Err(err).Str("key", s.key).Int("sessions", s.sessions.Len()).Msg("persist sessions")
	}
}
