package model

import (
	"encoding/json"
	"fmt"
	"time"

	"nyx-chat/internal/domain"
)

// Sessions is an immutable, ordered snapshot of chat sessions, most recent first.
// Every "mutating" method returns a new snapshot; sessions that did not change are
// shared between the old and the new value.
type Sessions struct {
	items []ChatSession
}

// NewSessions copies items, already ordered most recent first, into a snapshot.
func NewSessions(items ...ChatSession) Sessions {
	cp := make([]ChatSession, len(items))
	copy(cp, items)
	return Sessions{items: cp}
}

// Len reports the number of sessions.
func (s Sessions) Len() int { return len(s.items) }

// All returns a copy of the ordered list. The sessions' message slices must not be modified.
func (s Sessions) All() []ChatSession {
	cp := make([]ChatSession, len(s.items))
	copy(cp, s.items)
	return cp
}

func (s Sessions) Find(id string) (ChatSession, bool) {
	if id == "" {
		return ChatSession{}, false
	}
	for _, cs := range s.items {
		if cs.ID == id {
			return cs, true
		}
	}
	return ChatSession{}, false
}

func (s Sessions) Contains(id string) bool {
	_, ok := s.Find(id)
	return ok
}

// Prepend inserts cs at the front.
func (s Sessions) Prepend(cs ChatSession) (Sessions, error) {
	if err := cs.Validate(); err != nil {
		return s, err
	}
	if s.Contains(cs.ID) {
		return s, fmt.Errorf("%w: duplicate session %s", domain.ErrInvalidArgument, cs.ID)
	}
	items := make([]ChatSession, 0, len(s.items)+1)
	items = append(items, cs)
	items = append(items, s.items...)
	return Sessions{items: items}, nil
}

// WithMessage appends m to session id, keeping its position in the list.
func (s Sessions) WithMessage(id string, m Message, at time.Time) (Sessions, ChatSession, error) {
	for i, cs := range s.items {
		if cs.ID != id {
			continue
		}
		updated, err := cs.WithMessage(m, at)
		if err != nil {
			return s, ChatSession{}, err
		}
		items := make([]ChatSession, len(s.items))
		copy(items, s.items)
		items[i] = updated
		return Sessions{items: items}, updated, nil
	}
	return s, ChatSession{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
}

// Without drops session id. The boolean reports whether it was present.
func (s Sessions) Without(id string) (Sessions, bool) {
	for i, cs := range s.items {
		if cs.ID != id {
			continue
		}
		items := make([]ChatSession, 0, len(s.items)-1)
		items = append(items, s.items[:i]...)
		items = append(items, s.items[i+1:]...)
		return Sessions{items: items}, true
	}
	return s, false
}

func (s Sessions) MarshalJSON() ([]byte, error) {
	items := s.items
	if items == nil {
		items = []ChatSession{}
	}
	return json.Marshal(items)
}

func (s *Sessions) UnmarshalJSON(b []byte) error {
	var items []ChatSession
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	*s = Sessions{items: items}
	return nil
}

// ParseSessions decodes a stored snapshot. Sessions that could never have been stored
// (no id, no messages, duplicated id) are dropped; duplicated message ids keep their first copy.
func ParseSessions(b []byte) (Sessions, error) {
	var raw []ChatSession
	if err := json.Unmarshal(b, &raw); err != nil {
		return Sessions{}, err
	}
	seen := make(map[string]struct{}, len(raw))
	items := make([]ChatSession, 0, len(raw))
	for _, cs := range raw {
		if _, dup := seen[cs.ID]; dup {
			continue
		}
		cs.Messages = dedupeMessages(cs.Messages)
		if cs.Validate() != nil {
			continue
		}
		seen[cs.ID] = struct{}{}
		items = append(items, cs)
	}
	return Sessions{items: items}, nil
}

func dedupeMessages(msgs []Message) []Message {
	seen := make(map[string]struct{}, len(msgs))
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}
