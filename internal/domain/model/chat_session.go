package model

import (
	"encoding/json"
	"fmt"
	"time"

	"nyx-chat/internal/domain"
)

// TitleLength is the number of characters of the first message used as a session title.
const TitleLength = 30

// ChatSession is an ordered, titled conversation. Values are treated as immutable:
// WithMessage returns a new session and never touches the receiver's slice.
type ChatSession struct {
	ID        string
	Title     string
	Messages  []Message
	UpdatedAt time.Time
}

// NewChatSession starts a conversation from its first message.
func NewChatSession(id string, first Message, at time.Time) ChatSession {
	return ChatSession{
		ID:        id,
		Title:     DeriveTitle(first.Content),
		Messages:  []Message{first},
		UpdatedAt: at.Truncate(time.Millisecond),
	}
}

// DeriveTitle returns the first TitleLength characters of content, untrimmed.
func DeriveTitle(content string) string {
	r := []rune(content)
	if len(r) <= TitleLength {
		return content
	}
	return string(r[:TitleLength])
}

// WithMessage returns a copy of s with m appended and UpdatedAt refreshed.
// A timestamp older than the previous message is raised to keep the sequence non-decreasing.
func (s ChatSession) WithMessage(m Message, at time.Time) (ChatSession, error) {
	for _, existing := range s.Messages {
		if existing.ID == m.ID {
			return ChatSession{}, fmt.Errorf("%w: %s", domain.ErrDuplicateMessage, m.ID)
		}
	}
	if last, ok := s.LastMessage(); ok && m.Timestamp.Before(last.Timestamp) {
		m.Timestamp = last.Timestamp
	}
	msgs := make([]Message, len(s.Messages), len(s.Messages)+1)
	copy(msgs, s.Messages)
	s.Messages = append(msgs, m)
	s.UpdatedAt = at.Truncate(time.Millisecond)
	return s, nil
}

// LastMessage returns the newest message, or false when the session is empty.
func (s ChatSession) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// RecentMessages returns at most the last n messages; n <= 0 means all of them.
func (s ChatSession) RecentMessages(n int) []Message {
	if n <= 0 || len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}

// Validate reports whether the session may be stored.
func (s ChatSession) Validate() error {
	if s.ID == "" {
		return domain.ErrInvalidArgument
	}
	if len(s.Messages) == 0 {
		return domain.ErrEmptySession
	}
	return nil
}

type chatSessionJSON struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	UpdatedAt int64     `json:"updatedAt"`
}

func (s ChatSession) MarshalJSON() ([]byte, error) {
	msgs := s.Messages
	if msgs == nil {
		msgs = []Message{}
	}
	return json.Marshal(chatSessionJSON{
		ID:        s.ID,
		Title:     s.Title,
		Messages:  msgs,
		UpdatedAt: s.UpdatedAt.UnixMilli(),
	})
}

func (s *ChatSession) UnmarshalJSON(b []byte) error {
	var raw chatSessionJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = ChatSession{
		ID:        raw.ID,
		Title:     raw.Title,
		Messages:  raw.Messages,
		UpdatedAt: time.UnixMilli(raw.UpdatedAt),
	}
	return nil
}
