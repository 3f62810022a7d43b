package model

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

func (r Role) Valid() bool { return r == RoleUser || r == RoleModel }

// Message is one immutable turn of a conversation.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Timestamp time.Time
}

// NewMessage stamps a fresh id. Timestamps are kept at millisecond precision,
// which is what the storage slot can represent.
func NewMessage(role Role, content string, at time.Time) Message {
	return Message{
		ID:        ulid.Make().String(),
		Role:      role,
		Content:   content,
		Timestamp: at.Truncate(time.Millisecond),
	}
}

type messageJSON struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(messageJSON{
		ID:        m.ID,
		Role:      m.Role,
		Content:   m.Content,
		Timestamp: m.Timestamp.UnixMilli(),
	})
}

func (m *Message) UnmarshalJSON(b []byte) error {
	var raw messageJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*m = Message{
		ID:        raw.ID,
		Role:      raw.Role,
		Content:   raw.Content,
		Timestamp: time.UnixMilli(raw.Timestamp),
	}
	return nil
}
