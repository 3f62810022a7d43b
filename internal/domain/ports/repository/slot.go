package repository

import (
	"context"
	"errors"
)

// ErrSlotEmpty is returned by Load when nothing was ever stored under the key.
var ErrSlotEmpty = errors.New("storage slot is empty")

// -----------------------------
// Durable local state
// -----------------------------

// SlotStore is a small durable key/value space. Values are always written whole.
type SlotStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Store(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
