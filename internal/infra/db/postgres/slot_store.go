// File: internal/infra/db/postgres/slot_store.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"nyx-chat/internal/domain/ports/repository"
)

var _ repository.SlotStore = (*SlotStore)(nil)

const slotSchema = `
CREATE TABLE IF NOT EXISTS slots (
  key        TEXT PRIMARY KEY,
  value      BYTEA NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

type SlotStore struct {
	pool *pgxpool.Pool
}

func NewSlotStore(pool *pgxpool.Pool) *SlotStore {
	return &SlotStore{pool: pool}
}

// EnsureSchema creates the slots table when missing.
func (s *SlotStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, slotSchema); err != nil {
		return fmt.Errorf("slots schema: %w", err)
	}
	return nil
}

func (s *SlotStore) Load(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM slots WHERE key = $1;`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("load slot: %w", err)
	}
	return v, nil
}

func (s *SlotStore) Store(ctx context.Context, key string, value []byte) error {
	const q = `
INSERT INTO slots (key, value, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE SET
  value = EXCLUDED.value,
  updated_at = EXCLUDED.updated_at;`
	if _, err := s.pool.Exec(ctx, q, key, value); err != nil {
		return fmt.Errorf("store slot: %w", err)
	}
	return nil
}

func (s *SlotStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM slots WHERE key = $1;`, key); err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	return nil
}

func (s *SlotStore) Close() error {
	s.pool.Close()
	return nil
}
