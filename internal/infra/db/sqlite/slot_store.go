// File: internal/infra/db/sqlite/slot_store.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"nyx-chat/internal/domain/ports/repository"
)

var _ repository.SlotStore = (*SlotStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS slots (
  key        TEXT PRIMARY KEY,
  value      BLOB NOT NULL,
  updated_at INTEGER NOT NULL
);`

// SlotStore keeps slots in a single-file sqlite database.
type SlotStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and ensures the slots table exists.
func Open(ctx context.Context, path string) (*SlotStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// one writer; sqlite serializes anyway and this avoids SQLITE_BUSY between pool conns
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &SlotStore{db: db, now: time.Now}, nil
}

func (s *SlotStore) Load(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM slots WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("load slot %s: %w", key, err)
	}
	return v, nil
}

func (s *SlotStore) Store(ctx context.Context, key string, value []byte) error {
	const q = `
INSERT INTO slots (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;`
	if _, err := s.db.ExecContext(ctx, q, key, value, s.now().UnixMilli()); err != nil {
		return fmt.Errorf("store slot %s: %w", key, err)
	}
	return nil
}

func (s *SlotStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM slots WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete slot %s: %w", key, err)
	}
	return nil
}

func (s *SlotStore) Close() error { return s.db.Close() }
