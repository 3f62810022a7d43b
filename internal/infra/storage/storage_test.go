//go:build !integration

package storage_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"nyx-chat/internal/config"
	"nyx-chat/internal/domain/ports/repository"
	"nyx-chat/internal/infra/logging"
	"nyx-chat/internal/infra/security"
	"nyx-chat/internal/infra/storage"
)

const testKey = "0123456789abcdef0123456789abcdef"

// exerciseSlot runs the contract every driver must satisfy.
func exerciseSlot(t *testing.T, slot repository.SlotStore) {
	t.Helper()
	ctx := context.Background()

	if _, err := slot.Load(ctx, "nyx_ai_sessions"); !errors.Is(err, repository.ErrSlotEmpty) {
		t.Fatalf("expected ErrSlotEmpty for a fresh slot, got %v", err)
	}

	if err := slot.Store(ctx, "nyx_ai_sessions", []byte(`[{"id":"a"}]`)); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := slot.Store(ctx, "nyx_ai_sessions", []byte(`[]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := slot.Load(ctx, "nyx_ai_sessions")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got) != `[]` {
		t.Fatalf("expected the last write to win, got %q", got)
	}

	if _, err := slot.Load(ctx, "nyx_ai_auth"); !errors.Is(err, repository.ErrSlotEmpty) {
		t.Fatalf("keys must be independent, got %v", err)
	}

	if err := slot.Delete(ctx, "nyx_ai_sessions"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := slot.Delete(ctx, "nyx_ai_sessions"); err != nil {
		t.Fatalf("deleting a missing slot must be a no-op, got %v", err)
	}
	if _, err := slot.Load(ctx, "nyx_ai_sessions"); !errors.Is(err, repository.ErrSlotEmpty) {
		t.Fatalf("expected ErrSlotEmpty after delete, got %v", err)
	}
}

func TestFileSlot(t *testing.T) {
	dir := t.TempDir()
	slot, err := storage.NewFileSlot(filepath.Join(dir, "nested"))
	if err != nil {
		t.Fatal(err)
	}
	exerciseSlot(t, slot)

	t.Run("no temp files left behind", func(t *testing.T) {
		_ = slot.Store(context.Background(), "k", []byte("v"))
		entries, _ := os.ReadDir(filepath.Join(dir, "nested"))
		if len(entries) != 1 || entries[0].Name() != "k.json" {
			var names []string
			for _, e := range entries {
				names = append(names, e.Name())
			}
			t.Fatalf("unexpected files %v", names)
		}
	})

	t.Run("rejects path-like keys", func(t *testing.T) {
		for _, key := range []string{"", "../escape", `a\b`, ".."} {
			if err := slot.Store(context.Background(), key, []byte("x")); err == nil {
				t.Errorf("expected error for key %q", key)
			}
		}
	})
}

func TestSealedSlot(t *testing.T) {
	ctx := context.Background()
	enc, err := security.NewEncryptionService(testKey)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	inner, _ := storage.NewFileSlot(dir)
	slot := storage.NewSealedSlot(inner, enc)
	exerciseSlot(t, slot)

	t.Run("value is not readable at rest", func(t *testing.T) {
		_ = slot.Store(ctx, "nyx_ai_sessions", []byte(`[{"title":"secret plans"}]`))
		raw, _ := os.ReadFile(filepath.Join(dir, "nyx_ai_sessions.json"))
		if len(raw) == 0 || string(raw) == `[{"title":"secret plans"}]` {
			t.Fatalf("expected ciphertext on disk, got %q", raw)
		}
	})

	t.Run("foreign key cannot open", func(t *testing.T) {
		other, _ := security.NewEncryptionService("fedcba9876543210")
		_, err := storage.NewSealedSlot(inner, other).Load(ctx, "nyx_ai_sessions")
		if !errors.Is(err, security.ErrCiphertext) {
			t.Fatalf("expected ErrCiphertext, got %v", err)
		}
	})
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name string
		cfg  config.StorageConfig
		file string
	}{
		{name: "file", cfg: config.StorageConfig{Driver: "file"}, file: "nyx_ai_sessions.json"},
		{name: "sqlite", cfg: config.StorageConfig{Driver: "sqlite"}, file: "nyx.db"},
		{name: "sealed file", cfg: config.StorageConfig{Driver: "file", EncryptionKey: testKey}, file: "nyx_ai_sessions.json"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			cfg := &config.Config{Storage: tc.cfg}
			cfg.Storage.Dir = dir

			slot, err := storage.New(ctx, cfg, logging.Nop())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer slot.Close()

			exerciseSlot(t, slot)
			if err := slot.Store(ctx, "nyx_ai_sessions", []byte("[]")); err != nil {
				t.Fatal(err)
			}
			if _, err := os.Stat(filepath.Join(dir, tc.file)); err != nil {
				t.Fatalf("expected %s in storage dir: %v", tc.file, err)
			}
		})
	}

	t.Run("unknown driver", func(t *testing.T) {
		cfg := &config.Config{Storage: config.StorageConfig{Driver: "etcd", Dir: t.TempDir()}}
		if _, err := storage.New(ctx, cfg, logging.Nop()); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("bad encryption key", func(t *testing.T) {
		cfg := &config.Config{Storage: config.StorageConfig{Driver: "file", Dir: t.TempDir(), EncryptionKey: "short"}}
		if _, err := storage.New(ctx, cfg, logging.Nop()); err == nil {
			t.Fatal("expected error")
		}
	})
}
