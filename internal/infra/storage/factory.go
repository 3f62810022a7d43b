// File: internal/infra/storage/factory.go
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"nyx-chat/internal/config"
	"nyx-chat/internal/domain/ports/repository"
	"nyx-chat/internal/infra/db/postgres"
	"nyx-chat/internal/infra/db/sqlite"
	"nyx-chat/internal/infra/redis"
	"nyx-chat/internal/infra/security"
)

// New opens the configured slot store driver, optionally sealed with the storage
// encryption key, and instruments it.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (repository.SlotStore, error) {
	driver := strings.ToLower(cfg.Storage.Driver)

	var (
		slot repository.SlotStore
		err  error
	)
	switch driver {
	case "file", "":
		driver = "file"
		slot, err = NewFileSlot(cfg.Storage.Dir)
	case "sqlite":
		if err = ensureDir(cfg.Storage.Dir); err == nil {
			slot, err = sqlite.Open(ctx, filepath.Join(cfg.Storage.Dir, "nyx.db"))
		}
	case "redis":
		var cli redis.RedisClient
		cli, err = redis.NewClient(ctx, &cfg.Redis)
		if err == nil {
			slot = redis.NewSlotStore(cli)
		}
	case "postgres":
		slot, err = openPostgres(ctx, cfg.Database.URL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", driver, err)
	}

	if key := cfg.Storage.EncryptionKey; key != "" {
		enc, err := security.NewEncryptionService(key)
		if err != nil {
			_ = slot.Close()
			return nil, err
		}
		slot = NewSealedSlot(slot, enc)
	}

	logger.Info().Str("driver", driver).Bool("sealed", cfg.Storage.EncryptionKey != "").Msg("storage opened")
	return newInstrumented(slot, driver, logger), nil
}

func openPostgres(ctx context.Context, dsn string) (repository.SlotStore, error) {
	pool, err := postgres.ConnectPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}
	s := postgres.NewSlotStore(pool)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}
