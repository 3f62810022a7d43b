package application

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"nyx-chat/internal/config"
	"nyx-chat/internal/infra/adapters/ai"
	"nyx-chat/internal/infra/adapters/identity"
	"nyx-chat/internal/infra/i18n"
	"nyx-chat/internal/infra/storage"
)

// Build opens storage and constructs the configured adapters. The caller owns the
// returned client and must Close it.
func Build(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*Client, error) {
	slot, err := storage.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	gen, err := ai.New(ctx, cfg.AI, logger)
	if err != nil {
		_ = slot.Close()
		return nil, fmt.Errorf("ai provider: %w", err)
	}

	idp, err := identity.New(cfg.Identity, slot, cfg.Storage.AuthKey, logger)
	if err != nil {
		_ = slot.Close()
		return nil, fmt.Errorf("identity provider: %w", err)
	}

	tr, err := i18n.New(cfg.UI.Language)
	if err != nil {
		_ = slot.Close()
		return nil, fmt.Errorf("translations: %w", err)
	}

	return NewClient(Deps{
		Config:     cfg,
		Logger:     logger,
		Slot:       slot,
		AI:         gen,
		Identity:   idp,
		Translator: tr,
	}), nil
}
