package identity

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"nyx-chat/internal/config"
	"nyx-chat/internal/domain/ports/adapter"
	"nyx-chat/internal/domain/ports/repository"
)

// New builds the configured identity provider. Session state is kept in slot under authKey.
func New(cfg config.IdentityConfig, slot repository.SlotStore, authKey string, logger *zerolog.Logger) (adapter.IdentityProvider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "firebase":
		opts := FirebaseOptions{
			APIKey:  cfg.FirebaseAPIKey,
			BaseURL: cfg.FirebaseBaseURL,
			Slot:    slot,
			AuthKey: authKey,
		}
		if cfg.GoogleClientID != "" {
			opts.Popup = NewGooglePopup(GooglePopupOptions{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				CallbackPort: cfg.CallbackPort,
			}, logger)
		}
		return NewFirebaseProvider(opts, logger)
	case "local", "":
		return NewLocalProvider(LocalOptions{Slot: slot, AuthKey: authKey, Secret: cfg.LocalSecret}, logger)
	default:
		return nil, fmt.Errorf("unknown identity provider %q", cfg.Provider)
	}
}
