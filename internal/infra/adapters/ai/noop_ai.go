package ai

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"nyx-chat/internal/domain/ports/adapter"
	"nyx-chat/internal/infra/logging"
)

var (
	_ adapter.TextGenerator = (*NoopAIAdapter)(nil)
	_ adapter.ModelLister   = (*NoopAIAdapter)(nil)
)

// NoopReply is what the offline generator answers with.
const NoopReply = "Nyx is running offline. Set API_KEY to talk to a real model."

// NoopAIAdapter answers locally for development without an API key.
type NoopAIAdapter struct {
	log   *zerolog.Logger
	delay time.Duration
}

func NewNoopAIAdapter(logger *zerolog.Logger) *NoopAIAdapter {
	if logger == nil {
		logger = logging.Nop()
	}
	return &NoopAIAdapter{log: logger, delay: 100 * time.Millisecond}
}

// Generate simulates slight processing time and respects ctx.
func (a *NoopAIAdapter) Generate(ctx context.Context, prompt string, history []adapter.Turn) (string, error) {
	t := time.NewTimer(a.delay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	a.log.Debug().Int("history", len(history)).Int("prompt_len", len(prompt)).Msg("noop-ai generate")
	return NoopReply, nil
}

func (a *NoopAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	return []string{"noop"}, nil
}
