package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"nyx-chat/internal/config"
	"nyx-chat/internal/domain/ports/adapter"
)

// New builds the configured provider wrapped with the concurrency cap, the history
// token budget and instrumentation.
func New(ctx context.Context, cfg config.AIConfig, logger *zerolog.Logger) (adapter.TextGenerator, error) {
	var (
		base adapter.TextGenerator
		err  error
	)
	provider := strings.ToLower(cfg.Provider)
	switch provider {
	case "gemini":
		base, err = NewGeminiAdapter(ctx, cfg.GeminiKey, cfg.GeminiURL, cfg.DefaultModel, cfg.SystemInstruction, cfg.Temperature)
	case "openai":
		base, err = NewOpenAIAdapter(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.DefaultModel, cfg.SystemInstruction, cfg.Temperature)
	case "noop", "":
		provider = "noop"
		base = NewNoopAIAdapter(logger)
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s: %w", provider, err)
	}

	gen := NewLimitedAI(base, cfg.ConcurrentLimit)
	gen = NewTokenBudget(gen, nil, cfg.HistoryTokenBudget, cfg.DefaultModel)
	return NewInstrumented(gen, provider, cfg.DefaultModel, logger), nil
}
