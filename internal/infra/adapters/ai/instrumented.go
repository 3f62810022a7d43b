package ai

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"nyx-chat/internal/domain/ports/adapter"
	"nyx-chat/internal/infra/logging"
	"nyx-chat/internal/infra/metrics"
)

var (
	_ adapter.TextGenerator = (*instrumentedAI)(nil)
	_ adapter.UsageReporter = (*instrumentedAI)(nil)
	_ adapter.ModelLister   = (*instrumentedAI)(nil)
)

type instrumentedAI struct {
	inner    adapter.TextGenerator
	provider string
	model    string
	log      *zerolog.Logger
}

// NewInstrumented records latency, token usage and outcome of every call.
func NewInstrumented(inner adapter.TextGenerator, provider, model string, logger *zerolog.Logger) adapter.TextGenerator {
	if logger == nil {
		logger = logging.Nop()
	}
	return &instrumentedAI{inner: inner, provider: provider, model: model, log: logger}
}

func (i *instrumentedAI) ListModels(ctx context.Context) ([]string, error) {
	return listModels(ctx, i.inner)
}

func (i *instrumentedAI) Generate(ctx context.Context, prompt string, history []adapter.Turn) (string, error) {
	text, _, err := i.GenerateWithUsage(ctx, prompt, history)
	return text, err
}

func (i *instrumentedAI) GenerateWithUsage(ctx context.Context, prompt string, history []adapter.Turn) (string, adapter.Usage, error) {
	start := time.Now()
	text, u, err := generateWithUsage(ctx, i.inner, prompt, history)
	elapsed := time.Since(start)

	metrics.ObserveAICall(i.provider, i.model, u.PromptTokens, u.CompletionTokens, elapsed.Milliseconds(), err == nil)

	ev := logging.With(ctx, i.log).Debug()
	if err != nil {
		ev = logging.With(ctx, i.log).Warn().Err(err)
	}
	ev.Str("provider", i.provider).
		Str("model", i.model).
		Int("history", len(history)).
		Int("tokens_in", u.PromptTokens).
		Int("tokens_out", u.CompletionTokens).
		Dur("latency", elapsed).
		Msg("ai call")
	return text, u, err
}
