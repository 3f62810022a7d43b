package ai

import (
	"context"

	"nyx-chat/internal/domain/ports/adapter"
)

// Compile-time check
var (
	_ adapter.TextGenerator = (*limitedAI)(nil)
	_ adapter.UsageReporter = (*limitedAI)(nil)
	_ adapter.ModelLister   = (*limitedAI)(nil)
)

type limitedAI struct {
	inner adapter.TextGenerator
	sem   chan struct{}
}

// NewLimitedAI caps concurrent generate calls on inner. A caller waiting for a slot
// gives up when its context ends.
func NewLimitedAI(inner adapter.TextGenerator, maxConcurrent int) adapter.TextGenerator {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedAI{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedAI) acquire(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *limitedAI) ListModels(ctx context.Context) ([]string, error) {
	return listModels(ctx, l.inner)
}

func (l *limitedAI) Generate(ctx context.Context, prompt string, history []adapter.Turn) (string, error) {
	if err := l.acquire(ctx); err != nil {
		return "", err
	}
	defer func() { <-l.sem }()
	return l.inner.Generate(ctx, prompt, history)
}

func (l *limitedAI) GenerateWithUsage(ctx context.Context, prompt string, history []adapter.Turn) (string, adapter.Usage, error) {
	if err := l.acquire(ctx); err != nil {
		return "", adapter.Usage{}, err
	}
	defer func() { <-l.sem }()
	return generateWithUsage(ctx, l.inner, prompt, history)
}

// generateWithUsage prefers the usage-reporting path when inner has one.
func generateWithUsage(ctx context.Context, inner adapter.TextGenerator, prompt string, history []adapter.Turn) (string, adapter.Usage, error) {
	if ur, ok := inner.(adapter.UsageReporter); ok {
		return ur.GenerateWithUsage(ctx, prompt, history)
	}
	text, err := inner.Generate(ctx, prompt, history)
	return text, adapter.Usage{}, err
}

func listModels(ctx context.Context, inner adapter.TextGenerator) ([]string, error) {
	if ml, ok := inner.(adapter.ModelLister); ok {
		return ml.ListModels(ctx)
	}
	return nil, nil
}
