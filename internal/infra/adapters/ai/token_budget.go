package ai

import (
	"context"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"nyx-chat/internal/domain/ports/adapter"
	"nyx-chat/internal/infra/metrics"
)

var (
	_ adapter.TextGenerator = (*tokenBudget)(nil)
	_ adapter.UsageReporter = (*tokenBudget)(nil)
	_ adapter.ModelLister   = (*tokenBudget)(nil)
)

// perTurnOverhead approximates the role and framing tokens of one turn.
const perTurnOverhead = 4

// TokenCounter counts tokens in a piece of text.
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts with the cl100k_base encoding. When the encoding cannot be
// loaded it falls back to four characters per token.
type TiktokenCounter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

func (c *TiktokenCounter) Count(text string) int {
	c.once.Do(func() {
		c.enc, c.err = tiktoken.GetEncoding("cl100k_base")
	})
	if c.err != nil || c.enc == nil {
		return len(text) / 4
	}
	return len(c.enc.Encode(text, nil, nil))
}

type tokenBudget struct {
	inner   adapter.TextGenerator
	counter TokenCounter
	budget  int
	model   string
}

// NewTokenBudget drops the oldest history turns until prompt and history fit in budget
// tokens. The prompt itself is never cut. budget <= 0 disables trimming.
func NewTokenBudget(inner adapter.TextGenerator, counter TokenCounter, budget int, model string) adapter.TextGenerator {
	if budget <= 0 {
		return inner
	}
	if counter == nil {
		counter = &TiktokenCounter{}
	}
	return &tokenBudget{inner: inner, counter: counter, budget: budget, model: model}
}

func (b *tokenBudget) ListModels(ctx context.Context) ([]string, error) {
	return listModels(ctx, b.inner)
}

func (b *tokenBudget) Generate(ctx context.Context, prompt string, history []adapter.Turn) (string, error) {
	return b.inner.Generate(ctx, prompt, b.trim(prompt, history))
}

func (b *tokenBudget) GenerateWithUsage(ctx context.Context, prompt string, history []adapter.Turn) (string, adapter.Usage, error) {
	return generateWithUsage(ctx, b.inner, prompt, b.trim(prompt, history))
}

func (b *tokenBudget) trim(prompt string, history []adapter.Turn) []adapter.Turn {
	total := b.counter.Count(prompt) + perTurnOverhead
	costs := make([]int, len(history))
	for i, t := range history {
		costs[i] = b.counter.Count(t.Text) + perTurnOverhead
		total += costs[i]
	}
	drop := 0
	for drop < len(history) && total > b.budget {
		total -= costs[drop]
		drop++
	}
	if drop > 0 {
		metrics.AddHistoryTrimmed(b.model, drop)
	}
	return history[drop:]
}
