package adapter

import "context"

// Turn is one prior message handed to the model as history.
type Turn struct {
	Role string `json:"role"` // "user" | "model"
	Text string `json:"text"`
}

// TextGenerator is the port for the remote generative-text collaborator.
// prompt is the current user turn and is never repeated inside history.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, history []Turn) (string, error)
}

// ModelLister is implemented by generators that can enumerate their models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Usage for a single generate call, when the provider reports it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// UsageReporter is implemented by generators that expose token usage of their last call.
type UsageReporter interface {
	GenerateWithUsage(ctx context.Context, prompt string, history []Turn) (string, Usage, error)
}
