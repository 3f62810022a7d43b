// File: internal/infra/adapters/ai/gemini_adapter.go
package ai

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"nyx-chat/internal/domain/ports/adapter"
)

var (
	_ adapter.TextGenerator = (*GeminiAdapter)(nil)
	_ adapter.UsageReporter = (*GeminiAdapter)(nil)
	_ adapter.ModelLister   = (*GeminiAdapter)(nil)
)

type GeminiAdapter struct {
	client            *genai.Client
	model             string
	systemInstruction string
	temperature       float32
}

// NewGeminiAdapter creates a Gemini adapter using the official SDK.
func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, model, systemInstruction string, temperature float64) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{
		client:            c,
		model:             model,
		systemInstruction: systemInstruction,
		temperature:       float32(temperature),
	}, nil
}

func (g *GeminiAdapter) ListModels(ctx context.Context) ([]string, error) {
	var out []string
	for m, err := range g.client.Models.All(ctx) {
		if err != nil {
			if len(out) == 0 && g.model != "" {
				return []string{g.model}, nil
			}
			return out, err
		}
		if m != nil && m.Name != "" {
			out = append(out, strings.TrimPrefix(m.Name, "models/"))
		}
	}
	if len(out) == 0 && g.model != "" {
		out = []string{g.model}
	}
	return out, nil
}

func (g *GeminiAdapter) Generate(ctx context.Context, prompt string, history []adapter.Turn) (string, error) {
	text, _, err := g.GenerateWithUsage(ctx, prompt, history)
	return text, err
}

func (g *GeminiAdapter) GenerateWithUsage(ctx context.Context, prompt string, history []adapter.Turn) (string, adapter.Usage, error) {
	chat, err := g.client.Chats.Create(ctx, g.model, g.config(), toGenAIHistory(history))
	if err != nil {
		return "", adapter.Usage{}, err
	}

	resp, err := chat.SendMessage(ctx, genai.Part{Text: prompt})
	if err != nil {
		return "", adapter.Usage{}, err
	}

	// Extract text
	text := ""
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		var b strings.Builder
		for _, p := range resp.Candidates[0].Content.Parts {
			if p != nil && !p.Thought {
				b.WriteString(p.Text)
			}
		}
		text = b.String()
	}
	// Usage (if present)
	u := adapter.Usage{}
	if resp != nil && resp.UsageMetadata != nil {
		u.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		u.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		u.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return text, u, nil
}

func (g *GeminiAdapter) config() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr(g.temperature)}
	if g.systemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: g.systemInstruction}}}
	}
	return cfg
}

func toGenAIHistory(turns []adapter.Turn) []*genai.Content {
	out := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := genai.RoleUser
		if isModelRole(t.Role) {
			role = genai.RoleModel
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: t.Text}},
		})
	}
	return out
}

func isModelRole(role string) bool {
	switch strings.ToLower(role) {
	case "model", "assistant":
		return true
	}
	return false
}
