// File: internal/infra/adapters/ai/openai_adapter.go
package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"nyx-chat/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var (
	_ adapter.TextGenerator = (*OpenAIAdapter)(nil)
	_ adapter.UsageReporter = (*OpenAIAdapter)(nil)
	_ adapter.ModelLister   = (*OpenAIAdapter)(nil)
)

// OpenAIAdapter implements adapter.TextGenerator using the Chat Completions API.
// Any OpenAI-compatible gateway works through baseURL.
type OpenAIAdapter struct {
	client            openai.Client
	model             string
	systemInstruction string
	temperature       float64
}

func NewOpenAIAdapter(apiKey, baseURL, model, systemInstruction string, temperature float64, opts ...option.RequestOption) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	reqOpts = append(reqOpts, opts...)
	return &OpenAIAdapter{
		client:            openai.NewClient(reqOpts...),
		model:             model,
		systemInstruction: systemInstruction,
		temperature:       temperature,
	}, nil
}

func (o *OpenAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	var out []string
	iter := o.client.Models.ListAutoPaging(ctx)
	for iter.Next() {
		out = append(out, iter.Current().ID)
	}
	if err := iter.Err(); err != nil {
		if len(out) == 0 {
			return []string{o.model}, nil
		}
		return out, err
	}
	return out, nil
}

func (o *OpenAIAdapter) Generate(ctx context.Context, prompt string, history []adapter.Turn) (string, error) {
	text, _, err := o.GenerateWithUsage(ctx, prompt, history)
	return text, err
}

func (o *OpenAIAdapter) GenerateWithUsage(ctx context.Context, prompt string, history []adapter.Turn) (string, adapter.Usage, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.model),
		Messages:    o.messages(prompt, history),
		Temperature: openai.Float(o.temperature),
	})
	if err != nil {
		return "", adapter.Usage{}, err
	}

	u := adapter.Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	for _, c := range resp.Choices {
		if c.Message.Content != "" {
			return c.Message.Content, u, nil
		}
	}
	return "", u, nil
}

func (o *OpenAIAdapter) messages(prompt string, history []adapter.Turn) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	if o.systemInstruction != "" {
		msgs = append(msgs, openai.SystemMessage(o.systemInstruction))
	}
	for _, t := range history {
		if isModelRole(t.Role) {
			msgs = append(msgs, openai.AssistantMessage(t.Text))
		} else {
			msgs = append(msgs, openai.UserMessage(t.Text))
		}
	}
	return append(msgs, openai.UserMessage(prompt))
}
