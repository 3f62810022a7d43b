//go:build !integration

package ai_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"nyx-chat/internal/config"
	"nyx-chat/internal/domain/ports/adapter"
	ai "nyx-chat/internal/infra/adapters/ai"
	"nyx-chat/internal/infra/logging"
)

type stubAI struct {
	mu       sync.Mutex
	active   int32
	peak     int32
	hold     time.Duration
	history  []adapter.Turn
	usageN   int
	generate int
}

func (s *stubAI) Generate(ctx context.Context, prompt string, history []adapter.Turn) (string, error) {
	s.mu.Lock()
	s.generate++
	s.history = history
	s.mu.Unlock()

	n := atomic.AddInt32(&s.active, 1)
	for {
		p := atomic.LoadInt32(&s.peak)
		if n <= p || atomic.CompareAndSwapInt32(&s.peak, p, n) {
			break
		}
	}
	time.Sleep(s.hold)
	atomic.AddInt32(&s.active, -1)
	return "ok:" + prompt, nil
}

type usageStub struct{ stubAI }

func (s *usageStub) GenerateWithUsage(ctx context.Context, prompt string, history []adapter.Turn) (string, adapter.Usage, error) {
	s.mu.Lock()
	s.usageN++
	s.mu.Unlock()
	return "usage:" + prompt, adapter.Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5}, nil
}

func (s *usageStub) ListModels(ctx context.Context) ([]string, error) {
	return []string{"stub-model"}, nil
}

// wordCounter counts whitespace separated words.
type wordCounter struct{}

func (wordCounter) Count(text string) int { return len(strings.Fields(text)) }

func TestLimitedAI(t *testing.T) {
	t.Parallel()

	t.Run("caps concurrency", func(t *testing.T) {
		inner := &stubAI{hold: 20 * time.Millisecond}
		gen := ai.NewLimitedAI(inner, 2)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = gen.Generate(context.Background(), "p", nil)
			}()
		}
		wg.Wait()
		if p := atomic.LoadInt32(&inner.peak); p > 2 {
			t.Fatalf("peak concurrency %d exceeds limit", p)
		}
	})

	t.Run("waiting caller honours context", func(t *testing.T) {
		inner := &stubAI{hold: 200 * time.Millisecond}
		gen := ai.NewLimitedAI(inner, 1)
		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = gen.Generate(context.Background(), "busy", nil)
		}()
		time.Sleep(20 * time.Millisecond)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		if _, err := gen.Generate(ctx, "late", nil); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded, got %v", err)
		}
		<-done
	})

	t.Run("non-positive limit returns inner", func(t *testing.T) {
		inner := &stubAI{}
		if gen := ai.NewLimitedAI(inner, 0); gen != adapter.TextGenerator(inner) {
			t.Fatal("expected passthrough")
		}
	})

	t.Run("usage and models pass through", func(t *testing.T) {
		inner := &usageStub{}
		gen := ai.NewLimitedAI(inner, 1)
		text, u, err := gen.(adapter.UsageReporter).GenerateWithUsage(context.Background(), "q", nil)
		if err != nil || text != "usage:q" || u.TotalTokens != 5 {
			t.Fatalf("unexpected %q %+v %v", text, u, err)
		}
		models, _ := gen.(adapter.ModelLister).ListModels(context.Background())
		if len(models) != 1 || models[0] != "stub-model" {
			t.Fatalf("unexpected models %v", models)
		}
	})
}

func TestTokenBudget(t *testing.T) {
	t.Parallel()
	history := []adapter.Turn{
		{Role: "user", Text: "one two three"},
		{Role: "model", Text: "four five"},
		{Role: "user", Text: "six"},
	}

	cases := []struct {
		name   string
		budget int
		want   int
	}{
		// prompt "q" costs 1+4; turns cost 7, 6 and 5
		{"fits", 100, 3},
		{"drops oldest", 17, 2},
		{"drops all but prompt", 6, 0},
		{"disabled", 0, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inner := &stubAI{}
			gen := ai.NewTokenBudget(inner, wordCounter{}, tc.budget, "m")
			if _, err := gen.Generate(context.Background(), "q", history); err != nil {
				t.Fatal(err)
			}
			if len(inner.history) != tc.want {
				t.Fatalf("expected %d turns, got %d", tc.want, len(inner.history))
			}
			if tc.want > 0 && inner.history[len(inner.history)-1].Text != "six" {
				t.Fatal("the most recent turns must be kept")
			}
		})
	}
}

func TestInstrumented_PrefersUsagePath(t *testing.T) {
	t.Parallel()
	inner := &usageStub{}
	gen := ai.NewInstrumented(inner, "stub", "m", logging.Nop())
	text, err := gen.Generate(context.Background(), "hi", nil)
	if err != nil || text != "usage:hi" {
		t.Fatalf("unexpected %q %v", text, err)
	}
	if inner.usageN != 1 || inner.generate != 0 {
		t.Fatalf("expected usage path, got usage=%d plain=%d", inner.usageN, inner.generate)
	}
}

func TestNoopAIAdapter(t *testing.T) {
	t.Parallel()
	gen := ai.NewNoopAIAdapter(logging.Nop())
	text, err := gen.Generate(context.Background(), "hi", nil)
	if err != nil || text != ai.NoopReply {
		t.Fatalf("unexpected %q %v", text, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := gen.Generate(ctx, "hi", nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestOpenAIAdapter_ChatCompletion(t *testing.T) {
	t.Parallel()
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Hello from Nyx."}}],
			"usage":{"prompt_tokens":12,"completion_tokens":4,"total_tokens":16}}`)
	}))
	defer srv.Close()

	gen, err := ai.NewOpenAIAdapter("sk-test", srv.URL, "gpt-4o-mini", "You are Nyx Ai.", 0.7)
	if err != nil {
		t.Fatal(err)
	}
	text, u, err := gen.GenerateWithUsage(context.Background(), "hi", []adapter.Turn{
		{Role: "user", Text: "earlier"},
		{Role: "model", Text: "reply"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Hello from Nyx." || u.TotalTokens != 16 {
		t.Fatalf("unexpected result %q %+v", text, u)
	}

	msgs, _ := body["messages"].([]any)
	if len(msgs) != 4 {
		t.Fatalf("expected system + 2 history + prompt, got %d", len(msgs))
	}
	roles := []string{"system", "user", "assistant", "user"}
	for i, m := range msgs {
		if role := m.(map[string]any)["role"]; role != roles[i] {
			t.Errorf("message %d role %v, want %s", i, role, roles[i])
		}
	}
}

func TestGeminiAdapter_GenerateContent(t *testing.T) {
	t.Parallel()
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Hi, "},{"text":"I am Nyx."}]}}],
			"usageMetadata":{"promptTokenCount":7,"candidatesTokenCount":5,"totalTokenCount":12}}`)
	}))
	defer srv.Close()

	ctx := context.Background()
	gen, err := ai.NewGeminiAdapter(ctx, "g-key", srv.URL+"/", "gemini-3-flash-preview", config.DefaultSystemInstruction, 0.7)
	if err != nil {
		t.Fatal(err)
	}
	text, u, err := gen.GenerateWithUsage(ctx, "who are you", []adapter.Turn{{Role: "user", Text: "hello"}, {Role: "model", Text: "hey"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Hi, I am Nyx." || u.TotalTokens != 12 {
		t.Fatalf("unexpected result %q %+v", text, u)
	}
	contents, _ := body["contents"].([]any)
	if len(contents) != 3 {
		t.Fatalf("expected 2 history turns + prompt, got %d", len(contents))
	}
	if _, ok := body["systemInstruction"]; !ok {
		t.Error("system instruction not sent")
	}
}

func TestNew_Factory(t *testing.T) {
	t.Parallel()
	gen, err := ai.New(context.Background(), config.AIConfig{Provider: "noop", ConcurrentLimit: 1}, logging.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if text, _ := gen.Generate(context.Background(), "x", nil); text != ai.NoopReply {
		t.Fatalf("unexpected reply %q", text)
	}
	if _, err := ai.New(context.Background(), config.AIConfig{Provider: "bard"}, logging.Nop()); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
