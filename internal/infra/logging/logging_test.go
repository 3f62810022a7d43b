//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nyx-chat/internal/config"
)

func TestWith_AttachesContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(config.LogConfig{Level: "debug", Format: "json"}, false, &buf)

	ctx := WithTraceID(context.Background(), "t-1")
	ctx = WithSessID(ctx, "s-1")
	With(ctx, base).Info().Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected json log line, got %q: %v", buf.String(), err)
	}
	if line["trace_id"] != "t-1" || line["session_id"] != "s-1" {
		t.Errorf("missing context fields: %v", line)
	}
	if _, ok := line["user_id"]; ok {
		t.Errorf("user_id must be absent when not set: %v", line)
	}
}

func TestNewWithWriter_Level(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(config.LogConfig{Level: "warn", Format: "json"}, false, &buf)
	l.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Errorf("info must be filtered at warn level, got %q", buf.String())
	}
	l.Warn().Msg("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Errorf("expected warn line, got %q", buf.String())
	}
}

func TestNew_File(t *testing.T) {
	p := filepath.Join(t.TempDir(), "logs", "nyx.log")
	l, closer, err := New(config.LogConfig{Level: "info", Format: "json", File: p}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l.Info().Msg("to file")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil || !strings.Contains(string(b), "to file") {
		t.Fatalf("expected log file content, got %q (%v)", b, err)
	}
}

func TestRedact(t *testing.T) {
	if got := Redact("ada@example.com", false); got != "ada@...om" {
		t.Errorf("unexpected redaction %q", got)
	}
	if got := Redact("short", false); got != "***" {
		t.Errorf("unexpected redaction %q", got)
	}
	if got := Redact("ada@example.com", true); got != "ada@example.com" {
		t.Errorf("dev mode must not redact, got %q", got)
	}
}
