//go:build !integration

package i18n

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestTranslator(t *testing.T) {
	// --- Arrange ---
	contentBytes := []byte("greeting: سلام\nwelcome_user: سلام %s")
	translator, err := newTranslatorFromBytes(contentBytes)
	if err != nil {
		t.Fatalf("newTranslatorFromBytes failed: %v", err)
	}

	t.Run("should translate a simple key", func(t *testing.T) {
		got := translator.T("greeting")
		want := "سلام"
		if got != want {
			t.Errorf("wanted '%s', got '%s'", want, got)
		}
	})

	t.Run("should return key if not found", func(t *testing.T) {
		got := translator.T("nonexistent_key")
		want := "nonexistent_key"
		if got != want {
			t.Errorf("wanted '%s', got '%s'", want, got)
		}
	})

	t.Run("should format arguments correctly", func(t *testing.T) {
		got := translator.T("welcome_user", "Ali")
		want := "سلام Ali"
		if got != want {
			t.Errorf("wanted '%s', got '%s'", want, got)
		}
	})
}

func TestNewTranslator_FS(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/de.yaml":      {Data: []byte("chat_placeholder: \"Nachricht an Nyx...\"")},
		"locales/about-de.txt": {Data: []byte("Hallo")},
		"locales/xx.yaml":      {Data: []byte("a: b")},
	}

	t.Run("should load strings and about text", func(t *testing.T) {
		tr, err := NewTranslator(fsys, "de")
		if err != nil {
			t.Fatal(err)
		}
		if got := tr.T("chat_placeholder"); got != "Nachricht an Nyx..." {
			t.Errorf("got %q", got)
		}
		if tr.About() != "Hallo" {
			t.Errorf("got about %q", tr.About())
		}
	})

	t.Run("should fail without about text", func(t *testing.T) {
		if _, err := NewTranslator(fsys, "xx"); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestNew_Embedded(t *testing.T) {
	t.Run("english ships", func(t *testing.T) {
		tr, err := New("en")
		if err != nil {
			t.Fatal(err)
		}
		if got := tr.T("chat_placeholder"); got != "Message Nyx..." {
			t.Errorf("got %q", got)
		}
		if got := tr.T("chat_greeting", "ada"); got != "Hello, ada" {
			t.Errorf("got %q", got)
		}
		if !strings.Contains(tr.About(), "RutuDev Studio") {
			t.Errorf("about text missing studio name")
		}
	})

	t.Run("unknown language falls back to english", func(t *testing.T) {
		tr, err := New("tlh")
		if err != nil {
			t.Fatal(err)
		}
		if got := tr.T("sidebar_new_chat"); got != "New Chat" {
			t.Errorf("got %q", got)
		}
	})
}
