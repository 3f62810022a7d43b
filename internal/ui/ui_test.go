//go:build !integration

package ui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"nyx-chat/internal/application"
	"nyx-chat/internal/config"
	"nyx-chat/internal/domain/ports/adapter"
	"nyx-chat/internal/infra/adapters/identity"
	"nyx-chat/internal/infra/i18n"
	"nyx-chat/internal/infra/logging"
	"nyx-chat/internal/infra/storage"
	"nyx-chat/internal/usecase"
)

type stubAI struct{ reply string }

func (s stubAI) Generate(ctx context.Context, prompt string, history []adapter.Turn) (string, error) {
	return s.reply, nil
}

func newTestClient(t *testing.T) *application.Client {
	t.Helper()
	return newTestClientWith(t, nil)
}

// newTestClientWith lets a test decorate the local identity provider.
func newTestClientWith(t *testing.T, wrap func(*identity.LocalProvider) adapter.IdentityProvider) *application.Client {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "nyx.yaml")
	yml := "storage:\n  dir: " + dir + "\nai:\n  provider: noop\nidentity:\n  provider: local\nui:\n  splash_duration: 10ms\n"
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.LoadConfig(path, false)
	if err != nil {
		t.Fatal(err)
	}
	slot, err := storage.NewFileSlot(dir)
	if err != nil {
		t.Fatal(err)
	}
	idp, err := identity.NewLocalProvider(identity.LocalOptions{Slot: slot, AuthKey: cfg.Storage.AuthKey}, logging.Nop())
	if err != nil {
		t.Fatal(err)
	}
	var idpPort adapter.IdentityProvider = idp
	if wrap != nil {
		idpPort = wrap(idp)
	}
	tr, err := i18n.New("en")
	if err != nil {
		t.Fatal(err)
	}
	c := application.NewClient(application.Deps{
		Config:     cfg,
		Logger:     logging.Nop(),
		Slot:       slot,
		AI:         stubAI{reply: "Hi there"},
		Identity:   idpPort,
		Translator: tr,
	})
	t.Cleanup(func() { _ = c.Close() })
	c.Start(context.Background())
	<-c.Auth.Ready()
	return c
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// drain runs cmd and feeds every message it yields back into the model, skipping
// the periodic widget ticks.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			m = drain(t, m, c)
		}
	case authResultMsg, replyMsg, signedOutMsg:
		m, _ = send(t, m, msg)
	}
	return m
}

func keyRunes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func TestModel_Flow(t *testing.T) {
	c := newTestClient(t)
	m := NewModel(context.Background(), c)
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	// --- Splash ---
	if !strings.Contains(m.View(), c.Text.T("splash_title")) {
		t.Fatalf("splash not rendered:\n%s", m.View())
	}
	m, _ = send(t, m, authReadyMsg{})
	if c.Screen() != usecase.ViewSplash {
		t.Fatal("auth readiness alone must not leave the splash")
	}
	m, _ = send(t, m, splashDoneMsg{})
	if got := c.Screen(); got != usecase.ViewAuth {
		t.Fatalf("expected auth, got %s", got)
	}

	// --- Sign up ---
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	if !m.signUp {
		t.Fatal("ctrl+t must switch to sign up")
	}
	m.email.SetValue("ada@example.com")
	m.password.SetValue("123")
	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = drain(t, m, cmd)
	if m.authError == nil || m.authError.Category != usecase.CategoryUserInput {
		t.Fatalf("weak password must be an inline error, got %+v", m.authError)
	}
	if !strings.Contains(m.View(), m.authError.Message) {
		t.Fatal("inline error not rendered")
	}

	m.password.SetValue("secret123")
	m, cmd = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = drain(t, m, cmd)
	if got := c.Screen(); got != usecase.ViewChat {
		t.Fatalf("expected chat after sign up, got %s", got)
	}
	m, _ = send(t, m, authChangedMsg{})
	if !strings.Contains(m.View(), "Hello, ada") {
		t.Fatalf("greeting missing:\n%s", m.View())
	}

	// --- Send a message ---
	m.input.SetValue("Hello Nyx")
	m, cmd = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.input.Value() != "" {
		t.Fatal("input must be cleared after submit")
	}
	m = drain(t, m, cmd)
	msgs := c.ActiveMessages()
	if len(msgs) != 2 || msgs[1].Content != "Hi there" {
		t.Fatalf("unexpected conversation %+v", msgs)
	}
	if !strings.Contains(m.View(), "Hi there") {
		t.Fatalf("reply not rendered:\n%s", m.View())
	}
	firstID := c.Store.ActiveID()

	// --- Sidebar ---
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if !m.sidebar || !strings.Contains(m.View(), "Hello Nyx") {
		t.Fatalf("sidebar must list the session:\n%s", m.View())
	}
	m, _ = send(t, m, keyRunes("n"))
	if c.Store.ActiveID() != "" || m.sidebar {
		t.Fatal("new chat must clear the active session and close the sidebar")
	}
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if c.Store.ActiveID() != firstID {
		t.Fatalf("select: active %q, want %q", c.Store.ActiveID(), firstID)
	}

	// --- About and back ---
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlA})
	if c.Screen() != usecase.ViewAbout || !strings.Contains(m.View(), "RutuDev Studio") {
		t.Fatalf("about not shown:\n%s", m.View())
	}
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if c.Screen() != usecase.ViewChat {
		t.Fatalf("esc must return to chat, got %s", c.Screen())
	}

	// --- Delete from the sidebar ---
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	m, _ = send(t, m, keyRunes("d"))
	if c.Store.Sessions().Len() != 0 || c.Store.ActiveID() != "" {
		t.Fatal("delete must remove the session and clear the active id")
	}
	if !strings.Contains(m.View(), c.Text.T("sidebar_empty")) {
		t.Fatal("empty history placeholder missing")
	}
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	// --- Sign out ---
	m, cmd = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	m = drain(t, m, cmd)
	if got := c.Screen(); got != usecase.ViewAuth {
		t.Fatalf("expected auth after sign out, got %s", got)
	}
	if m.sidebar {
		t.Fatal("sidebar must close on sign out")
	}
}

func TestModel_EmptyInputIsIgnored(t *testing.T) {
	c := newTestClient(t)
	if _, err := c.Auth.SignUp(context.Background(), "bo@example.com", "secret123"); err != nil {
		t.Fatal(err)
	}
	m := NewModel(context.Background(), c)
	m, _ = send(t, m, splashDoneMsg{})
	if c.Screen() != usecase.ViewChat {
		t.Fatalf("signed-in user must land on chat, got %s", c.Screen())
	}

	m.input.SetValue("   ")
	_, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatal("blank input must not start an exchange")
	}
	if c.Store.Sessions().Len() != 0 {
		t.Fatal("blank input must not create a session")
	}
}

// browserIdentity stands in for a provider whose popup waits on the user's browser.
type browserIdentity struct {
	*identity.LocalProvider
	started chan struct{}
}

const consentURL = "https://accounts.example.com/consent"

func (b browserIdentity) SignInWithPopup(ctx context.Context) (*adapter.ProviderUser, error) {
	adapter.ReportConsentURL(ctx, consentURL)
	close(b.started)
	<-ctx.Done()
	return nil, adapter.NewAuthError(adapter.AuthPopupClosed, ctx.Err())
}

func TestModel_CancelProviderSignIn(t *testing.T) {
	started := make(chan struct{})
	c := newTestClientWith(t, func(lp *identity.LocalProvider) adapter.IdentityProvider {
		return browserIdentity{LocalProvider: lp, started: started}
	})
	m := NewModel(context.Background(), c)
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = send(t, m, splashDoneMsg{})
	if c.Screen() != usecase.ViewAuth {
		t.Fatalf("expected auth, got %s", c.Screen())
	}

	// --- Start the browser flow ---
	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyCtrlG})
	if !m.authBusy || cmd == nil {
		t.Fatal("ctrl+g must start the provider flow")
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("provider flow never started")
	}
	if !strings.Contains(m.View(), consentURL) {
		t.Fatalf("consent url not shown:\n%s", m.View())
	}

	// --- Esc abandons it ---
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	var result tea.Msg
	select {
	case result = <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("esc did not cancel the provider flow")
	}
	m, _ = send(t, m, result)

	if m.authBusy || m.popup != nil {
		t.Fatal("form must be usable again")
	}
	if m.authError != nil {
		t.Fatalf("a closed popup is not an error, got %+v", m.authError)
	}
	if c.Screen() != usecase.ViewAuth || c.Auth.SignedIn() {
		t.Fatal("cancelled flow must leave the user signed out on auth")
	}
	if strings.Contains(m.View(), consentURL) {
		t.Fatal("consent url must disappear once the flow ends")
	}
}
