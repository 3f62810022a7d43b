// Package ui is the terminal front end: splash, auth form, chat with a session
// sidebar, and the about screen. All state lives in the application client; the
// model only holds widgets and in-flight flags.
package ui

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"nyx-chat/internal/application"
	"nyx-chat/internal/domain/model"
	"nyx-chat/internal/usecase"
)

const (
	sidebarWidth = 32
	inputHeight  = 3
	minWidth     = 40
	minHeight    = 12
)

// Messages
type (
	splashDoneMsg  struct{}
	authReadyMsg   struct{}
	authChangedMsg struct{}
	authResultMsg  struct{ err error }
	signedOutMsg   struct{}
	replyMsg       struct{ reply model.Message }
)

type authField int

const (
	fieldEmail authField = iota
	fieldPassword
)

type Model struct {
	ctx    context.Context
	client *application.Client
	keys   keyMap

	width  int
	height int

	splashDone bool

	// auth form
	email     textinput.Model
	password  textinput.Model
	focus     authField
	signUp    bool
	authBusy  bool
	authError *usecase.AuthFailure
	popup     *providerFlow

	// chat
	input     textarea.Model
	viewport  viewport.Model
	spinner   spinner.Model
	sidebar   bool
	cursor    int
	chatError string
}

func NewModel(ctx context.Context, client *application.Client) Model {
	t := client.Text

	email := textinput.New()
	email.Placeholder = t.T("auth_email")
	email.CharLimit = 254
	email.Width = 36
	email.Focus()

	password := textinput.New()
	password.Placeholder = t.T("auth_password")
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 128
	password.Width = 36

	ta := textarea.New()
	ta.Placeholder = t.T("chat_placeholder")
	ta.ShowLineNumbers = false
	ta.Prompt = "▍ "
	ta.CharLimit = 8000
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = mutedStyle

	m := Model{
		ctx:      ctx,
		client:   client,
		keys:     newKeyMap(),
		width:    80,
		height:   24,
		email:    email,
		password: password,
		input:    ta,
		viewport: viewport.New(80, 16),
		spinner:  sp,
	}
	m.layout()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		splashTimer(m.client.Config().UI.SplashDuration),
		waitAuthReady(m.client.Auth.Ready()),
		m.spinner.Tick,
		textarea.Blink,
	)
}

func splashTimer(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return splashDoneMsg{} })
}

func waitAuthReady(ready <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ready
		return authReadyMsg{}
	}
}

func (m *Model) layout() {
	w, h := max(m.width, minWidth), max(m.height, minHeight)
	chatW := w
	if m.sidebar {
		chatW = w - sidebarWidth - 1
	}
	m.input.SetWidth(chatW - 2)
	m.viewport.Width = chatW
	// header (2) + input + help (2)
	m.viewport.Height = max(h-2-inputHeight-2, 3)
	m.refreshConversation()
}

// providerFlow is an interactive sign-in in progress. Model copies share it so the
// flow can be cancelled from any later Update.
type providerFlow struct {
	cancel context.CancelFunc

	mu  sync.Mutex
	url string
}

func (f *providerFlow) setURL(u string) {
	f.mu.Lock()
	f.url = u
	f.mu.Unlock()
}

func (f *providerFlow) URL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url
}

func (m Model) busy() bool {
	return m.client.Conversation.State() == usecase.StateAwaitingResponse
}
