package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"nyx-chat/internal/domain/ports/adapter"
	"nyx-chat/internal/usecase"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case splashDoneMsg:
		m.splashDone = true
		if !m.client.Auth.Initializing() {
			m.client.SplashElapsed()
		}
		return m, nil

	case authReadyMsg:
		if m.splashDone {
			m.client.SplashElapsed()
		}
		return m, nil

	case authChangedMsg:
		m.refreshConversation()
		return m, nil

	case authResultMsg:
		m.authBusy, m.popup = false, nil
		var f *usecase.AuthFailure
		if errors.As(msg.err, &f) {
			m.authError = f
			return m, nil
		}
		m.authError = nil
		if m.client.Auth.SignedIn() {
			m.password.Reset()
			m.client.Router.Authenticated()
			m.refreshConversation()
		}
		return m, nil

	case signedOutMsg:
		m.sidebar = false
		m.layout()
		return m, nil

	case replyMsg:
		m.refreshConversation()
		m.viewport.GotoBottom()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		switch m.client.Screen() {
		case usecase.ViewAuth:
			return m.updateAuth(msg)
		case usecase.ViewChat:
			if m.sidebar {
				return m.updateSidebar(msg)
			}
			return m.updateChat(msg)
		case usecase.ViewAbout:
			if key.Matches(msg, m.keys.Back) {
				m.client.Router.Back()
			}
			return m, nil
		}
		return m, nil
	}

	// cursor blink and other widget messages
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.email, cmd = m.email.Update(msg)
	cmds = append(cmds, cmd)
	m.password, cmd = m.password.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) updateAuth(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.authBusy {
		// only the provider flow can be abandoned from here
		if key.Matches(msg, m.keys.Back) && m.popup != nil {
			m.popup.cancel()
		}
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, tea.Quit
	case key.Matches(msg, m.keys.NextField):
		if m.focus == fieldEmail {
			m.focus = fieldPassword
			m.email.Blur()
			return m, m.password.Focus()
		}
		m.focus = fieldEmail
		m.password.Blur()
		return m, m.email.Focus()
	case key.Matches(msg, m.keys.SwitchMode):
		m.signUp = !m.signUp
		m.authError = nil
		return m, nil
	case key.Matches(msg, m.keys.Google):
		m.authBusy, m.authError = true, nil
		cmd := m.signInWithProvider()
		return m, cmd
	case key.Matches(msg, m.keys.Submit):
		email, password := strings.TrimSpace(m.email.Value()), m.password.Value()
		if email == "" || password == "" {
			return m, nil
		}
		m.authBusy, m.authError = true, nil
		return m, m.submitCredentials(email, password, m.signUp)
	}

	var cmd tea.Cmd
	if m.focus == fieldEmail {
		m.email, cmd = m.email.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m Model) submitCredentials(email, password string, signUp bool) tea.Cmd {
	ctx, gate := m.ctx, m.client.Auth
	return func() tea.Msg {
		var err error
		if signUp {
			_, err = gate.SignUp(ctx, email, password)
		} else {
			_, err = gate.SignIn(ctx, email, password)
		}
		return authResultMsg{err: err}
	}
}

// signInWithProvider starts the browser flow on its own ctx. Cancelling it counts
// as the user closing the popup, which the gate reports as neither user nor error.
func (m *Model) signInWithProvider() tea.Cmd {
	ctx, cancel := context.WithCancel(m.ctx)
	flow := &providerFlow{cancel: cancel}
	m.popup = flow
	ctx = adapter.WithConsentURL(ctx, flow.setURL)

	gate := m.client.Auth
	return func() tea.Msg {
		defer cancel()
		_, err := gate.SignInWithProvider(ctx)
		return authResultMsg{err: err}
	}
}

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Sidebar):
		m.sidebar = true
		m.cursor = m.activeIndex()
		m.layout()
		return m, nil
	case key.Matches(msg, m.keys.NewChat):
		m.client.NewChat()
		m.refreshConversation()
		return m, nil
	case key.Matches(msg, m.keys.About):
		m.client.Router.ShowAbout()
		return m, nil
	case key.Matches(msg, m.keys.SignOut):
		return m, m.signOut()
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		return m.send()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// send hands the typed text to the conversation controller. While a reply is pending
// the controller refuses and the text stays in the box.
func (m Model) send() (tea.Model, tea.Cmd) {
	conv := m.client.Conversation
	conv.SetInput(m.input.Value())
	ex, ok := conv.Submit(m.ctx)
	if !ok {
		return m, nil
	}
	m.input.Reset()
	m.refreshConversation()
	m.viewport.GotoBottom()

	ctx := m.ctx
	return m, tea.Batch(
		func() tea.Msg { return replyMsg{reply: ex.Await(ctx)} },
		m.spinner.Tick,
	)
}

func (m Model) signOut() tea.Cmd {
	ctx, c := m.ctx, m.client
	return func() tea.Msg {
		c.SignOut(ctx)
		return signedOutMsg{}
	}
}

func (m Model) updateSidebar(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sessions := m.client.Store.Sessions().All()
	switch {
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Sidebar):
		m.sidebar = false
		m.layout()
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(sessions)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Submit):
		if m.cursor < len(sessions) {
			if _, err := m.client.SelectChat(sessions[m.cursor].ID); err != nil {
				m.chatError = err.Error()
			}
		}
		m.sidebar = false
		m.layout()
		m.viewport.GotoBottom()
	case key.Matches(msg, m.keys.Delete):
		if m.cursor < len(sessions) {
			if err := m.client.DeleteChat(m.ctx, sessions[m.cursor].ID); err != nil {
				m.chatError = err.Error()
			}
			if m.cursor > 0 && m.cursor >= len(sessions)-1 {
				m.cursor--
			}
			m.refreshConversation()
		}
	case key.Matches(msg, m.keys.NewChat), msg.String() == "n":
		m.client.NewChat()
		m.sidebar = false
		m.layout()
	case key.Matches(msg, m.keys.About), msg.String() == "a":
		m.sidebar = false
		m.layout()
		m.client.Router.ShowAbout()
	case key.Matches(msg, m.keys.SignOut), msg.String() == "o":
		return m, m.signOut()
	}
	return m, nil
}

func (m Model) activeIndex() int {
	id := m.client.Store.ActiveID()
	for i, cs := range m.client.Store.Sessions().All() {
		if cs.ID == id {
			return i
		}
	}
	return 0
}
