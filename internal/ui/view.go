package ui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"nyx-chat/internal/domain"
	"nyx-chat/internal/domain/model"
	"nyx-chat/internal/usecase"
)

func (m Model) View() string {
	if m.client.Router.Current() == usecase.ViewSplash {
		if m.splashDone && m.client.Auth.Initializing() {
			return m.center(m.spinner.View() + " " + mutedStyle.Render(m.client.Text.T("splash_initializing")))
		}
		return m.splashView()
	}
	switch m.client.Screen() {
	case usecase.ViewAuth:
		return m.authView()
	case usecase.ViewAbout:
		return m.aboutView()
	default:
		return m.chatView()
	}
}

func (m Model) center(s string) string {
	return lipgloss.Place(max(m.width, minWidth), max(m.height, minHeight), lipgloss.Center, lipgloss.Center, s)
}

func (m Model) splashView() string {
	t := m.client.Text
	body := lipgloss.JoinVertical(lipgloss.Center,
		splashTitleStyle.Render(t.T("splash_title")),
		"",
		faintStyle.Render(strings.ToUpper(t.T("splash_footer"))),
	)
	return m.center(body)
}

func (m Model) authView() string {
	t := m.client.Text
	var b strings.Builder

	b.WriteString(titleStyle.Render(t.T("app_name")) + "\n")
	if m.signUp {
		b.WriteString(mutedStyle.Render(t.T("auth_tagline_signup")) + "\n\n")
	} else {
		b.WriteString(mutedStyle.Render(t.T("auth_tagline_login")) + "\n\n")
	}

	if banner := m.configBanner(); banner != "" {
		b.WriteString(banner + "\n\n")
	}

	b.WriteString(m.email.View() + "\n")
	b.WriteString(m.password.View() + "\n\n")

	switch {
	case m.authBusy && m.popup != nil:
		b.WriteString(m.spinner.View() + " " + mutedStyle.Render(t.T("auth_working")) + "\n")
		if u := m.popup.URL(); u != "" {
			b.WriteString("\n" + faintStyle.Render(t.T("auth_open_url")) + "\n" + wrap(u, 60) + "\n")
		}
		b.WriteString(helpStyle.Render(t.T("auth_cancel_hint")))
	case m.authBusy:
		b.WriteString(m.spinner.View() + " " + mutedStyle.Render(t.T("auth_working")))
	case m.signUp:
		b.WriteString(buttonStyle.Render(t.T("auth_submit_signup")))
	default:
		b.WriteString(buttonStyle.Render(t.T("auth_submit_login")))
	}
	b.WriteString("\n")

	if f := m.authError; f != nil && f.Category == usecase.CategoryUserInput {
		b.WriteString("\n" + errorStyle.Render(f.Message) + "\n")
	}

	b.WriteString("\n" + mutedStyle.Render(t.T("auth_google")+" (ctrl+g)") + "\n")
	if m.signUp {
		b.WriteString(faintStyle.Render(t.T("auth_switch_to_login")+" (ctrl+t)") + "\n")
	} else {
		b.WriteString(faintStyle.Render(t.T("auth_switch_to_signup")+" (ctrl+t)") + "\n")
	}
	b.WriteString(helpStyle.Render(t.T("auth_help")))

	return m.center(formStyle.Render(b.String()))
}

// configBanner renders configuration-class problems: a sign-in failure that needs a
// settings change, or an identity provider that never answered.
func (m Model) configBanner() string {
	if f := m.authError; f != nil && f.Category == usecase.CategoryConfiguration {
		lines := []string{f.Message}
		if f.Remediation != "" {
			lines = append(lines, f.Remediation)
		}
		return bannerStyle.Render(strings.Join(lines, "\n"))
	}
	if diag := m.client.Auth.Diagnostic(); diag != nil {
		msg := diag.Error()
		if errors.Is(diag, domain.ErrIdentityUnresponsive) {
			msg = m.client.Text.T("auth_unresponsive")
		}
		return bannerStyle.Render(msg)
	}
	return ""
}

func (m Model) chatView() string {
	t := m.client.Text
	user := m.client.Auth.User()

	name := "User"
	if user != nil && user.Name != "" {
		name = user.Name
	}
	header := headerStyle.Width(m.viewport.Width).Render(
		lipgloss.JoinHorizontal(lipgloss.Top,
			titleStyle.Render(t.T("chat_header")),
			"  ",
			mutedStyle.Render(name),
		),
	)

	status := ""
	switch {
	case m.busy():
		status = m.spinner.View() + " " + mutedStyle.Render(t.T("chat_thinking"))
	case m.chatError != "":
		status = errorStyle.Render(m.chatError)
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		status,
		m.input.View(),
		helpStyle.Render(t.T("chat_help")),
	)
	if !m.sidebar {
		return main
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(), main)
}

func (m Model) sidebarView() string {
	t := m.client.Text
	var b strings.Builder

	b.WriteString(buttonStyle.Render("+ "+t.T("sidebar_new_chat")) + "\n\n")
	b.WriteString(faintStyle.Render(t.T("sidebar_history")) + "\n")

	sessions := m.client.Store.Sessions().All()
	if len(sessions) == 0 {
		b.WriteString(mutedStyle.Italic(true).Render(t.T("sidebar_empty")) + "\n")
	}
	width := sidebarWidth - 4
	for i, cs := range sessions {
		title := truncate(cs.Title, width)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> "+title) + "\n")
		} else {
			b.WriteString(mutedStyle.Render("  "+title) + "\n")
		}
	}

	b.WriteString("\n" + mutedStyle.Render(t.T("sidebar_about")+" (a)") + "\n")
	b.WriteString(mutedStyle.Render(t.T("sidebar_sign_out")+" (o)") + "\n")
	if u := m.client.Auth.User(); u != nil {
		b.WriteString("\n" + titleStyle.Render(truncate(u.Name, width)) + "\n")
		b.WriteString(faintStyle.Render(strings.ToUpper(t.T("sidebar_tagline"))) + "\n")
	}
	b.WriteString(helpStyle.Render(t.T("sidebar_help")))

	return sidebarStyle.Width(sidebarWidth).Height(max(m.height, minHeight)).Render(b.String())
}

func (m Model) aboutView() string {
	t := m.client.Text
	body := lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render(t.T("app_name")),
		faintStyle.Render("────"),
		"",
		lipgloss.NewStyle().Width(min(60, max(m.width-4, 20))).Align(lipgloss.Center).Render(strings.TrimSpace(t.About())),
		"",
		faintStyle.Render(t.T("about_made_with")),
		titleStyle.Render(t.T("about_by")),
		helpStyle.Render(t.T("about_help")),
	)
	return m.center(body)
}

// refreshConversation re-renders the active session into the viewport.
func (m *Model) refreshConversation() {
	t := m.client.Text
	msgs := m.client.ActiveMessages()
	width := max(m.viewport.Width, minWidth)

	if len(msgs) == 0 {
		name := "there"
		if u := m.client.Auth.User(); u != nil && u.Name != "" {
			name = u.Name
		}
		greeting := lipgloss.JoinVertical(lipgloss.Center,
			titleStyle.Render(t.T("chat_greeting", name)),
			mutedStyle.Render(t.T("chat_intro")),
		)
		m.viewport.SetContent(lipgloss.Place(width, m.viewport.Height, lipgloss.Center, lipgloss.Center, greeting))
		return
	}

	var b strings.Builder
	for _, msg := range msgs {
		b.WriteString(renderMessage(msg, width, t.T("chat_you"), t.T("chat_nyx")))
		b.WriteString("\n\n")
	}
	m.viewport.SetContent(strings.TrimRight(b.String(), "\n"))
}

func renderMessage(msg model.Message, width int, you, nyx string) string {
	bubbleW := max(width*3/4, 20)
	if msg.Role == model.RoleUser {
		label := faintStyle.Render(you)
		bubble := userBubbleStyle.MaxWidth(bubbleW).Render(wrap(msg.Content, bubbleW-2))
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, lipgloss.JoinVertical(lipgloss.Right, label, bubble))
	}
	label := faintStyle.Render(nyx)
	bubble := modelBubbleStyle.MaxWidth(bubbleW).Render(wrap(msg.Content, bubbleW-2))
	return lipgloss.JoinVertical(lipgloss.Left, label, bubble)
}

func wrap(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(s)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}
