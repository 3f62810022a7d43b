package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"nyx-chat/internal/application"
	"nyx-chat/internal/usecase"
)

// Run shows the terminal UI until the user quits or ctx is cancelled.
func Run(ctx context.Context, client *application.Client) error {
	p := tea.NewProgram(NewModel(ctx, client), tea.WithAltScreen(), tea.WithContext(ctx))

	// Subscribers run on the notifying goroutine; Send is handed off so a slow
	// render loop never blocks the identity provider.
	unsub := client.Auth.Subscribe(func(usecase.AuthState) {
		go p.Send(authChangedMsg{})
	})
	defer unsub()

	_, err := p.Run()
	return err
}
