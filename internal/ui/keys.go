package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit       key.Binding
	Submit     key.Binding
	NextField  key.Binding
	SwitchMode key.Binding
	Google     key.Binding
	Sidebar    key.Binding
	NewChat    key.Binding
	About      key.Binding
	SignOut    key.Binding
	Back       key.Binding
	Up         key.Binding
	Down       key.Binding
	Delete     key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Quit:       key.NewBinding(key.WithKeys("ctrl+c")),
		Submit:     key.NewBinding(key.WithKeys("enter")),
		NextField:  key.NewBinding(key.WithKeys("tab", "shift+tab", "up", "down")),
		SwitchMode: key.NewBinding(key.WithKeys("ctrl+t")),
		Google:     key.NewBinding(key.WithKeys("ctrl+g")),
		Sidebar:    key.NewBinding(key.WithKeys("ctrl+s")),
		NewChat:    key.NewBinding(key.WithKeys("ctrl+n")),
		About:      key.NewBinding(key.WithKeys("ctrl+a")),
		SignOut:    key.NewBinding(key.WithKeys("ctrl+o")),
		Back:       key.NewBinding(key.WithKeys("esc")),
		Up:         key.NewBinding(key.WithKeys("up", "k")),
		Down:       key.NewBinding(key.WithKeys("down", "j")),
		Delete:     key.NewBinding(key.WithKeys("d", "delete")),
		PageUp:     key.NewBinding(key.WithKeys("pgup")),
		PageDown:   key.NewBinding(key.WithKeys("pgdown")),
	}
}
