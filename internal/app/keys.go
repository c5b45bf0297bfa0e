package app

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/saint0x/overwatch-demo/internal/views/help"
)

// KeyMap defines all keyboard bindings for the dashboard.
type KeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Enter   key.Binding
	Escape  key.Binding
	Quit    key.Binding
	Refresh key.Binding
	Debug   key.Binding
	Help    key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "prev event"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "next event"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "track click on event"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close overlay"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh snapshot"),
		),
		Debug: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "connection log"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

// HelpBindings lists the bindings for the help overlay.
func (k KeyMap) HelpBindings() []help.Binding {
	all := []key.Binding{k.Up, k.Down, k.Enter, k.Refresh, k.Debug, k.Help, k.Escape, k.Quit}
	out := make([]help.Binding, 0, len(all))
	for _, b := range all {
		h := b.Help()
		out = append(out, help.Binding{Keys: h.Key, Desc: h.Desc})
	}
	return out
}
