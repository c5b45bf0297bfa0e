// Package help renders the keyboard and channel reference overlay from
// Markdown.
package help

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/saint0x/overwatch-demo/internal/theme"
)

// Binding is one row of the key table.
type Binding struct {
	Keys string
	Desc string
}

// Model holds the help overlay content.
type Model struct {
	Bindings []Binding
	Channels []string
}

// New creates a help model.
func New(bindings []Binding, channels []string) Model {
	return Model{Bindings: bindings, Channels: channels}
}

// Markdown returns the overlay source.
func (m Model) Markdown() string {
	var b strings.Builder
	b.WriteString("# Overwatch Live\n\n")
	b.WriteString("Live visitor analytics streamed from the Overwatch daemon. ")
	b.WriteString("When the stream drops, the client reconnects on its own; ")
	b.WriteString("press `r` to pull a REST snapshot in the meantime.\n\n")

	b.WriteString("## Keys\n\n| Key | Action |\n|---|---|\n")
	for _, kb := range m.Bindings {
		fmt.Fprintf(&b, "| `%s` | %s |\n", kb.Keys, kb.Desc)
	}

	if len(m.Channels) > 0 {
		b.WriteString("\n## Channels\n\n")
		for _, ch := range m.Channels {
			fmt.Fprintf(&b, "- `%s`\n", ch)
		}
	}
	return b.String()
}

// View renders the overlay at the given width. A render failure falls back
// to the raw Markdown.
func (m Model) View(width int) string {
	innerW := max(width-6, 30)

	out := m.Markdown()
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(innerW),
	)
	if err == nil {
		if rendered, rerr := r.Render(out); rerr == nil {
			out = rendered
		}
	}

	footer := theme.StyleDimmed.Render("esc:close")
	return lipgloss.NewStyle().
		Width(innerW).
		Padding(0, 2).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(lipgloss.JoinVertical(lipgloss.Left, strings.TrimRight(out, "\n"), footer))
}
