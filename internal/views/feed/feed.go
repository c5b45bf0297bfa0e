// Package feed renders the recent visitor events list.
package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/saint0x/overwatch-demo/internal/normalize"
	"github.com/saint0x/overwatch-demo/internal/theme"
)

const placeWidth = 22

// Model holds the feed, newest first.
type Model struct {
	Events      []normalize.Event
	SelectedIdx int
	Width       int

	// Now is the clock used for relative timestamps.
	Now func() time.Time
}

// New creates an empty feed.
func New() Model {
	return Model{Now: time.Now}
}

// Add puts e at the top of the feed, keeping at most MaxRecentEvents.
func (m *Model) Add(e normalize.Event) {
	m.Events = normalize.PrependEvent(m.Events, e, normalize.MaxRecentEvents)
	m.clampSelection()
}

// Set replaces the feed, as after a snapshot.
func (m *Model) Set(events []normalize.Event) {
	if len(events) > normalize.MaxRecentEvents {
		events = events[:normalize.MaxRecentEvents]
	}
	m.Events = append([]normalize.Event(nil), events...)
	m.clampSelection()
}

// MoveDown advances the selection cursor.
func (m *Model) MoveDown() {
	if n := len(m.Events); n > 0 {
		m.SelectedIdx = (m.SelectedIdx + 1) % n
	}
}

// MoveUp moves the selection cursor back.
func (m *Model) MoveUp() {
	if n := len(m.Events); n > 0 {
		m.SelectedIdx = (m.SelectedIdx - 1 + n) % n
	}
}

// Selected returns the event under the cursor, if any.
func (m Model) Selected() (normalize.Event, bool) {
	if m.SelectedIdx >= 0 && m.SelectedIdx < len(m.Events) {
		return m.Events[m.SelectedIdx], true
	}
	return normalize.Event{}, false
}

func (m *Model) clampSelection() {
	if m.SelectedIdx >= len(m.Events) {
		m.SelectedIdx = max(len(m.Events)-1, 0)
	}
}

// View renders the feed.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	lines := []string{theme.StyleHeader.Render("Live activity")}
	if len(m.Events) == 0 {
		lines = append(lines, theme.StyleDimmed.Render("  Waiting for visitors..."))
	}
	for i, e := range m.Events {
		lines = append(lines, m.renderLine(e, i == m.SelectedIdx, width-4))
	}
	return theme.StyleBorder.Width(width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) renderLine(e normalize.Event, selected bool, width int) string {
	var b strings.Builder
	if selected {
		b.WriteString(theme.StyleSelected.Render("> "))
	} else {
		b.WriteString("  ")
	}

	actionStyle := lipgloss.NewStyle().Foreground(theme.ActionColor(e.Action))
	b.WriteString(actionStyle.Render(theme.ActionGlyph(e.Action)))
	b.WriteByte(' ')

	place := theme.Fit(Place(e), placeWidth)
	b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorBright).Render(place))

	b.WriteByte(' ')
	b.WriteString(actionStyle.Render(theme.Fit(e.Action, 8)))

	ago := formatAgo(m.now().Sub(time.UnixMilli(e.Timestamp)))
	pageWidth := max(width-2-2-placeWidth-1-8-1-len(ago)-1, 8)
	b.WriteByte(' ')
	b.WriteString(theme.Fit(e.Page, pageWidth))
	b.WriteByte(' ')
	b.WriteString(theme.StyleDimmed.Render(ago))
	return b.String()
}

// Place joins the known parts of an event's location, e.g. "Berlin, Germany"
// or just "Germany".
func Place(e normalize.Event) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{e.City, e.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func (m Model) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

// formatAgo renders an age as a compact string (e.g. "42s", "3m").
func formatAgo(d time.Duration) string {
	switch {
	case d < time.Second:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
}
