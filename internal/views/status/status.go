package status

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/saint0x/overwatch-demo/internal/theme"
)

// Model holds the status bar state.
type Model struct {
	Connected    bool
	Reconnects   int
	SessionID    string
	EventCount   int
	LastSnapshot time.Time
	Width        int
}

// New creates a status bar model.
func New() Model {
	return Model{}
}

// SetConnected records a connection notification. Every drop counts as one
// scheduled reconnect.
func (m *Model) SetConnected(connected bool) {
	if m.Connected && !connected {
		m.Reconnects++
	}
	m.Connected = connected
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	var connStr string
	if m.Connected {
		connStr = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● Live")
	} else {
		connStr = lipgloss.NewStyle().Foreground(theme.ColorDanger).Bold(true).Render("○ DISCONNECTED")
		if m.Reconnects > 0 {
			connStr += theme.StyleDimmed.Render(fmt.Sprintf(" (reconnecting, %d drops)", m.Reconnects))
		}
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := connStr

	if m.SessionID != "" {
		content += sep + theme.StyleDimmed.Render(fmt.Sprintf("session %s  %d events", shortID(m.SessionID), m.EventCount))
	}
	if !m.LastSnapshot.IsZero() {
		content += sep + theme.StyleDimmed.Render("snapshot "+m.LastSnapshot.Format("15:04:05"))
	}

	bar := lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)

	return bar
}

func shortID(id string) string {
	if len(id) > 13 {
		return id[:13]
	}
	return id
}
