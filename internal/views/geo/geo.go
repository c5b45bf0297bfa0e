// Package geo renders the live geographic breakdown: one line per country
// with a position marker showing its share of the listed visitors.
package geo

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/saint0x/overwatch-demo/internal/normalize"
	"github.com/saint0x/overwatch-demo/internal/theme"
)

const nameWidth = 18

// Model holds the geographic view state.
type Model struct {
	Entries []normalize.GeoEntry
	Width   int
}

// New creates an empty geographic view.
func New() Model {
	return Model{}
}

// Set replaces the rows. The daemon already orders them.
func (m *Model) Set(entries []normalize.GeoEntry) {
	m.Entries = entries
}

// Total returns the visitor count across all rows.
func (m Model) Total() int {
	total := 0
	for _, e := range m.Entries {
		total += e.Count
	}
	return total
}

// View renders the country list.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	lines := []string{theme.StyleHeader.Render("Top locations")}
	if len(m.Entries) == 0 {
		lines = append(lines, theme.StyleDimmed.Render("  No visitors yet"))
	}

	total := m.Total()
	for i, e := range m.Entries {
		lines = append(lines, renderLine(i, e, total, width-4))
	}
	return theme.StyleBorder.Width(width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// renderLine renders one country: rank, code, padded name, share track and
// count.
func renderLine(idx int, e normalize.GeoEntry, total, width int) string {
	name := displayName(e, nameWidth)
	rightSide := fmt.Sprintf(" %6s", formatCount(e.Count))

	// Layout: rank(2) + sep(2) + code(3) + name + space + [track] + rightSide
	trackWidth := width - 2 - 2 - 3 - nameWidth - 1 - len(rightSide)
	if trackWidth < 10 {
		trackWidth = 10
	}

	share := 0.0
	if total > 0 {
		share = float64(e.Count) / float64(total)
	}

	color := lipgloss.Color(e.Color)
	if e.Color == "" {
		color = theme.ColorAccent
	}

	var b strings.Builder
	b.WriteString(theme.StyleDimmed.Render(fmt.Sprintf("%2d", idx+1)))
	b.WriteString("│ ")
	b.WriteString(lipgloss.NewStyle().Foreground(color).Bold(true).Render(fmt.Sprintf("%-3s", e.Code)))
	b.WriteString(theme.Fit(name, nameWidth))
	b.WriteByte(' ')
	b.WriteString(renderShareTrack(share, trackWidth, color))
	b.WriteString(theme.StyleDimmed.Render(rightSide))
	return b.String()
}

// renderShareTrack draws a dotted track with a marker at the share position.
func renderShareTrack(share float64, width int, color lipgloss.Color) string {
	if width <= 0 {
		return ""
	}

	pos := int(share * float64(width-1))
	pos = max(0, min(pos, width-1))

	dimStyle := lipgloss.NewStyle().Foreground(theme.ColorDimmed)
	posStyle := lipgloss.NewStyle().Foreground(color).Bold(true)

	var b strings.Builder
	for i := 0; i < width; i++ {
		if i == pos {
			b.WriteString(posStyle.Render("●"))
		} else {
			b.WriteString(dimStyle.Render("·"))
		}
	}
	return b.String()
}

func displayName(e normalize.GeoEntry, maxLen int) string {
	name := e.Country
	if name == "" {
		name = e.Code
	}
	return ansi.Truncate(name, maxLen, "…")
}

func formatCount(n int) string {
	if n >= 1000 {
		return fmt.Sprintf("%dK", n/1000)
	}
	return fmt.Sprintf("%d", n)
}
