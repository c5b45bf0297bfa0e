// Package theme provides the Lip Gloss color palette and reusable styles
// for the Overwatch live dashboard. It is a leaf package with no internal
// imports to avoid import cycles.
package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Brand colors. Accent matches the first geographic palette entry.
var (
	ColorAccent     = lipgloss.Color("#3B82F6")
	ColorAccentSoft = lipgloss.Color("#93c5fd")
)

// Device colors.
var (
	ColorDesktop = lipgloss.Color("#3B82F6")
	ColorMobile  = lipgloss.Color("#22c55e")
	ColorTablet  = lipgloss.Color("#a855f7")
)

// Score bands, matching the web-vital ratings.
var (
	ColorGood    = lipgloss.Color("#22c55e") // >= 90
	ColorImprove = lipgloss.Color("#d97706") // 50-89
	ColorPoor    = lipgloss.Color("#dc2626") // < 50
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
	ColorInfo    = lipgloss.Color("#2563eb")
	ColorNav     = lipgloss.Color("#7c3aed")
)

// ScoreColor returns the band color for a 0-100 performance score.
func ScoreColor(score int) lipgloss.Color {
	switch {
	case score >= 90:
		return ColorGood
	case score >= 50:
		return ColorImprove
	default:
		return ColorPoor
	}
}

// RatingColor returns the color for a web-vital rating string.
func RatingColor(rating string) lipgloss.Color {
	switch rating {
	case "good":
		return ColorGood
	case "needs-improvement":
		return ColorImprove
	case "poor":
		return ColorPoor
	default:
		return ColorDimmed
	}
}

// ActionColor returns the color for a feed action verb.
func ActionColor(action string) lipgloss.Color {
	switch action {
	case "viewed":
		return ColorAccentSoft
	case "clicked":
		return ColorWarning
	default:
		return ColorDimmed
	}
}

// ActionGlyph returns a Unicode glyph for a feed action verb.
func ActionGlyph(action string) string {
	switch action {
	case "viewed":
		return "◉"
	case "clicked":
		return "⌖"
	default:
		return "·"
	}
}

// Fit truncates s to width terminal cells, ending in "…" when cut, and
// pads it with spaces to exactly width cells.
func Fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = ansi.Truncate(s, width, "…")
	if w := lipgloss.Width(s); w < width {
		s += strings.Repeat(" ", width-w)
	}
	return s
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
		Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorBright)
)
