// Package dashboard provides the headline stats row, the device split and
// the performance gauge for the Overwatch live dashboard.
package dashboard

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"github.com/saint0x/overwatch-demo/internal/normalize"
	"github.com/saint0x/overwatch-demo/internal/theme"
)

// FPS is the gauge animation rate.
const FPS = 30

// Model holds the dashboard state.
type Model struct {
	Width int

	Metrics     normalize.Metrics
	Devices     normalize.DeviceBreakdown
	Performance normalize.PerformanceState
	LastSample  normalize.PerformanceSample

	spring   harmonica.Spring
	gauge    float64
	velocity float64
}

// New creates a dashboard model with placeholder values.
func New() Model {
	return Model{
		Metrics: normalize.InitialMetrics(),
		spring:  harmonica.NewSpring(harmonica.FPS(FPS), 6.0, 0.6),
	}
}

// ApplyMetrics folds a metrics notification into the held counters.
func (m *Model) ApplyMetrics(u normalize.MetricsUpdate) {
	m.Metrics = m.Metrics.Merge(u)
}

// SetDevices replaces the device split.
func (m *Model) SetDevices(d normalize.DeviceBreakdown) {
	m.Devices = d
}

// ApplyPerformance folds one web-vital sample into the score.
func (m *Model) ApplyPerformance(s normalize.PerformanceSample) {
	m.Performance = m.Performance.Apply(s)
	m.LastSample = s
}

// ApplySnapshot replaces everything the dashboard shows with a snapshot
// bundle.
func (m *Model) ApplySnapshot(d normalize.RealtimeData) {
	m.Metrics = d.Metrics
	m.Devices = d.Devices
	m.Performance = d.Performance
}

// Animate advances the score gauge one frame toward the current score and
// reports whether it is still moving.
func (m *Model) Animate() bool {
	target := float64(m.Performance.Score)
	m.gauge, m.velocity = m.spring.Update(m.gauge, m.velocity, target)
	if math.Abs(m.gauge-target) < 0.05 && math.Abs(m.velocity) < 0.05 {
		m.gauge, m.velocity = target, 0
		return false
	}
	return true
}

// Gauge returns the displayed (animated) score.
func (m Model) Gauge() float64 { return m.gauge }

// View renders the full dashboard: stats row, devices and performance.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	sections := []string{
		m.renderStatsRow(width),
		lipgloss.JoinHorizontal(lipgloss.Top,
			m.renderDevices(width/2),
			m.renderPerformance(width-width/2),
		),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderStatsRow shows the headline counters in a single row.
func (m Model) renderStatsRow(width int) string {
	statStyle := lipgloss.NewStyle().Padding(0, 1)

	stats := []string{
		statStyle.Foreground(theme.ColorBright).Bold(true).Render(
			fmt.Sprintf("Active users: %s", formatCount(m.Metrics.ActiveUsers))),
		statStyle.Foreground(theme.ColorAccent).Render(
			fmt.Sprintf("Page views: %s", formatCount(m.Metrics.PageViews))),
		statStyle.Foreground(theme.ColorAccentSoft).Render(
			fmt.Sprintf("Avg session: %s", m.Metrics.AvgDuration)),
	}

	content := strings.Join(stats, lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | "))

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}

func (m Model) renderDevices(width int) string {
	barWidth := max(width-20, 8)
	rows := []struct {
		label string
		pct   int
		color lipgloss.Color
	}{
		{"Desktop", m.Devices.Desktop, theme.ColorDesktop},
		{"Mobile", m.Devices.Mobile, theme.ColorMobile},
		{"Tablet", m.Devices.Tablet, theme.ColorTablet},
	}

	lines := []string{theme.StyleHeader.Render("Devices")}
	for _, r := range rows {
		label := theme.StyleDimmed.Width(9).Render(r.label)
		lines = append(lines, label+renderBar(float64(r.pct)/100, barWidth, r.color))
	}
	return theme.StyleBorder.Width(width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) renderPerformance(width int) string {
	barWidth := max(width-20, 8)
	score := int(math.Round(m.gauge))
	color := theme.ScoreColor(m.Performance.Score)

	pm := m.Performance.Metrics
	lines := []string{
		theme.StyleHeader.Render("Performance"),
		theme.StyleDimmed.Width(9).Render("Score") + renderBar(m.gauge/100, barWidth, color),
		lipgloss.NewStyle().Foreground(color).Bold(true).Render(fmt.Sprintf("%d / 100", score)),
		theme.StyleDimmed.Render(fmt.Sprintf("FCP %.2fs  LCP %.2fs  CLS %.3f  FID %.0fms", pm.FCP, pm.LCP, pm.CLS, pm.FID)),
	}
	if s := m.LastSample; s.MetricName != "" {
		rating := lipgloss.NewStyle().Foreground(theme.RatingColor(s.Rating)).Render(s.Rating)
		lines = append(lines, theme.StyleDimmed.Render(fmt.Sprintf("last: %s %.2f ", strings.ToUpper(s.MetricName), s.Value))+rating)
	}
	return theme.StyleBorder.Width(width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// renderBar draws a horizontal share bar with a percentage label.
func renderBar(frac float64, barWidth int, color lipgloss.Color) string {
	if barWidth < 8 {
		barWidth = 8
	}

	// Reserve space for the label (e.g. " 100%").
	labelWidth := 5
	fillWidth := max(barWidth-labelWidth, 3)

	filled := max(0, min(int(math.Round(frac*float64(fillWidth))), fillWidth))
	empty := fillWidth - filled

	bar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled))
	bar += lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(strings.Repeat("░", empty))
	label := fmt.Sprintf(" %3.0f%%", frac*100)

	return bar + lipgloss.NewStyle().Foreground(color).Render(label)
}

// formatCount formats large numbers with K/M suffixes.
func formatCount(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}
