// Package debug renders the connection log overlay. The top half tracks the
// realtime link: current state, drop history and when the next reconnect
// attempt is due. Below it is the activity log, with consecutive repeats of
// the same line folded together.
package debug

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/saint0x/overwatch-demo/internal/theme"
)

// Kind tags a log line with the subsystem that produced it.
type Kind string

const (
	KindWS       Kind = "ws"
	KindSnapshot Kind = "snap"
	KindTrack    Kind = "trk"
	KindError    Kind = "err"
)

// kinds fixes the order of the totals line.
var kinds = []Kind{KindWS, KindSnapshot, KindTrack, KindError}

const (
	maxEntries     = 200
	maxTransitions = 12

	// rows taken by everything but the log body
	chromeRows = 9
)

// Entry is one log line. Repeat counts the consecutive identical lines
// folded into it; Time is the latest of them.
type Entry struct {
	Time    time.Time
	Kind    Kind
	Message string
	Repeat  int
}

// Transition is a change of the link between up and down.
type Transition struct {
	At        time.Time
	Connected bool
}

// Model holds the overlay state.
type Model struct {
	Entries     []Entry
	Transitions []Transition
	Counts      map[Kind]int

	// Drops counts up→down transitions; FailedRetries counts down
	// notifications that arrive while already down.
	Drops         int
	FailedRetries int

	// Offset is how many log rows the view is scrolled back.
	Offset int

	lastDown       time.Time
	reconnectDelay time.Duration
	now            func() time.Time
}

// New creates an empty overlay for a client that waits reconnectDelay
// between attempts.
func New(reconnectDelay time.Duration) Model {
	return Model{
		Counts:         map[Kind]int{},
		reconnectDelay: reconnectDelay,
		now:            time.Now,
	}
}

func (m *Model) clock() time.Time {
	if m.now == nil {
		m.now = time.Now
	}
	return m.now()
}

// Add logs a line and jumps back to the newest row.
func (m *Model) Add(kind Kind, message string) {
	m.add(m.clock(), kind, message)
}

func (m *Model) add(at time.Time, kind Kind, message string) {
	if m.Counts == nil {
		m.Counts = map[Kind]int{}
	}
	m.Counts[kind]++
	m.Offset = 0

	if n := len(m.Entries); n > 0 {
		if last := &m.Entries[n-1]; last.Kind == kind && last.Message == message {
			last.Time = at
			last.Repeat++
			return
		}
	}
	m.Entries = append(m.Entries, Entry{Time: at, Kind: kind, Message: message, Repeat: 1})
	if over := len(m.Entries) - maxEntries; over > 0 {
		m.Entries = append(m.Entries[:0], m.Entries[over:]...)
	}
}

// Connected reports the last known link state; false before the first
// notification.
func (m Model) Connected() bool {
	n := len(m.Transitions)
	return n > 0 && m.Transitions[n-1].Connected
}

// Connection records a connection notification and logs it.
func (m *Model) Connection(connected bool) {
	at := m.clock()
	was, known := m.Connected(), len(m.Transitions) > 0

	switch {
	case connected && (!known || !was):
		m.record(at, true)
		m.add(at, KindWS, "subscribed")
	case connected:
		m.add(at, KindWS, "subscribed")
	case !known || was:
		if was {
			m.Drops++
		}
		m.lastDown = at
		m.record(at, false)
		m.add(at, KindWS, "connection lost, reconnect scheduled")
	default:
		m.FailedRetries++
		m.lastDown = at
		m.add(at, KindWS, "reconnect failed, rescheduled")
	}
}

func (m *Model) record(at time.Time, connected bool) {
	m.Transitions = append(m.Transitions, Transition{At: at, Connected: connected})
	if over := len(m.Transitions) - maxTransitions; over > 0 {
		m.Transitions = append(m.Transitions[:0], m.Transitions[over:]...)
	}
}

// NextAttempt reports when the pending reconnect fires. ok is false while
// the link is up or before it has ever gone down.
func (m Model) NextAttempt() (at time.Time, ok bool) {
	if m.Connected() || m.lastDown.IsZero() {
		return time.Time{}, false
	}
	return m.lastDown.Add(m.reconnectDelay), true
}

// ScrollUp moves toward older rows.
func (m *Model) ScrollUp(n int) {
	m.Offset = max(0, min(m.Offset+n, len(m.Entries)-1))
}

// ScrollDown moves toward newer rows.
func (m *Model) ScrollDown(n int) {
	m.Offset = max(0, m.Offset-n)
}

// View renders the overlay into a width×height box.
func (m Model) View(width, height int) string {
	inner := max(width-6, 30)
	now := m.clock()

	sections := []string{
		theme.StyleHeader.Render(" CONNECTION LOG "),
		m.linkLine(now),
		m.historyLine(),
		m.totalsLine(),
		"",
	}
	sections = append(sections, m.logRows(inner, max(height-chromeRows, 3))...)
	sections = append(sections, theme.StyleDimmed.Render(
		fmt.Sprintf("j/k:scroll  esc:close  %d lines", len(m.Entries))))

	return theme.StyleBorder.
		Width(inner + 2).
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) linkLine(now time.Time) string {
	if len(m.Transitions) == 0 {
		return theme.StyleDimmed.Render("◌ connecting")
	}
	last := m.Transitions[len(m.Transitions)-1]
	drops := fmt.Sprintf("%d drops", m.Drops)
	if m.FailedRetries > 0 {
		drops += fmt.Sprintf(", %d failed retries", m.FailedRetries)
	}

	if last.Connected {
		up := lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● subscribed")
		return fmt.Sprintf("%s since %s (%s) · %s",
			up, last.At.Format("15:04:05"), now.Sub(last.At).Truncate(time.Second), drops)
	}

	down := lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("○ down")
	retry := "retrying"
	if at, ok := m.NextAttempt(); ok && at.After(now) {
		retry = fmt.Sprintf("retry in %.1fs (%s)", at.Sub(now).Seconds(), at.Format("15:04:05"))
	}
	return fmt.Sprintf("%s since %s · %s · %s",
		down, last.At.Format("15:04:05"), lipgloss.NewStyle().Foreground(theme.ColorWarning).Render(retry), drops)
}

// historyLine is a strip of the recent transitions, oldest first.
func (m Model) historyLine() string {
	if len(m.Transitions) == 0 {
		return ""
	}
	up := lipgloss.NewStyle().Foreground(theme.ColorHealthy)
	down := lipgloss.NewStyle().Foreground(theme.ColorDanger)
	marks := make([]string, 0, len(m.Transitions))
	for _, tr := range m.Transitions {
		if tr.Connected {
			marks = append(marks, up.Render("▲")+tr.At.Format("15:04:05"))
		} else {
			marks = append(marks, down.Render("▼")+tr.At.Format("15:04:05"))
		}
	}
	return theme.StyleDimmed.Render("history ") + strings.Join(marks, " ")
}

func (m Model) totalsLine() string {
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, kindStyle(k).Render(string(k))+fmt.Sprintf(" %d", m.Counts[k]))
	}
	return strings.Join(parts, " · ")
}

// logRows renders the rows window ending Offset rows before the newest.
func (m Model) logRows(width, rows int) []string {
	if len(m.Entries) == 0 {
		return []string{theme.StyleDimmed.Render("nothing logged yet")}
	}

	end := len(m.Entries) - m.Offset
	start := max(end-rows, 0)

	out := make([]string, 0, rows+2)
	if start > 0 {
		out = append(out, theme.StyleDimmed.Render(fmt.Sprintf("↑ %d older", start)))
	}
	// time(8) + space + kind(4) + space
	msgWidth := max(width-14, 10)
	for _, e := range m.Entries[start:end] {
		msg := e.Message
		if e.Repeat > 1 {
			msg = fmt.Sprintf("%s ×%d", msg, e.Repeat)
		}
		out = append(out, fmt.Sprintf("%s %s %s",
			theme.StyleDimmed.Render(e.Time.Format("15:04:05")),
			kindStyle(e.Kind).Render(theme.Fit(string(e.Kind), 4)),
			ansi.Truncate(msg, msgWidth, "…")))
	}
	if m.Offset > 0 {
		out = append(out, theme.StyleDimmed.Render(fmt.Sprintf("↓ %d newer", m.Offset)))
	}
	return out
}

func kindStyle(k Kind) lipgloss.Style {
	color := theme.ColorDimmed
	switch k {
	case KindWS:
		color = theme.ColorInfo
	case KindSnapshot:
		color = theme.ColorAccentSoft
	case KindTrack:
		color = theme.ColorNav
	case KindError:
		color = theme.ColorDanger
	}
	return lipgloss.NewStyle().Foreground(color)
}
