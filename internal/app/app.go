package app

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/saint0x/overwatch-demo/internal/client"
	"github.com/saint0x/overwatch-demo/internal/normalize"
	"github.com/saint0x/overwatch-demo/internal/registry"
	"github.com/saint0x/overwatch-demo/internal/theme"
	"github.com/saint0x/overwatch-demo/internal/views/dashboard"
	"github.com/saint0x/overwatch-demo/internal/views/debug"
	"github.com/saint0x/overwatch-demo/internal/views/feed"
	"github.com/saint0x/overwatch-demo/internal/views/geo"
	"github.com/saint0x/overwatch-demo/internal/views/help"
	"github.com/saint0x/overwatch-demo/internal/views/status"
)

// Overlay identifies which modal is active.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayDebug
	OverlayHelp
)

// snapshotTimeout bounds one refresh, retries included.
const snapshotTimeout = 30 * time.Second

// Backend is the part of the Overwatch client the dashboard drives.
type Backend interface {
	GetSnapshot(ctx context.Context) (normalize.RealtimeData, error)
	GetSession() (client.SessionInfo, error)
	TrackClick(selector string, data map[string]any) error
	Disconnect() error
}

// Model is the root Bubble Tea model.
type Model struct {
	backend Backend
	ctx     context.Context
	cancel  context.CancelFunc
	now     func() time.Time

	keys    KeyMap
	width   int
	height  int
	overlay Overlay

	// Sub-views.
	statusBar status.Model
	dashboard dashboard.Model
	feed      feed.Model
	geo       geo.Model
	debug     debug.Model
	help      help.Model

	animating bool
}

// New creates the root model around an initialized backend whose stream
// waits reconnectDelay between attempts. Zero means the client default.
func New(backend Backend, reconnectDelay time.Duration) Model {
	if reconnectDelay <= 0 {
		reconnectDelay = client.DefaultReconnectDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	keys := DefaultKeyMap()
	channels := make([]string, 0, len(registry.Channels))
	for _, ch := range registry.Channels {
		channels = append(channels, string(ch))
	}
	return Model{
		backend:   backend,
		ctx:       ctx,
		cancel:    cancel,
		now:       time.Now,
		keys:      keys,
		statusBar: status.New(),
		dashboard: dashboard.New(),
		feed:      feed.New(),
		geo:       geo.New(),
		debug:     debug.New(reconnectDelay),
		help:      help.New(keys.HelpBindings(), channels),
	}
}

// Init pulls a snapshot so the panels are populated before the stream
// delivers anything.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchSnapshot(), m.fetchSession())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.dashboard.Width = msg.Width
		m.feed.Width = msg.Width - msg.Width/3
		m.geo.Width = msg.Width / 3
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ConnectionMsg:
		m.statusBar.SetConnected(msg.Connected)
		m.debug.Connection(msg.Connected)
		if msg.Connected {
			return m, nil
		}
		// Fill the gap with REST data while the stream reconnects.
		return m, tea.Batch(m.fetchSnapshot(), m.countdownTick())

	case MetricsMsg:
		m.dashboard.ApplyMetrics(normalize.MetricsUpdate(msg))
		return m, nil

	case DevicesMsg:
		m.dashboard.SetDevices(normalize.DeviceBreakdown(msg))
		return m, nil

	case GeoMsg:
		m.geo.Set(msg)
		return m, nil

	case EventMsg:
		m.feed.Add(normalize.Event(msg))
		return m, nil

	case PerformanceMsg:
		s := normalize.PerformanceSample(msg)
		m.dashboard.ApplyPerformance(s)
		m.debug.Add(debug.KindWS, fmt.Sprintf("vital %s=%.2f (%s)", s.MetricName, s.Value, s.Rating))
		return m, m.startAnimation()

	case SnapshotMsg:
		if msg.Err != nil {
			m.debug.Add(debug.KindError, "snapshot: "+msg.Err.Error())
			return m, nil
		}
		m.dashboard.ApplySnapshot(msg.Data)
		if len(msg.Data.Events) > 0 {
			m.feed.Set(msg.Data.Events)
		}
		m.geo.Set(msg.Data.Geographic)
		m.statusBar.LastSnapshot = msg.At
		m.debug.Add(debug.KindSnapshot, fmt.Sprintf("snapshot: %d active, %d views", msg.Data.Metrics.ActiveUsers, msg.Data.Metrics.PageViews))
		return m, m.startAnimation()

	case SessionMsg:
		if msg.Err != nil {
			m.debug.Add(debug.KindError, "session: "+msg.Err.Error())
			return m, nil
		}
		m.statusBar.SessionID = msg.Info.SessionID
		m.statusBar.EventCount = msg.Info.EventCount
		return m, nil

	case TrackedMsg:
		if msg.Err != nil {
			m.debug.Add(debug.KindError, "track: "+msg.Err.Error())
			return m, nil
		}
		m.debug.Add(debug.KindTrack, "click "+msg.Selector)
		return m, m.fetchSession()

	case countdownMsg:
		return m, m.countdownTick()

	case frameMsg:
		if m.dashboard.Animate() {
			return m, frameTick()
		}
		m.animating = false
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.cancel()
		if m.backend != nil {
			_ = m.backend.Disconnect()
		}
		return m, tea.Quit
	}

	if m.overlay != OverlayNone {
		switch {
		case key.Matches(msg, m.keys.Escape):
			m.overlay = OverlayNone
		case m.overlay == OverlayDebug && key.Matches(msg, m.keys.Up):
			m.debug.ScrollUp(1)
		case m.overlay == OverlayDebug && key.Matches(msg, m.keys.Down):
			m.debug.ScrollDown(1)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Down):
		m.feed.MoveDown()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.feed.MoveUp()
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		e, ok := m.feed.Selected()
		if !ok {
			return m, nil
		}
		return m, m.trackClick("feed:"+e.ID, map[string]any{"page": e.Page, "country": e.Country})

	case key.Matches(msg, m.keys.Refresh):
		m.debug.Add(debug.KindSnapshot, "refresh requested")
		return m, tea.Batch(m.trackClick("key:refresh", nil), m.fetchSnapshot())

	case key.Matches(msg, m.keys.Debug):
		m.overlay = OverlayDebug
		return m, m.countdownTick()

	case key.Matches(msg, m.keys.Help):
		m.overlay = OverlayHelp
		return m, nil
	}

	return m, nil
}

func (m *Model) startAnimation() tea.Cmd {
	if m.animating {
		return nil
	}
	m.animating = true
	return frameTick()
}

func frameTick() tea.Cmd {
	return tea.Tick(time.Second/dashboard.FPS, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// countdownTick keeps the reconnect countdown moving while the log overlay
// is open and a reconnect is pending.
func (m Model) countdownTick() tea.Cmd {
	if m.overlay != OverlayDebug {
		return nil
	}
	if _, pending := m.debug.NextAttempt(); !pending {
		return nil
	}
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return countdownMsg{} })
}

func (m Model) fetchSnapshot() tea.Cmd {
	if m.backend == nil {
		return nil
	}
	backend, parent, now := m.backend, m.ctx, m.now
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, snapshotTimeout)
		defer cancel()
		data, err := backend.GetSnapshot(ctx)
		return SnapshotMsg{Data: data, Err: err, At: now()}
	}
}

func (m Model) fetchSession() tea.Cmd {
	if m.backend == nil {
		return nil
	}
	backend := m.backend
	return func() tea.Msg {
		info, err := backend.GetSession()
		return SessionMsg{Info: info, Err: err}
	}
}

func (m Model) trackClick(selector string, data map[string]any) tea.Cmd {
	if m.backend == nil {
		return nil
	}
	backend := m.backend
	return func() tea.Msg {
		return TrackedMsg{Selector: selector, Err: backend.TrackClick(selector, data)}
	}
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var body string
	switch m.overlay {
	case OverlayDebug:
		body = m.debug.View(m.width, m.height-4)
	case OverlayHelp:
		body = m.help.View(m.width)
	default:
		body = lipgloss.JoinVertical(lipgloss.Left,
			m.dashboard.View(),
			lipgloss.JoinHorizontal(lipgloss.Top, m.feed.View(), m.geo.View()),
		)
	}

	sections := []string{
		m.statusBar.View(),
		body,
		theme.StyleDimmed.Render("  j/k:select  enter:track  r:refresh  d:log  ?:help  q:quit"),
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
