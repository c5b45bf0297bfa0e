package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saint0x/overwatch-demo/internal/client"
	"github.com/saint0x/overwatch-demo/internal/normalize"
	"github.com/saint0x/overwatch-demo/internal/registry"
	"github.com/saint0x/overwatch-demo/internal/views/debug"
)

type fakeBackend struct {
	mu           sync.Mutex
	snapshot     normalize.RealtimeData
	snapshotErr  error
	snapshots    int
	clicks       []string
	disconnected bool
}

func (f *fakeBackend) GetSnapshot(context.Context) (normalize.RealtimeData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots++
	return f.snapshot, f.snapshotErr
}

func (f *fakeBackend) GetSession() (client.SessionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return client.SessionInfo{SessionID: "sess_abc", PageCount: 1, EventCount: len(f.clicks)}, nil
}

func (f *fakeBackend) TrackClick(selector string, _ map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicks = append(f.clicks, selector)
	return nil
}

func (f *fakeBackend) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
	return nil
}

func newModel(b Backend) Model {
	m := New(b, 5*time.Second)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func lastDebug(m Model) debug.Entry {
	return m.debug.Entries[len(m.debug.Entries)-1]
}

func intp(n int) *int { return &n }

func TestViewBeforeResize(t *testing.T) {
	assert.Equal(t, "Initializing...", New(nil, 0).View())
}

func TestStreamMessagesUpdatePanels(t *testing.T) {
	m := newModel(nil)

	m, _ = update(t, m, MetricsMsg{ActiveUsers: intp(12), AvgDuration: "2:34"})
	m, _ = update(t, m, DevicesMsg{Desktop: 50, Mobile: 30, Tablet: 20})
	m, _ = update(t, m, GeoMsg{{Country: "Japan", Code: "JP", Count: 4, Color: normalize.PaletteColor(0)}})
	m, _ = update(t, m, EventMsg{ID: "e1", City: "Osaka", Country: "Japan", Action: "viewed", Page: "/docs"})

	assert.Equal(t, 12, m.dashboard.Metrics.ActiveUsers)
	assert.Equal(t, "2:34", m.dashboard.Metrics.AvgDuration)
	assert.Equal(t, 30, m.dashboard.Devices.Mobile)
	require.Len(t, m.feed.Events, 1)
	assert.Equal(t, "Osaka", m.feed.Events[0].City)

	v := m.View()
	assert.Contains(t, v, "Japan")
	assert.Contains(t, v, "/docs")
}

func TestPerformanceStartsAnimationOnce(t *testing.T) {
	m := newModel(nil)

	m, cmd := update(t, m, PerformanceMsg{MetricName: "fcp", Value: 1.2, Rating: "good"})
	assert.NotNil(t, cmd)
	assert.True(t, m.animating)

	_, cmd = update(t, m, PerformanceMsg{MetricName: "lcp", Value: 2.0, Rating: "good"})
	assert.Nil(t, cmd)
}

func TestFramesStopWhenSettled(t *testing.T) {
	m := newModel(nil)
	m, _ = update(t, m, PerformanceMsg{MetricName: "fcp", Value: 1.2, Rating: "good"})

	var cmd tea.Cmd
	for i := 0; i < 1000 && m.animating; i++ {
		m, cmd = update(t, m, frameMsg(time.Now()))
	}
	assert.False(t, m.animating)
	assert.Nil(t, cmd)
	assert.Equal(t, float64(m.dashboard.Performance.Score), m.dashboard.Gauge())
}

func TestDisconnectFetchesSnapshot(t *testing.T) {
	b := &fakeBackend{snapshot: normalize.RealtimeData{
		Metrics:    normalize.Metrics{ActiveUsers: 3, PageViews: 40, AvgDuration: "0:30"},
		Geographic: []normalize.GeoEntry{{Country: "Brazil", Code: "BR", Count: 3}},
	}}
	m := newModel(b)

	m, cmd := update(t, m, ConnectionMsg{Connected: true})
	assert.Nil(t, cmd)
	assert.True(t, m.statusBar.Connected)

	m, cmd = update(t, m, ConnectionMsg{Connected: false})
	require.NotNil(t, cmd)
	assert.Equal(t, 1, m.statusBar.Reconnects)
	assert.Equal(t, debug.KindWS, lastDebug(m).Kind)

	msg := cmd()
	snap, ok := msg.(SnapshotMsg)
	require.True(t, ok)
	require.NoError(t, snap.Err)

	m, _ = update(t, m, snap)
	assert.Equal(t, 3, m.dashboard.Metrics.ActiveUsers)
	assert.Equal(t, "Brazil", m.geo.Entries[0].Country)
	assert.False(t, m.statusBar.LastSnapshot.IsZero())
}

func TestSnapshotErrorIsLogged(t *testing.T) {
	m := newModel(nil)
	m, _ = update(t, m, MetricsMsg{ActiveUsers: intp(9)})
	m, _ = update(t, m, SnapshotMsg{Err: errors.New("daemon down")})

	assert.Equal(t, 9, m.dashboard.Metrics.ActiveUsers)
	assert.Equal(t, debug.KindError, lastDebug(m).Kind)
	assert.Contains(t, lastDebug(m).Message, "daemon down")
}

func TestSnapshotWithoutEventsKeepsFeed(t *testing.T) {
	m := newModel(nil)
	m, _ = update(t, m, EventMsg{ID: "live"})
	m, _ = update(t, m, SnapshotMsg{Data: normalize.EmptyData(), At: time.Now()})
	require.Len(t, m.feed.Events, 1)
	assert.Equal(t, "live", m.feed.Events[0].ID)
}

func TestRefreshTracksClickAndFetches(t *testing.T) {
	b := &fakeBackend{}
	m := newModel(b)

	m, cmd := update(t, m, keyRunes("r"))
	require.NotNil(t, cmd)
	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)

	var tracked TrackedMsg
	for _, c := range batch {
		switch msg := c().(type) {
		case TrackedMsg:
			tracked = msg
		case SnapshotMsg:
			require.NoError(t, msg.Err)
		}
	}
	assert.Equal(t, "key:refresh", tracked.Selector)
	assert.Equal(t, []string{"key:refresh"}, b.clicks)
	assert.Equal(t, 1, b.snapshots)

	m, cmd = update(t, m, tracked)
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	assert.Equal(t, "sess_abc", m.statusBar.SessionID)
	assert.Equal(t, 1, m.statusBar.EventCount)
}

func TestEnterTracksSelectedEvent(t *testing.T) {
	b := &fakeBackend{}
	m := newModel(b)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)

	m, _ = update(t, m, EventMsg{ID: "e9", Page: "/blog"})
	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, []string{"feed:e9"}, b.clicks)
}

func TestOverlays(t *testing.T) {
	m := newModel(nil)

	m, _ = update(t, m, keyRunes("?"))
	assert.Equal(t, OverlayHelp, m.overlay)
	assert.Contains(t, m.View(), "refresh snapshot")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, OverlayNone, m.overlay)

	for i := 0; i < 5; i++ {
		m.debug.Add(debug.KindWS, fmt.Sprintf("msg %d", i))
	}
	m, _ = update(t, m, keyRunes("d"))
	assert.Equal(t, OverlayDebug, m.overlay)
	m, _ = update(t, m, keyRunes("k"))
	assert.Equal(t, 1, m.debug.Offset)
	m, _ = update(t, m, keyRunes("j"))
	assert.Equal(t, 0, m.debug.Offset)
	assert.Contains(t, m.View(), "CONNECTION LOG")
}

func TestLogOverlayShowsReconnectCountdown(t *testing.T) {
	m := newModel(nil)

	m, _ = update(t, m, ConnectionMsg{Connected: true})
	m, cmd := update(t, m, keyRunes("d"))
	assert.Nil(t, cmd, "no countdown while subscribed")
	assert.Contains(t, m.View(), "subscribed since")

	m, cmd = update(t, m, ConnectionMsg{Connected: false})
	assert.NotNil(t, cmd)
	assert.Equal(t, 1, m.debug.Drops)
	v := m.View()
	assert.Contains(t, v, "retry in")
	assert.Contains(t, v, "1 drops")

	_, cmd = update(t, m, countdownMsg{})
	assert.NotNil(t, cmd, "countdown keeps ticking while down")

	m, _ = update(t, m, ConnectionMsg{Connected: true})
	_, cmd = update(t, m, countdownMsg{})
	assert.Nil(t, cmd)
}

func TestQuitDisconnects(t *testing.T) {
	b := &fakeBackend{}
	m := newModel(b)

	_, cmd := update(t, m, keyRunes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, b.disconnected)
	assert.Error(t, m.ctx.Err())
}

type recorder struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recorder) Send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

type regSubscriber struct {
	reg    *registry.Registry
	failOn registry.Channel
}

func (s regSubscriber) Subscribe(ch registry.Channel, fn func(any)) (func(), error) {
	if ch == s.failOn {
		return nil, errors.New("refused")
	}
	return s.reg.Subscribe(ch, fn), nil
}

func TestBridgeForwardsNotifications(t *testing.T) {
	reg := registry.New()
	rec := &recorder{}

	stop, err := Bridge(regSubscriber{reg: reg}, rec)
	require.NoError(t, err)

	reg.Notify(registry.Metrics, normalize.MetricsUpdate{ActiveUsers: intp(1)})
	reg.Notify(registry.Devices, normalize.DeviceBreakdown{Desktop: 100})
	reg.Notify(registry.Geographic, []normalize.GeoEntry{{Code: "US"}})
	reg.Notify(registry.Events, normalize.Event{ID: "x"})
	reg.Notify(registry.Performance, normalize.PerformanceSample{MetricName: "cls"})
	reg.Notify(registry.Connection, normalize.ConnectionStatus{Connected: true})
	reg.Notify(registry.Events, "not an event")

	require.Len(t, rec.msgs, 6)
	assert.IsType(t, MetricsMsg{}, rec.msgs[0])
	assert.IsType(t, DevicesMsg{}, rec.msgs[1])
	assert.IsType(t, GeoMsg{}, rec.msgs[2])
	assert.IsType(t, EventMsg{}, rec.msgs[3])
	assert.IsType(t, PerformanceMsg{}, rec.msgs[4])
	assert.Equal(t, ConnectionMsg{Connected: true}, rec.msgs[5])

	stop()
	for _, ch := range registry.Channels {
		assert.Zero(t, reg.Count(ch), ch)
	}
}

func TestBridgeUnwindsOnError(t *testing.T) {
	reg := registry.New()
	_, err := Bridge(regSubscriber{reg: reg, failOn: registry.Performance}, &recorder{})
	require.Error(t, err)
	for _, ch := range registry.Channels {
		assert.Zero(t, reg.Count(ch), ch)
	}
}
