package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/saint0x/overwatch-demo/internal/client"
	"github.com/saint0x/overwatch-demo/internal/normalize"
	"github.com/saint0x/overwatch-demo/internal/registry"
)

// Messages delivered to the root model. The registry-backed ones are sent
// by Bridge from the connection goroutine.
type (
	ConnectionMsg  normalize.ConnectionStatus
	MetricsMsg     normalize.MetricsUpdate
	DevicesMsg     normalize.DeviceBreakdown
	GeoMsg         []normalize.GeoEntry
	EventMsg       normalize.Event
	PerformanceMsg normalize.PerformanceSample

	SnapshotMsg struct {
		Data normalize.RealtimeData
		Err  error
		At   time.Time
	}

	SessionMsg struct {
		Info client.SessionInfo
		Err  error
	}

	TrackedMsg struct {
		Selector string
		Err      error
	}

	frameMsg     time.Time
	countdownMsg struct{}
)

// Subscriber is the part of the client Bridge needs.
type Subscriber interface {
	Subscribe(ch registry.Channel, fn func(any)) (func(), error)
}

// Sender delivers messages into a running program; *tea.Program satisfies
// it.
type Sender interface {
	Send(msg tea.Msg)
}

// Bridge subscribes to every channel and forwards each notification to
// out as the matching message. The returned function unsubscribes all of
// them. On error nothing stays subscribed.
func Bridge(sub Subscriber, out Sender) (func(), error) {
	var unsubs []func()
	stop := func() {
		for _, u := range unsubs {
			u()
		}
	}

	for _, ch := range registry.Channels {
		unsub, err := sub.Subscribe(ch, func(v any) {
			if msg := toMsg(v); msg != nil {
				out.Send(msg)
			}
		})
		if err != nil {
			stop()
			return nil, err
		}
		unsubs = append(unsubs, unsub)
	}
	return stop, nil
}

func toMsg(v any) tea.Msg {
	switch v := v.(type) {
	case normalize.ConnectionStatus:
		return ConnectionMsg(v)
	case normalize.MetricsUpdate:
		return MetricsMsg(v)
	case normalize.DeviceBreakdown:
		return DevicesMsg(v)
	case []normalize.GeoEntry:
		return GeoMsg(v)
	case normalize.Event:
		return EventMsg(v)
	case normalize.PerformanceSample:
		return PerformanceMsg(v)
	}
	return nil
}
