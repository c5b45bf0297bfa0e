package normalize

import (
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/saint0x/overwatch-demo/internal/registry"
	"github.com/saint0x/overwatch-demo/internal/wire"
)

// Notification is one value destined for one registry channel.
type Notification struct {
	Channel registry.Channel
	Value   any
}

// Normalize maps a decoded message to the notifications it produces, in
// emission order. Control and unknown messages produce none.
func Normalize(msg wire.Message) []Notification {
	switch m := msg.(type) {
	case wire.Realtime:
		return realtime(m.Data)
	case wire.Event:
		return []Notification{{Channel: registry.Events, Value: EventFromWire(m.Data)}}
	case wire.Geographic:
		if m.Data.LiveLocations == nil {
			return nil
		}
		return []Notification{{Channel: registry.Geographic, Value: GeoFromWire(m.Data.LiveLocations)}}
	case wire.Performance:
		return []Notification{{Channel: registry.Performance, Value: PerformanceSample{
			MetricName: m.Data.MetricName,
			Value:      m.Data.Value,
			Rating:     m.Data.Rating,
		}}}
	}
	return nil
}

// realtime emits metrics first, then devices when there are live sessions.
func realtime(d wire.RealtimeData) []Notification {
	out := []Notification{{
		Channel: registry.Metrics,
		Value: MetricsUpdate{
			ActiveUsers: d.ActiveUsersCount,
			PageViews:   d.PageviewsLastMinute,
			AvgDuration: FormatDuration(d.AvgSessionDuration),
		},
	}}
	if devices, ok := DevicesFromSessions(d.ActiveSessions); ok {
		out = append(out, Notification{Channel: registry.Devices, Value: devices})
	}
	return out
}

// FormatDuration renders milliseconds as "M:SS", flooring to whole seconds.
// Negative, NaN and infinite input renders as "0:00".
func FormatDuration(ms float64) string {
	if ms < 0 || math.IsNaN(ms) || math.IsInf(ms, 0) {
		return "0:00"
	}
	secs := int64(math.Floor(ms / 1000))
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// DeviceCounts tallies sessions per device class. Missing or unrecognized
// device tags count as desktop.
type DeviceCounts struct {
	Desktop, Mobile, Tablet int
}

// Total returns the number of sessions tallied.
func (c DeviceCounts) Total() int { return c.Desktop + c.Mobile + c.Tablet }

// Shares converts counts to rounded percentages. Each share is rounded on
// its own; the sum is not corrected back to 100.
func (c DeviceCounts) Shares(total int) DeviceBreakdown {
	if total <= 0 {
		return DeviceBreakdown{}
	}
	return DeviceBreakdown{
		Desktop: percent(c.Desktop, total),
		Mobile:  percent(c.Mobile, total),
		Tablet:  percent(c.Tablet, total),
	}
}

// percent rounds half away from zero, like the dashboard always has.
func percent(n, total int) int {
	return int(math.Round(float64(n) / float64(total) * 100))
}

// CountDevices tallies the device tag of every session.
func CountDevices(sessions []wire.ActiveSession) DeviceCounts {
	var c DeviceCounts
	for _, s := range sessions {
		switch strings.ToLower(s.Device) {
		case "mobile":
			c.Mobile++
		case "tablet":
			c.Tablet++
		default:
			c.Desktop++
		}
	}
	return c
}

// DevicesFromSessions derives the breakdown from live sessions. It reports
// false when there is nothing to derive from.
func DevicesFromSessions(sessions []wire.ActiveSession) (DeviceBreakdown, bool) {
	c := CountDevices(sessions)
	total := c.Total()
	if total == 0 {
		return DeviceBreakdown{}, false
	}
	return c.Shares(total), true
}

// ActionLabel maps a wire event type to the feed verb.
func ActionLabel(eventType string) string {
	switch eventType {
	case "pageview":
		return "viewed"
	case "click":
		return "clicked"
	}
	return eventType
}

// PagePath returns the path of an absolute URL, or the raw value when it is
// not one. Empty input and empty paths become "/".
func PagePath(raw string) string {
	if raw == "" {
		return "/"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

// EventFromWire builds the feed record for one wire event. The event stream
// carries no city.
func EventFromWire(d wire.EventData) Event {
	country := d.Country
	if country == "" {
		country = "Unknown"
	}
	return Event{
		ID:        d.EventID,
		Country:   country,
		Action:    ActionLabel(d.Type),
		Page:      PagePath(d.PageURL),
		Timestamp: d.Timestamp.Millis(),
	}
}

// GeoFromWire maps live locations to rows, keeping source order and
// coloring by position.
func GeoFromWire(locs []wire.LiveLocation) []GeoEntry {
	out := make([]GeoEntry, 0, len(locs))
	for i, loc := range locs {
		out = append(out, GeoEntry{
			Country: loc.CountryName,
			Code:    loc.CountryCode,
			Count:   loc.ActiveCount,
			Color:   PaletteColor(i),
		})
	}
	return out
}
