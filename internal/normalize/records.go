// Package normalize maps decoded daemon messages into the stable records the
// UI consumes, and holds the folds consumers use to keep their view state.
package normalize

// Event is one visitor action.
type Event struct {
	ID        string `json:"id" yaml:"id"`
	City      string `json:"city" yaml:"city"`
	Country   string `json:"country" yaml:"country"`
	Action    string `json:"action" yaml:"action"`
	Page      string `json:"page" yaml:"page"`
	Timestamp int64  `json:"timestamp" yaml:"timestamp"` // epoch ms
}

// Metrics is the held headline counter set. AvgDuration is "M:SS".
type Metrics struct {
	ActiveUsers int    `json:"activeUsers" yaml:"activeUsers"`
	PageViews   int    `json:"pageViews" yaml:"pageViews"`
	AvgDuration string `json:"avgDuration" yaml:"avgDuration"`
}

// MetricsUpdate is the metrics notification. Nil counts were absent upstream.
type MetricsUpdate struct {
	ActiveUsers *int
	PageViews   *int
	AvgDuration string
}

// InitialMetrics is the placeholder shown before the first update.
func InitialMetrics() Metrics {
	return Metrics{AvgDuration: "0:00"}
}

// Merge folds an update into the held metrics. Absent fields keep the
// previous value.
func (m Metrics) Merge(u MetricsUpdate) Metrics {
	if u.ActiveUsers != nil {
		m.ActiveUsers = *u.ActiveUsers
	}
	if u.PageViews != nil {
		m.PageViews = *u.PageViews
	}
	if u.AvgDuration != "" {
		m.AvgDuration = u.AvgDuration
	}
	return m
}

// DeviceBreakdown holds integer percentages per device class.
type DeviceBreakdown struct {
	Desktop int `json:"desktop" yaml:"desktop"`
	Mobile  int `json:"mobile" yaml:"mobile"`
	Tablet  int `json:"tablet" yaml:"tablet"`
}

// Sum returns the total of the three shares. Independent rounding means it
// can be off 100 by up to two.
func (d DeviceBreakdown) Sum() int { return d.Desktop + d.Mobile + d.Tablet }

// ClampSimulated bounds locally simulated shares to their plausible ranges:
// desktop 40–70, mobile 20–50, tablet 5–15.
func (d DeviceBreakdown) ClampSimulated() DeviceBreakdown {
	return DeviceBreakdown{
		Desktop: clamp(d.Desktop, 40, 70),
		Mobile:  clamp(d.Mobile, 20, 50),
		Tablet:  clamp(d.Tablet, 5, 15),
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

// GeoEntry is one row of the live geographic breakdown.
type GeoEntry struct {
	Country string `json:"country" yaml:"country"`
	Code    string `json:"code" yaml:"code"`
	Count   int    `json:"count" yaml:"count"`
	Color   string `json:"color" yaml:"color"`
}

// Palette colors geographic rows by position, not by country.
var Palette = []string{"#3B82F6", "#52a2ff", "#60a5fa", "#93c5fd", "#bfdbfe"}

// PaletteColor returns the color for the row at index i.
func PaletteColor(i int) string {
	return Palette[i%len(Palette)]
}

// PerformanceSample is the performance notification: one web-vital reading.
type PerformanceSample struct {
	MetricName string
	Value      float64
	Rating     string
}

// ConnectionStatus is the connection notification.
type ConnectionStatus struct {
	Connected bool
}

// RealtimeData is the full bundle returned by the snapshot fallback.
type RealtimeData struct {
	Metrics     Metrics          `json:"metrics" yaml:"metrics"`
	Events      []Event          `json:"events" yaml:"events"`
	Geographic  []GeoEntry       `json:"geographic" yaml:"geographic"`
	Devices     DeviceBreakdown  `json:"devices" yaml:"devices"`
	Performance PerformanceState `json:"performance" yaml:"performance"`
}

// EmptyData is the explicit all-zero bundle used when no source answered.
func EmptyData() RealtimeData {
	return RealtimeData{
		Metrics:    InitialMetrics(),
		Events:     []Event{},
		Geographic: []GeoEntry{},
	}
}

// MaxRecentEvents is how many events the feed keeps.
const MaxRecentEvents = 10

// PrependEvent returns a new feed with e first, capped at limit entries.
func PrependEvent(feed []Event, e Event, limit int) []Event {
	n := min(len(feed), limit-1)
	if n < 0 {
		n = 0
	}
	out := make([]Event, 0, n+1)
	out = append(out, e)
	return append(out, feed[:n]...)
}
