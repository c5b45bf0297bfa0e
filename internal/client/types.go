// Package client connects to the Overwatch analytics daemon: a live
// WebSocket feed fanned out through a subscription registry, a REST snapshot
// fallback, and the visitor session record behind outbound tracking.
// REST types mirror the daemon's JSON without importing daemon packages.
package client

// ConnectionState is the lifecycle state of the live connection.
type ConnectionState int

const (
	StateIdle ConnectionState = iota
	StateConnecting
	StateAuthenticating
	StateSubscribed
	StateDegraded
	// StateClosed is reported after Stop; nothing leaves it.
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateSubscribed:
		return "subscribed"
	case StateDegraded:
		return "degraded"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Snapshot endpoints, relative to the daemon base URL.
const (
	PathOverview    = "/stats/overview"
	PathRealtime    = "/stats/realtime"
	PathAudience    = "/stats/audience"
	PathPerformance = "/stats/performance"
)

// OverviewResponse is GET /stats/overview.
type OverviewResponse struct {
	PageViews   int    `json:"pageViews"`
	AvgDuration string `json:"avgDuration"`
}

// RealtimeResponse is GET /stats/realtime.
type RealtimeResponse struct {
	ActiveUsers int `json:"activeUsers"`
}

// AudienceCountry is one row of the audience country list. The daemon has
// shipped several field spellings over time.
type AudienceCountry struct {
	Country     string `json:"country"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	CountryCode string `json:"countryCode"`
	Count       int    `json:"count"`
	Visitors    int    `json:"visitors"`
}

type AudienceDevice struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// AudienceResponse is GET /stats/audience.
type AudienceResponse struct {
	Countries []AudienceCountry `json:"countries"`
	Devices   []AudienceDevice  `json:"devices"`
}

type Vital struct {
	Value float64 `json:"value"`
}

// PerformanceResponse is GET /stats/performance. Missing vitals are nil.
type PerformanceResponse struct {
	FCP *Vital `json:"fcp"`
	LCP *Vital `json:"lcp"`
	CLS *Vital `json:"cls"`
	FID *Vital `json:"fid"`
}

// PageMeta describes the page view reported to the tracking sink on Init.
type PageMeta struct {
	Title    string `json:"title"`
	Path     string `json:"path"`
	Referrer string `json:"referrer,omitempty"`
}

// TrackEvent is a custom tracking event. Type is required; Properties are
// forwarded untouched.
type TrackEvent struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// SinkSession is the session view a tracking sink keeps on its own.
type SinkSession struct {
	SessionID  string `json:"sessionId"`
	EventCount int    `json:"eventCount"`
}

// SessionInfo is the visitor session record returned by GetSession.
type SessionInfo struct {
	SessionID  string `json:"sessionId" yaml:"sessionId"`
	StartedAt  int64  `json:"startedAt" yaml:"startedAt"`
	PageCount  int    `json:"pageCount" yaml:"pageCount"`
	EventCount int    `json:"eventCount" yaml:"eventCount"`
}
