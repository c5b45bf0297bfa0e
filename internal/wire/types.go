// Package wire decodes Overwatch daemon frames into a closed set of message
// variants and builds the outbound control frames. Types mirror the daemon's
// realtime protocol without importing daemon packages.
package wire

import "encoding/json"

// MessageType identifies the kind of inbound frame.
type MessageType string

const (
	MsgConnected     MessageType = "connected"
	MsgAuthenticated MessageType = "authenticated"
	MsgPong          MessageType = "pong"
	MsgSubscribed    MessageType = "subscribed"
	MsgRealtime      MessageType = "realtime"
	MsgEvent         MessageType = "event"
	MsgGeographic    MessageType = "geographic"
	MsgPerformance   MessageType = "performance"
	MsgError         MessageType = "error"
)

// Envelope is the outer shape shared by all inbound frames. Control frames
// carry their fields at the top level; channel frames carry Data.
type Envelope struct {
	Type      MessageType     `json:"type"`
	Message   string          `json:"message,omitempty"`
	ProjectID string          `json:"projectId,omitempty"`
	Channel   string          `json:"channel,omitempty"`
	Code      json.RawMessage `json:"code,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// --- channel payloads ---

// ActiveSession is one live visitor session inside a realtime payload.
type ActiveSession struct {
	SessionID string `json:"sessionId,omitempty"`
	Device    string `json:"device,omitempty"`
	Country   string `json:"country,omitempty"`
	Page      string `json:"page,omitempty"`
}

// RealtimeData is the payload of a "realtime" frame. AvgSessionDuration is
// in milliseconds and may be fractional.
type RealtimeData struct {
	ActiveUsersCount    *int            `json:"activeUsersCount,omitempty"`
	PageviewsLastMinute *int            `json:"pageviewsLastMinute,omitempty"`
	AvgSessionDuration  float64         `json:"avgSessionDuration,omitempty"`
	ActiveSessions      []ActiveSession `json:"activeSessions,omitempty"`
}

// EventData is the payload of an "event" frame.
type EventData struct {
	EventID   string    `json:"eventId"`
	Type      string    `json:"type"`
	Country   string    `json:"country,omitempty"`
	PageURL   string    `json:"pageUrl,omitempty"`
	Timestamp Timestamp `json:"timestamp"`
}

// LiveLocation is one entry of a geographic payload.
type LiveLocation struct {
	CountryName string `json:"countryName"`
	CountryCode string `json:"countryCode"`
	ActiveCount int    `json:"activeCount"`
}

// GeographicData is the payload of a "geographic" frame.
type GeographicData struct {
	LiveLocations []LiveLocation `json:"liveLocations"`
}

// PerformanceData is the payload of a "performance" frame: one web-vital
// sample.
type PerformanceData struct {
	MetricName string  `json:"metricName"`
	Value      float64 `json:"value"`
	Rating     string  `json:"rating,omitempty"`
}

// --- outbound frames ---

// AuthFrame authenticates the connection with the project API key.
type AuthFrame struct {
	Type   string `json:"type"`
	APIKey string `json:"apiKey"`
}

// SubscribeFrame asks the daemon to stream one channel.
type SubscribeFrame struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

// PingFrame is the application-level heartbeat.
type PingFrame struct {
	Type string `json:"type"`
}

// Auth returns the auth frame for apiKey.
func Auth(apiKey string) AuthFrame { return AuthFrame{Type: "auth", APIKey: apiKey} }

// Subscribe returns the subscribe frame for a daemon channel.
func Subscribe(channel string) SubscribeFrame {
	return SubscribeFrame{Type: "subscribe", Channel: channel}
}

// Ping returns the heartbeat frame.
func Ping() PingFrame { return PingFrame{Type: "ping"} }

// Daemon channels the client subscribes to once authenticated, in order.
const (
	ChannelRealtime    = "realtime"
	ChannelEvents      = "events"
	ChannelGeographic  = "geographic"
	ChannelPerformance = "performance"
)

// SubscribeChannels lists the daemon channels requested after auth.
var SubscribeChannels = []string{ChannelRealtime, ChannelEvents, ChannelGeographic, ChannelPerformance}
