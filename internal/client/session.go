package client

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TrackingSink is the optional outbound tracking collaborator. Calls are
// fire-and-forget; a sink reports its own failures.
type TrackingSink interface {
	Page(meta PageMeta)
	Track(event TrackEvent)
	Click(selector string, data map[string]any)
	Session() SinkSession
	Destroy()
}

// SinkFactory builds the tracking sink for an API key. It is called once,
// from Init.
type SinkFactory func(ctx context.Context, apiKey string) (TrackingSink, error)

// SessionTracker holds the local visitor session record.
type SessionTracker struct {
	mu   sync.Mutex
	info SessionInfo
}

// NewSessionTracker starts a session at now with a fresh "sess_" id and one
// page viewed.
func NewSessionTracker(now time.Time) *SessionTracker {
	return &SessionTracker{info: SessionInfo{
		SessionID: "sess_" + uuid.NewString(),
		StartedAt: now.UnixMilli(),
		PageCount: 1,
	}}
}

// Snapshot returns a copy of the record.
func (s *SessionTracker) Snapshot() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// IncEvent counts one tracked event and returns the new total.
func (s *SessionTracker) IncEvent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info.EventCount++
	return s.info.EventCount
}

// Resolve overlays the sink's view of the session on the local record: the
// sink's id wins, and so does its event count once it has one.
func (s *SessionTracker) Resolve(sink TrackingSink) SessionInfo {
	info := s.Snapshot()
	if sink == nil {
		return info
	}
	ss := sink.Session()
	if ss.SessionID != "" {
		info.SessionID = ss.SessionID
	}
	if ss.EventCount != 0 {
		info.EventCount = ss.EventCount
	}
	return info
}
