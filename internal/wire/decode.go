package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrNoPayload is returned for a channel frame whose data field is absent
// or null.
var ErrNoPayload = errors.New("frame has no data payload")

// DecodeError reports a frame that could not be decoded into a message.
type DecodeError struct {
	Type MessageType // empty when the envelope itself was unreadable
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("decode frame: %v", e.Err)
	}
	return fmt.Sprintf("decode %s frame: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Message is one decoded inbound frame. The set of implementations is
// closed; switch on the concrete type.
type Message interface {
	Kind() MessageType
	isMessage()
}

// Connected is the daemon's greeting after the transport opens.
type Connected struct{ Text string }

// Authenticated acknowledges the auth frame.
type Authenticated struct{ ProjectID string }

// Pong acknowledges a ping.
type Pong struct{}

// Subscribed acknowledges a subscribe frame.
type Subscribed struct{ Channel string }

// Realtime carries the live counters.
type Realtime struct{ Data RealtimeData }

// Event carries one visitor action.
type Event struct{ Data EventData }

// Geographic carries the live location list.
type Geographic struct{ Data GeographicData }

// Performance carries one web-vital sample.
type Performance struct{ Data PerformanceData }

// Error is a daemon-side error report.
type Error struct {
	Code string
	Text string
}

// Unknown is any frame with an unrecognized type tag. It is kept so callers
// can log it; it never produces data.
type Unknown struct{ Type MessageType }

func (Connected) Kind() MessageType     { return MsgConnected }
func (Authenticated) Kind() MessageType { return MsgAuthenticated }
func (Pong) Kind() MessageType          { return MsgPong }
func (Subscribed) Kind() MessageType    { return MsgSubscribed }
func (Realtime) Kind() MessageType      { return MsgRealtime }
func (Event) Kind() MessageType         { return MsgEvent }
func (Geographic) Kind() MessageType    { return MsgGeographic }
func (Performance) Kind() MessageType   { return MsgPerformance }
func (Error) Kind() MessageType         { return MsgError }
func (u Unknown) Kind() MessageType     { return u.Type }

func (Connected) isMessage()     {}
func (Authenticated) isMessage() {}
func (Pong) isMessage()          {}
func (Subscribed) isMessage()    {}
func (Realtime) isMessage()      {}
func (Event) isMessage()         {}
func (Geographic) isMessage()    {}
func (Performance) isMessage()   {}
func (Error) isMessage()         {}
func (Unknown) isMessage()       {}

// Decode parses one frame. Frames that are not a JSON object with a type
// tag, and channel frames without data, return a *DecodeError. Missing
// optional fields inside a payload decode to zero values.
func Decode(frame []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if env.Type == "" {
		return nil, &DecodeError{Err: errors.New("missing type")}
	}

	switch env.Type {
	case MsgConnected:
		return Connected{Text: env.Message}, nil
	case MsgAuthenticated:
		return Authenticated{ProjectID: env.ProjectID}, nil
	case MsgPong:
		return Pong{}, nil
	case MsgSubscribed:
		return Subscribed{Channel: env.Channel}, nil
	case MsgError:
		return Error{Code: rawScalar(env.Code), Text: env.Message}, nil
	case MsgRealtime:
		var p RealtimeData
		if err := decodeData(env, &p); err != nil {
			return nil, err
		}
		return Realtime{Data: p}, nil
	case MsgEvent:
		var p EventData
		if err := decodeData(env, &p); err != nil {
			return nil, err
		}
		return Event{Data: p}, nil
	case MsgGeographic:
		var p GeographicData
		if err := decodeData(env, &p); err != nil {
			return nil, err
		}
		return Geographic{Data: p}, nil
	case MsgPerformance:
		var p PerformanceData
		if err := decodeData(env, &p); err != nil {
			return nil, err
		}
		return Performance{Data: p}, nil
	}
	return Unknown{Type: env.Type}, nil
}

func decodeData(env Envelope, out any) error {
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return &DecodeError{Type: env.Type, Err: ErrNoPayload}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{Type: env.Type, Err: err}
	}
	return nil
}

// rawScalar renders a JSON string or number as plain text.
func rawScalar(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

// Timestamp is an epoch-millisecond instant. The daemon sends numbers; some
// builds send RFC 3339 strings, which are accepted too.
type Timestamp int64

// UnmarshalJSON accepts a number, a numeric string, an RFC 3339 string or
// null. Unparseable strings leave the value at zero.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] != '"' {
		var f float64
		if err := json.Unmarshal(b, &f); err != nil {
			return err
		}
		*t = Timestamp(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*t = Timestamp(n)
		return nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		*t = Timestamp(ts.UnixMilli())
	}
	return nil
}

// Millis returns the instant as epoch milliseconds.
func (t Timestamp) Millis() int64 { return int64(t) }
