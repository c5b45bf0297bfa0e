package wire

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeControlFrames(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  Message
	}{
		{"connected", `{"type":"connected","message":"welcome"}`, Connected{Text: "welcome"}},
		{"authenticated", `{"type":"authenticated","projectId":"proj_1"}`, Authenticated{ProjectID: "proj_1"}},
		{"pong", `{"type":"pong"}`, Pong{}},
		{"subscribed", `{"type":"subscribed","channel":"events"}`, Subscribed{Channel: "events"}},
		{"error with string code", `{"type":"error","code":"AUTH_FAILED","message":"bad key"}`, Error{Code: "AUTH_FAILED", Text: "bad key"}},
		{"error with numeric code", `{"type":"error","code":4001,"message":"bad key"}`, Error{Code: "4001", Text: "bad key"}},
		{"unknown tag", `{"type":"heatmap","data":{}}`, Unknown{Type: "heatmap"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeRealtime(t *testing.T) {
	frame := `{"type":"realtime","data":{
		"activeUsersCount":12,
		"pageviewsLastMinute":40,
		"avgSessionDuration":154000,
		"activeSessions":[{"sessionId":"a","device":"Mobile"},{"sessionId":"b"}]
	}}`

	msg, err := Decode([]byte(frame))
	require.NoError(t, err)

	rt, ok := msg.(Realtime)
	require.True(t, ok, "expected Realtime, got %T", msg)
	require.NotNil(t, rt.Data.ActiveUsersCount)
	assert.Equal(t, 12, *rt.Data.ActiveUsersCount)
	require.NotNil(t, rt.Data.PageviewsLastMinute)
	assert.Equal(t, 40, *rt.Data.PageviewsLastMinute)
	assert.Equal(t, 154000.0, rt.Data.AvgSessionDuration)
	assert.Len(t, rt.Data.ActiveSessions, 2)
	assert.Equal(t, "", rt.Data.ActiveSessions[1].Device)
}

func TestDecodeMissingOptionalFields(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"realtime","data":{}}`))
	require.NoError(t, err)

	rt := msg.(Realtime)
	assert.Nil(t, rt.Data.ActiveUsersCount)
	assert.Nil(t, rt.Data.PageviewsLastMinute)
	assert.Zero(t, rt.Data.AvgSessionDuration)
	assert.Empty(t, rt.Data.ActiveSessions)
}

func TestDecodeEventTimestamps(t *testing.T) {
	tests := []struct {
		name string
		ts   string
		want int64
	}{
		{"epoch millis", `1700000000123`, 1700000000123},
		{"numeric string", `"1700000000123"`, 1700000000123},
		{"rfc3339", `"2023-11-14T22:13:20.123Z"`, 1700000000123},
		{"null", `null`, 0},
		{"garbage string", `"yesterday"`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := `{"type":"event","data":{"eventId":"e1","type":"click","timestamp":` + tt.ts + `}}`
			msg, err := Decode([]byte(frame))
			require.NoError(t, err)
			assert.Equal(t, tt.want, msg.(Event).Data.Timestamp.Millis())
		})
	}
}

func TestDecodeRejectsBadEnvelope(t *testing.T) {
	for _, frame := range []string{
		`not json`,
		`[1,2,3]`,
		`{"data":{}}`,
		`{"type":""}`,
	} {
		_, err := Decode([]byte(frame))
		var de *DecodeError
		require.Error(t, err, frame)
		assert.True(t, errors.As(err, &de), "frame %q: want *DecodeError, got %T", frame, err)
	}
}

func TestDecodeChannelFrameWithoutData(t *testing.T) {
	for _, frame := range []string{
		`{"type":"realtime"}`,
		`{"type":"event","data":null}`,
		`{"type":"geographic"}`,
		`{"type":"performance","data":null}`,
	} {
		msg, err := Decode([]byte(frame))
		assert.Nil(t, msg)
		assert.ErrorIs(t, err, ErrNoPayload, frame)
	}
}

func TestDecodeMalformedPayload(t *testing.T) {
	_, err := Decode([]byte(`{"type":"geographic","data":{"liveLocations":"nope"}}`))
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, MsgGeographic, de.Type)
}

func TestOutboundFrames(t *testing.T) {
	tests := []struct {
		frame any
		want  string
	}{
		{Auth("owk_test"), `{"type":"auth","apiKey":"owk_test"}`},
		{Subscribe("events"), `{"type":"subscribe","channel":"events"}`},
		{Ping(), `{"type":"ping"}`},
	}
	for _, tt := range tests {
		b, err := json.Marshal(tt.frame)
		require.NoError(t, err)
		assert.JSONEq(t, tt.want, string(b))
	}
}
