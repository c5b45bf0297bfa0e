package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saint0x/overwatch-demo/internal/metrics"
	"github.com/saint0x/overwatch-demo/internal/normalize"
)

// statsServer serves the given bodies by path; other paths get status.
type statsServer struct {
	srv    *httptest.Server
	mu     sync.Mutex
	hits   map[string]int
	apiKey map[string]string
}

func newStatsServer(t *testing.T, bodies map[string]string, status int) *statsServer {
	t.Helper()
	s := &statsServer{hits: map[string]int{}, apiKey: map[string]string{}}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.apiKey[r.URL.Path] = r.Header.Get("x-api-key")
		s.mu.Unlock()

		body, ok := bodies[r.URL.Path]
		if !ok {
			http.Error(w, "boom", status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *statsServer) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *statsServer) keyFor(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apiKey[path]
}

func TestSnapshotPartialFailure(t *testing.T) {
	stats := newStatsServer(t, map[string]string{
		PathOverview: `{"pageViews": 420, "avgDuration": "3:05"}`,
	}, http.StatusInternalServerError)
	m := metrics.New(nil)

	c := NewHTTPClient(stats.srv.URL, "owk_test", HTTPOptions{Metrics: m})
	got, err := c.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, normalize.Metrics{ActiveUsers: 0, PageViews: 420, AvgDuration: "3:05"}, got.Metrics)
	assert.Empty(t, got.Geographic)
	assert.Empty(t, got.Events)
	assert.Equal(t, normalize.DeviceBreakdown{}, got.Devices)
	assert.Equal(t, normalize.PerfMetrics{FCP: 1.5, LCP: 2.5, CLS: 0.1, FID: 100}, got.Performance.Metrics)
	assert.Equal(t, 70, got.Performance.Score)

	for _, path := range []string{PathOverview, PathRealtime, PathAudience, PathPerformance} {
		assert.Equal(t, "owk_test", stats.keyFor(path), path)
	}
	// 5xx is retried up to the attempt limit.
	assert.Equal(t, DefaultSnapshotRetries, stats.hitCount(PathRealtime))
	assert.Equal(t, 1, stats.hitCount(PathOverview))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotRequests.WithLabelValues(PathOverview, outcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotRequests.WithLabelValues(PathAudience, outcomeHTTPError)))
}

func TestSnapshotClientErrorsAreNotRetried(t *testing.T) {
	stats := newStatsServer(t, map[string]string{}, http.StatusUnauthorized)

	c := NewHTTPClient(stats.srv.URL, "owk_bad", HTTPOptions{Retries: 3})
	got, err := c.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.hitCount(PathPerformance))
	// The daemon answered, so this is a merged bundle rather than the empty
	// one: performance falls back to its defaults.
	assert.Equal(t, 70, got.Performance.Score)
}

func TestSnapshotUndecodableBodyCountsAsAnswered(t *testing.T) {
	garbled := `{"pageViews": "lots"`
	stats := newStatsServer(t, map[string]string{
		PathOverview:    garbled,
		PathRealtime:    garbled,
		PathAudience:    `<html>maintenance</html>`,
		PathPerformance: garbled,
	}, http.StatusInternalServerError)
	m := metrics.New(nil)

	c := NewHTTPClient(stats.srv.URL, "owk_test", HTTPOptions{Retries: 3, Metrics: m})
	got, err := c.Snapshot(context.Background())
	require.NoError(t, err)

	// Merged defaults, not the empty bundle.
	assert.NotEqual(t, normalize.EmptyData(), got)
	assert.Equal(t, 70, got.Performance.Score)
	assert.Equal(t, "0:00", got.Metrics.AvgDuration)

	for _, path := range []string{PathOverview, PathRealtime, PathAudience, PathPerformance} {
		assert.Equal(t, 1, stats.hitCount(path), path)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotRequests.WithLabelValues(path, outcomeDecodeError)), path)
	}
	assert.Equal(t, gobreaker.StateClosed, c.breaker.State())
	assert.Zero(t, c.breaker.Counts().ConsecutiveFailures)

	var be *BodyError
	_, err = c.GetAudience(context.Background())
	require.ErrorAs(t, err, &be)
	assert.Equal(t, PathAudience, be.Path)
	assert.False(t, retryable(err))
	assert.True(t, answered(err))
}

func TestSnapshotDaemonUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	m := metrics.New(nil)
	c := NewHTTPClient(url, "owk_test", HTTPOptions{Retries: 1, Metrics: m})
	got, err := c.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, normalize.EmptyData(), got)
	assert.Equal(t, 0, got.Performance.Score)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotRequests.WithLabelValues(PathRealtime, outcomeTransportError)))
}

func TestSnapshotCancelledContext(t *testing.T) {
	stats := newStatsServer(t, map[string]string{}, http.StatusInternalServerError)
	c := NewHTTPClient(stats.srv.URL, "owk_test", HTTPOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Snapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMergeSnapshot(t *testing.T) {
	audience := &AudienceResponse{
		Countries: []AudienceCountry{
			{Country: "United States", Code: "US", Count: 40},
			{Name: "Germany", CountryCode: "DE", Visitors: 12},
			{Code: "FR", Count: 9},
			{},
			{Country: "Japan", Code: "JP", Count: 3},
			{Country: "Brazil", Code: "BR", Count: 2},
		},
		Devices: []AudienceDevice{
			{Type: "desktop", Count: 1},
			{Type: "mobile", Count: 1},
			{Type: "tablet", Count: 1},
		},
	}
	perf := &PerformanceResponse{FCP: &Vital{Value: 1.2}, LCP: &Vital{Value: 0}, FID: &Vital{Value: 350}}

	got := MergeSnapshot(
		&OverviewResponse{PageViews: 99},
		&RealtimeResponse{ActiveUsers: 7},
		audience,
		perf,
	)

	assert.Equal(t, normalize.Metrics{ActiveUsers: 7, PageViews: 99, AvgDuration: "0:00"}, got.Metrics)

	require.Len(t, got.Geographic, MaxSnapshotCountries)
	assert.Equal(t, normalize.GeoEntry{Country: "United States", Code: "US", Count: 40, Color: "#3B82F6"}, got.Geographic[0])
	assert.Equal(t, normalize.GeoEntry{Country: "Germany", Code: "DE", Count: 12, Color: "#52a2ff"}, got.Geographic[1])
	assert.Equal(t, "FR", got.Geographic[2].Country, "code stands in for a missing name")
	assert.Equal(t, normalize.GeoEntry{Country: "Unknown", Code: "XX", Count: 0, Color: "#93c5fd"}, got.Geographic[3])
	assert.Equal(t, "Japan", got.Geographic[4].Country)

	assert.Equal(t, normalize.DeviceBreakdown{Desktop: 33, Mobile: 33, Tablet: 33}, got.Devices)

	// fcp good (25), lcp default 2.5 (15), cls default 0.1 (15), fid poor (5).
	assert.Equal(t, normalize.PerfMetrics{FCP: 1.2, LCP: 2.5, CLS: 0.1, FID: 350}, got.Performance.Metrics)
	assert.Equal(t, 60, got.Performance.Score)
}

func TestMergeSnapshotAllNil(t *testing.T) {
	got := MergeSnapshot(nil, nil, nil, nil)
	assert.Equal(t, normalize.InitialMetrics(), got.Metrics)
	assert.Equal(t, normalize.DeviceBreakdown{}, got.Devices)
	assert.Empty(t, got.Geographic)
	assert.Equal(t, 70, got.Performance.Score)
}
