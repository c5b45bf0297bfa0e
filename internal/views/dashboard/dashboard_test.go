package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saint0x/overwatch-demo/internal/normalize"
)

func intp(n int) *int { return &n }

func TestApplyMetricsKeepsAbsentFields(t *testing.T) {
	m := New()
	m.ApplyMetrics(normalize.MetricsUpdate{ActiveUsers: intp(12), AvgDuration: "2:34"})
	m.ApplyMetrics(normalize.MetricsUpdate{PageViews: intp(900)})

	assert.Equal(t, normalize.Metrics{ActiveUsers: 12, PageViews: 900, AvgDuration: "2:34"}, m.Metrics)
}

func TestApplyPerformanceRecomputesScore(t *testing.T) {
	m := New()
	m.ApplySnapshot(normalize.RealtimeData{
		Performance: normalize.PerformanceState{
			Score:   100,
			Metrics: normalize.PerfMetrics{FCP: 1.0, LCP: 2.0, CLS: 0.05, FID: 50},
		},
	})
	m.ApplyPerformance(normalize.PerformanceSample{MetricName: "LCP", Value: 5.0, Rating: "poor"})

	assert.Equal(t, 80, m.Performance.Score)
	assert.Equal(t, 5.0, m.Performance.Metrics.LCP)
	assert.Equal(t, "LCP", m.LastSample.MetricName)
}

func TestAnimateSettlesOnScore(t *testing.T) {
	m := New()
	m.Performance.Score = 70

	require.True(t, m.Animate())
	for i := 0; i < 10*FPS && m.Animate(); i++ {
	}
	assert.Equal(t, 70.0, m.Gauge())
	assert.False(t, m.Animate())
}

func TestView(t *testing.T) {
	m := New()
	m.Width = 100
	m.ApplySnapshot(normalize.RealtimeData{
		Metrics: normalize.Metrics{ActiveUsers: 1500, PageViews: 2_500_000, AvgDuration: "1:05"},
		Devices: normalize.DeviceBreakdown{Desktop: 60, Mobile: 30, Tablet: 10},
	})

	v := m.View()
	assert.Contains(t, v, "1.5K")
	assert.Contains(t, v, "2.5M")
	assert.Contains(t, v, "1:05")
	assert.Contains(t, v, "Desktop")
	assert.Contains(t, v, "Performance")
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "999", formatCount(999))
	assert.Equal(t, "1.0K", formatCount(1000))
	assert.Equal(t, "1.2M", formatCount(1_234_567))
}
