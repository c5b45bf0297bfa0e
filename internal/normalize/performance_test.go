package normalize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreBounds(t *testing.T) {
	good := PerfMetrics{FCP: 1.0, LCP: 2.0, CLS: 0.05, FID: 50}
	poor := PerfMetrics{FCP: 3.0, LCP: 4.0, CLS: 0.25, FID: 300}
	mid := PerfMetrics{FCP: 1.8, LCP: 2.5, CLS: 0.1, FID: 100}

	assert.Equal(t, 100, Score(good))
	assert.Equal(t, 20, Score(poor))
	assert.Equal(t, 60, Score(mid), "values exactly at the good threshold are not good")
}

func TestScoreMixed(t *testing.T) {
	assert.Equal(t, 25+15+5+25, Score(PerfMetrics{FCP: 1.2, LCP: 3.9, CLS: 0.4, FID: 10}))
}

func TestApplyReplacesAndRescores(t *testing.T) {
	var p PerformanceState
	p = p.Apply(PerformanceSample{MetricName: "LCP", Value: 3.0})
	assert.Equal(t, 3.0, p.Metrics.LCP)
	assert.Equal(t, 25+15+25+25, p.Score)

	p = p.Apply(PerformanceSample{MetricName: "fid", Value: 500})
	assert.Equal(t, 500.0, p.Metrics.FID)
	assert.Equal(t, Score(p.Metrics), p.Score)
}

func TestApplyUnknownMetric(t *testing.T) {
	start := PerformanceState{Score: 0, Metrics: PerfMetrics{FCP: 5, LCP: 5, CLS: 5, FID: 500}}
	p := start.Apply(PerformanceSample{MetricName: "TTFB", Value: 0.2})
	assert.Equal(t, start.Metrics, p.Metrics)
	assert.Equal(t, 20, p.Score, "score is recomputed even when nothing changed")
}

func TestApplyIgnoresNaN(t *testing.T) {
	start := PerformanceState{Metrics: PerfMetrics{CLS: 0.05}}
	p := start.Apply(PerformanceSample{MetricName: "CLS", Value: math.NaN()})
	assert.Equal(t, 0.05, p.Metrics.CLS)
}

func TestMetricsMerge(t *testing.T) {
	m := InitialMetrics()
	assert.Equal(t, Metrics{AvgDuration: "0:00"}, m)

	m = m.Merge(MetricsUpdate{ActiveUsers: intp(5), PageViews: intp(10), AvgDuration: "1:05"})
	assert.Equal(t, Metrics{ActiveUsers: 5, PageViews: 10, AvgDuration: "1:05"}, m)

	m = m.Merge(MetricsUpdate{PageViews: intp(0)})
	assert.Equal(t, Metrics{ActiveUsers: 5, PageViews: 0, AvgDuration: "1:05"}, m)
}

func TestClampSimulated(t *testing.T) {
	d := DeviceBreakdown{Desktop: 90, Mobile: 10, Tablet: 20}.ClampSimulated()
	assert.Equal(t, DeviceBreakdown{Desktop: 70, Mobile: 20, Tablet: 15}, d)

	d = DeviceBreakdown{Desktop: 55, Mobile: 35, Tablet: 1}.ClampSimulated()
	assert.Equal(t, DeviceBreakdown{Desktop: 55, Mobile: 35, Tablet: 5}, d)
}

func TestPrependEvent(t *testing.T) {
	var feed []Event
	for i := 0; i < 15; i++ {
		feed = PrependEvent(feed, Event{ID: string(rune('a' + i))}, MaxRecentEvents)
	}
	assert.Len(t, feed, MaxRecentEvents)
	assert.Equal(t, "o", feed[0].ID)
	assert.Equal(t, "f", feed[9].ID)
}

func TestEmptyData(t *testing.T) {
	d := EmptyData()
	assert.Equal(t, "0:00", d.Metrics.AvgDuration)
	assert.NotNil(t, d.Events)
	assert.NotNil(t, d.Geographic)
	assert.Equal(t, PerformanceState{}, d.Performance)
}
