package normalize

import (
	"math"
	"strings"
)

// PerfMetrics holds the four web vitals. FCP and LCP are seconds, FID is
// milliseconds, CLS is unitless.
type PerfMetrics struct {
	FCP float64 `json:"fcp" yaml:"fcp"`
	LCP float64 `json:"lcp" yaml:"lcp"`
	CLS float64 `json:"cls" yaml:"cls"`
	FID float64 `json:"fid" yaml:"fid"`
}

// PerformanceState is the held score together with the metrics it was
// computed from.
type PerformanceState struct {
	Score   int         `json:"score" yaml:"score"`
	Metrics PerfMetrics `json:"metrics" yaml:"metrics"`
}

type threshold struct{ good, poor float64 }

var (
	fcpThreshold = threshold{1.8, 3.0}
	lcpThreshold = threshold{2.5, 4.0}
	clsThreshold = threshold{0.1, 0.25}
	fidThreshold = threshold{100, 300}
)

func (t threshold) points(v float64) int {
	switch {
	case v < t.good:
		return 25
	case v < t.poor:
		return 15
	default:
		return 5
	}
}

// Score awards 25/15/5 points per vital (good / needs improvement / poor).
// The result is between 20 and 100.
func Score(m PerfMetrics) int {
	return fcpThreshold.points(m.FCP) +
		lcpThreshold.points(m.LCP) +
		clsThreshold.points(m.CLS) +
		fidThreshold.points(m.FID)
}

// Apply replaces the metric named by the sample (case-insensitive) and
// recomputes the score. Unknown metric names leave the metrics unchanged
// but the score is still recomputed, so the pair stays consistent.
func (p PerformanceState) Apply(s PerformanceSample) PerformanceState {
	m := p.Metrics
	if !math.IsNaN(s.Value) {
		switch strings.ToLower(s.MetricName) {
		case "fcp":
			m.FCP = s.Value
		case "lcp":
			m.LCP = s.Value
		case "cls":
			m.CLS = s.Value
		case "fid":
			m.FID = s.Value
		}
	}
	return PerformanceState{Score: Score(m), Metrics: m}
}
