package client

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/saint0x/overwatch-demo/internal/normalize"
)

// MaxSnapshotCountries caps the geographic rows taken from the audience
// report.
const MaxSnapshotCountries = 5

// Web-vital values used when the performance report lacks one (or reports
// zero).
const (
	DefaultFCP = 1.5
	DefaultLCP = 2.5
	DefaultCLS = 0.1
	DefaultFID = 100
)

// Snapshot reads the four stats endpoints in parallel and merges whatever
// answered into one bundle. A failed endpoint only blanks its own section;
// if none of them could be reached the result is normalize.EmptyData().
// The error is non-nil only when ctx ended first.
func (c *HTTPClient) Snapshot(ctx context.Context) (normalize.RealtimeData, error) {
	var (
		wg          sync.WaitGroup
		overview    *OverviewResponse
		realtime    *RealtimeResponse
		audience    *AudienceResponse
		performance *PerformanceResponse
		errs        [4]error
	)
	wg.Add(4)
	go func() { defer wg.Done(); overview, errs[0] = c.GetOverview(ctx) }()
	go func() { defer wg.Done(); realtime, errs[1] = c.GetRealtime(ctx) }()
	go func() { defer wg.Done(); audience, errs[2] = c.GetAudience(ctx) }()
	go func() { defer wg.Done(); performance, errs[3] = c.GetPerformance(ctx) }()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return normalize.RealtimeData{}, err
	}

	unreachable := 0
	for _, err := range errs {
		if err != nil && !answered(err) {
			unreachable++
		}
	}
	if unreachable == len(errs) {
		c.logger.Warn("snapshot unavailable, using empty data", "err", errors.Join(errs[:]...))
		return normalize.EmptyData(), nil
	}
	return MergeSnapshot(overview, realtime, audience, performance), nil
}

// MergeSnapshot builds the bundle from the individual reports. Any report
// may be nil; missing fields fall back to zero values and the documented
// vital defaults. Events are never part of a snapshot.
func MergeSnapshot(overview *OverviewResponse, realtime *RealtimeResponse, audience *AudienceResponse, performance *PerformanceResponse) normalize.RealtimeData {
	out := normalize.RealtimeData{
		Metrics:    normalize.InitialMetrics(),
		Events:     []normalize.Event{},
		Geographic: []normalize.GeoEntry{},
	}

	if realtime != nil {
		out.Metrics.ActiveUsers = realtime.ActiveUsers
	}
	if overview != nil {
		out.Metrics.PageViews = overview.PageViews
		if overview.AvgDuration != "" {
			out.Metrics.AvgDuration = overview.AvgDuration
		}
	}

	var devices []AudienceDevice
	if audience != nil {
		for i, country := range audience.Countries {
			if i == MaxSnapshotCountries {
				break
			}
			out.Geographic = append(out.Geographic, geoFromAudience(i, country))
		}
		devices = audience.Devices
	}
	out.Devices = devicesFromAudience(devices)

	var vitals PerformanceResponse
	if performance != nil {
		vitals = *performance
	}
	perf := normalize.PerfMetrics{
		FCP: vitalOr(vitals.FCP, DefaultFCP),
		LCP: vitalOr(vitals.LCP, DefaultLCP),
		CLS: vitalOr(vitals.CLS, DefaultCLS),
		FID: vitalOr(vitals.FID, DefaultFID),
	}
	out.Performance = normalize.PerformanceState{Score: normalize.Score(perf), Metrics: perf}
	return out
}

func geoFromAudience(i int, c AudienceCountry) normalize.GeoEntry {
	return normalize.GeoEntry{
		Country: firstNonEmpty(c.Country, c.Name, c.Code, "Unknown"),
		Code:    firstNonEmpty(c.Code, c.CountryCode, "XX"),
		Count:   firstNonZero(c.Count, c.Visitors),
		Color:   normalize.PaletteColor(i),
	}
}

// devicesFromAudience rounds each device count to a share of the total. An
// empty list (total zero) gives all zeros.
func devicesFromAudience(devices []AudienceDevice) normalize.DeviceBreakdown {
	total := 0
	for _, d := range devices {
		total += d.Count
	}
	if total == 0 {
		total = 1
	}
	share := func(kind string) int {
		for _, d := range devices {
			if d.Type == kind {
				return int(math.Round(float64(d.Count) / float64(total) * 100))
			}
		}
		return 0
	}
	return normalize.DeviceBreakdown{
		Desktop: share("desktop"),
		Mobile:  share("mobile"),
		Tablet:  share("tablet"),
	}
}

func vitalOr(v *Vital, def float64) float64 {
	if v == nil || v.Value == 0 || math.IsNaN(v.Value) {
		return def
	}
	return v.Value
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
