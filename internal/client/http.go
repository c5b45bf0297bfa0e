package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/charmbracelet/log"
	"github.com/sony/gobreaker"

	"github.com/saint0x/overwatch-demo/internal/logging"
	"github.com/saint0x/overwatch-demo/internal/metrics"
)

const (
	DefaultHTTPTimeout     = 10 * time.Second
	DefaultSnapshotRetries = 2
	retryDelay             = 200 * time.Millisecond
)

// Snapshot request outcomes, as recorded in metrics.
const (
	outcomeOK             = "ok"
	outcomeHTTPError      = "http_error"
	outcomeTransportError = "transport_error"
	outcomeBreakerOpen    = "breaker_open"
	outcomeDecodeError    = "decode_error"
)

// HTTPOptions tunes an HTTPClient. Zero fields take defaults.
type HTTPOptions struct {
	Timeout time.Duration
	// Attempts per endpoint, including the first.
	Retries uint
	Client  *http.Client
	Logger  *log.Logger
	Metrics *metrics.Metrics
}

// HTTPClient makes the snapshot REST calls to the daemon. Every GET is
// retried on transport errors and 5xx, and all of them share one circuit
// breaker.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	retries uint
	breaker *gobreaker.CircuitBreaker
	logger  *log.Logger
	metrics *metrics.Metrics
}

// NewHTTPClient creates a client targeting baseURL (e.g.
// "https://overwatch-daemon.fly.dev") that authenticates with apiKey.
func NewHTTPClient(baseURL, apiKey string, opts HTTPOptions) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  opts.Client,
		retries: opts.Retries,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	if c.client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultHTTPTimeout
		}
		c.client = &http.Client{Timeout: timeout}
	}
	if c.retries == 0 {
		c.retries = DefaultSnapshotRetries
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}
	if c.metrics == nil {
		c.metrics = metrics.New(nil)
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "overwatch-snapshot",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 8
		},
		// A 4xx or an undecodable body is the daemon answering; only
		// unreachable or failing daemons count against the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || !retryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// GetOverview fetches /stats/overview.
func (c *HTTPClient) GetOverview(ctx context.Context) (*OverviewResponse, error) {
	var out OverviewResponse
	if err := c.get(ctx, PathOverview, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRealtime fetches /stats/realtime.
func (c *HTTPClient) GetRealtime(ctx context.Context) (*RealtimeResponse, error) {
	var out RealtimeResponse
	if err := c.get(ctx, PathRealtime, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAudience fetches /stats/audience.
func (c *HTTPClient) GetAudience(ctx context.Context) (*AudienceResponse, error) {
	var out AudienceResponse
	if err := c.get(ctx, PathAudience, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPerformance fetches /stats/performance.
func (c *HTTPClient) GetPerformance(ctx context.Context) (*PerformanceResponse, error) {
	var out PerformanceResponse
	if err := c.get(ctx, PathPerformance, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(c.retries),
			retry.Delay(retryDelay),
			retry.DelayType(retry.FixedDelay),
			retry.RetryIf(retryable),
			retry.LastErrorOnly(true),
		)
		return nil, r.Do(func() error {
			return c.getOnce(ctx, path, out)
		})
	})

	outcome := outcomeOK
	var se *StatusError
	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = outcomeBreakerOpen
	case errors.As(err, &se):
		outcome = outcomeHTTPError
	default:
		outcome = outcomeTransportError
	}
	c.metrics.SnapshotRequests.WithLabelValues(path, outcome).Inc()
	if err != nil {
		c.logger.Warn("snapshot request failed", "path", path, "outcome", outcome, "err", err)
	}
	return err
}

func (c *HTTPClient) getOnce(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return retry.Unrecoverable(err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &BodyError{Path: path, Err: err}
	}
	return nil
}
