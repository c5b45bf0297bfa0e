// Package telemetry is the outbound tracking sink: page views, custom
// events and clicks posted to the Overwatch collector.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/host"
	"golang.org/x/time/rate"

	"github.com/saint0x/overwatch-demo/internal/client"
	"github.com/saint0x/overwatch-demo/internal/logging"
)

const (
	collectPath    = "/collect"
	defaultRate    = 5
	defaultBurst   = 10
	requestTimeout = 5 * time.Second
)

// Options configures a Sink. Zero values take defaults.
type Options struct {
	Collector string
	APIKey    string
	// Events per second, with Burst headroom. Anything over is dropped.
	Rate   float64
	Burst  int
	Client *http.Client
	Logger *log.Logger
	Now    func() time.Time
	// HostInfo overrides the gopsutil lookup, mostly for tests.
	HostInfo func(ctx context.Context) (*host.InfoStat, error)
}

// HostMeta is the platform description attached to every payload.
type HostMeta struct {
	OS       string `json:"os"`
	Platform string `json:"platform,omitempty"`
	Version  string `json:"version,omitempty"`
	Arch     string `json:"arch"`
}

// payload is the body posted to /collect.
type payload struct {
	Kind      string             `json:"kind"`
	SessionID string             `json:"sessionId"`
	Timestamp int64              `json:"timestamp"`
	Host      HostMeta           `json:"host"`
	Page      *client.PageMeta   `json:"page,omitempty"`
	Event     *client.TrackEvent `json:"event,omitempty"`
	Selector  string             `json:"selector,omitempty"`
	Data      map[string]any     `json:"data,omitempty"`
}

// Sink implements client.TrackingSink. Sends happen in the background;
// failures are logged and never surface to the caller.
type Sink struct {
	endpoint  string
	apiKey    string
	client    *http.Client
	limiter   *rate.Limiter
	logger    *log.Logger
	now       func() time.Time
	sessionID string
	host      HostMeta

	mu         sync.Mutex
	eventCount int
	closed     bool
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

var _ client.TrackingSink = (*Sink)(nil)

// New creates a sink posting to opts.Collector. The host lookup is best
// effort; only an unusable collector URL is an error.
func New(ctx context.Context, opts Options) (*Sink, error) {
	u, err := url.Parse(opts.Collector)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("telemetry collector %q: invalid url", opts.Collector)
	}
	if opts.Rate <= 0 {
		opts.Rate = defaultRate
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: requestTimeout}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.HostInfo == nil {
		opts.HostInfo = host.InfoWithContext
	}

	s := &Sink{
		endpoint:  strings.TrimRight(opts.Collector, "/") + collectPath,
		apiKey:    opts.APIKey,
		client:    opts.Client,
		limiter:   rate.NewLimiter(rate.Limit(opts.Rate), opts.Burst),
		logger:    opts.Logger,
		now:       opts.Now,
		sessionID: uuid.NewString(),
		host:      HostMeta{OS: runtime.GOOS, Arch: runtime.GOARCH},
	}
	if info, err := opts.HostInfo(ctx); err != nil {
		s.logger.Debug("host info unavailable", "err", err)
	} else {
		s.host.OS = info.OS
		s.host.Platform = info.Platform
		s.host.Version = info.PlatformVersion
		if info.KernelArch != "" {
			s.host.Arch = info.KernelArch
		}
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

// Factory adapts New to client.SinkFactory, filling in the API key Init
// was given.
func Factory(opts Options) client.SinkFactory {
	return func(ctx context.Context, apiKey string) (client.TrackingSink, error) {
		opts.APIKey = apiKey
		return New(ctx, opts)
	}
}

func (s *Sink) Page(meta client.PageMeta) {
	s.send(payload{Kind: "page", Page: &meta}, false)
}

func (s *Sink) Track(event client.TrackEvent) {
	s.send(payload{Kind: "track", Event: &event}, true)
}

func (s *Sink) Click(selector string, data map[string]any) {
	s.send(payload{Kind: "click", Selector: selector, Data: data}, true)
}

// Session reports the sink's own session id and the events it has sent.
func (s *Sink) Session() client.SinkSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return client.SinkSession{SessionID: s.sessionID, EventCount: s.eventCount}
}

// Destroy waits for in-flight sends and drops anything sent afterwards.
func (s *Sink) Destroy() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.wg.Wait()
	s.cancel()
}

func (s *Sink) send(p payload, counts bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if !s.limiter.Allow() {
		s.mu.Unlock()
		s.logger.Warn("rate limited, dropping", "kind", p.Kind)
		return
	}
	if counts {
		s.eventCount++
	}
	s.wg.Add(1)
	s.mu.Unlock()

	p.SessionID = s.sessionID
	p.Timestamp = s.now().UnixMilli()
	p.Host = s.host

	go func() {
		defer s.wg.Done()
		if err := s.post(p); err != nil {
			s.logger.Warn("send failed", "kind", p.Kind, "err", err)
		}
	}()
}

func (s *Sink) post(p payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", p.Kind, err)
	}
	req, err := http.NewRequestWithContext(s.ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("POST %s: %d %s", collectPath, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
