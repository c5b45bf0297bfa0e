package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/saint0x/overwatch-demo/internal/logging"
	"github.com/saint0x/overwatch-demo/internal/metrics"
	"github.com/saint0x/overwatch-demo/internal/normalize"
	"github.com/saint0x/overwatch-demo/internal/registry"
)

const (
	DefaultWSURL   = "wss://overwatch-daemon.fly.dev/ws/realtime"
	DefaultBaseURL = "https://overwatch-daemon.fly.dev"
)

// Options configures a Client. Zero values take the package defaults.
type Options struct {
	WSURL   string
	BaseURL string

	HeartbeatInterval time.Duration
	ReconnectDelay    time.Duration
	ReadTimeout       time.Duration
	HTTPTimeout       time.Duration
	SnapshotRetries   uint

	// Page is reported to the sink once Init has resolved it.
	Page        PageMeta
	SinkFactory SinkFactory

	Registry   *registry.Registry
	Logger     *log.Logger
	Metrics    *metrics.Metrics
	HTTPClient *http.Client
	Now        func() time.Time
}

// InitConfig is what Init needs from the embedding application.
type InitConfig struct {
	APIKey string
	Debug  bool
}

// Client is the public face of the package: one per process, created with
// New and made live by Init. Every operation except State fails with
// *UninitializedClientError until Init has completed.
type Client struct {
	opts     Options
	registry *registry.Registry
	logger   *log.Logger
	metrics  *metrics.Metrics
	session  *SessionTracker

	mu          sync.Mutex
	initialized bool
	live        live
}

// live holds what Init creates.
type live struct {
	ws   *WSClient
	http *HTTPClient
	sink TrackingSink
}

// New builds an uninitialized client. The visitor session starts here.
func New(opts Options) *Client {
	if opts.WSURL == "" {
		opts.WSURL = DefaultWSURL
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &Client{
		opts:     opts,
		registry: opts.Registry,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		session:  NewSessionTracker(opts.Now()),
	}
	if c.registry == nil {
		c.registry = registry.New()
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}
	if c.metrics == nil {
		c.metrics = metrics.New(nil)
	}
	return c
}

// Init resolves the tracking sink, reports the page view and starts the
// live connection. The client only counts as initialized once all of that
// is done. A second call returns ErrAlreadyInitialized.
func (c *Client) Init(ctx context.Context, cfg InitConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return ErrAlreadyInitialized
	}
	if cfg.APIKey == "" {
		return ErrMissingAPIKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if cfg.Debug {
		c.logger.SetLevel(log.DebugLevel)
	}

	var sink TrackingSink
	if c.opts.SinkFactory != nil {
		s, err := c.opts.SinkFactory(ctx, cfg.APIKey)
		if err != nil {
			c.logger.Warn("tracking disabled", "err", err)
		} else {
			sink = s
		}
	}
	if sink != nil {
		sink.Page(c.opts.Page)
	}

	httpc := NewHTTPClient(c.opts.BaseURL, cfg.APIKey, HTTPOptions{
		Timeout: c.opts.HTTPTimeout,
		Retries: c.opts.SnapshotRetries,
		Client:  c.opts.HTTPClient,
		Logger:  c.logger.WithPrefix("snapshot"),
		Metrics: c.metrics,
	})
	ws := NewWSClient(c.opts.WSURL, c.registry, WSOptions{
		HeartbeatInterval: c.opts.HeartbeatInterval,
		ReconnectDelay:    c.opts.ReconnectDelay,
		ReadTimeout:       c.opts.ReadTimeout,
		Logger:            c.logger.WithPrefix("ws"),
		Metrics:           c.metrics,
	})
	ws.Start(cfg.APIKey)

	c.live = live{ws: ws, http: httpc, sink: sink}
	c.initialized = true
	c.logger.Info("initialized", "session", c.session.Snapshot().SessionID, "tracking", sink != nil)
	return nil
}

// guard is the single initialization check behind every public operation.
func (c *Client) guard(op string) (live, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return live{}, &UninitializedClientError{Op: op}
	}
	return c.live, nil
}

// GetSnapshot fetches the REST snapshot bundle.
func (c *Client) GetSnapshot(ctx context.Context) (normalize.RealtimeData, error) {
	l, err := c.guard("GetSnapshot")
	if err != nil {
		return normalize.RealtimeData{}, err
	}
	return l.http.Snapshot(ctx)
}

// Track records a custom event and forwards it to the sink.
func (c *Client) Track(event TrackEvent) error {
	l, err := c.guard("Track")
	if err != nil {
		return err
	}
	if event.Type == "" {
		return ErrEmptyEventType
	}
	c.session.IncEvent()
	c.metrics.TrackedEvents.WithLabelValues("track").Inc()
	if l.sink != nil {
		l.sink.Track(event)
	}
	return nil
}

// TrackClick records a click on selector and forwards it to the sink.
func (c *Client) TrackClick(selector string, data map[string]any) error {
	l, err := c.guard("TrackClick")
	if err != nil {
		return err
	}
	c.session.IncEvent()
	c.metrics.TrackedEvents.WithLabelValues("click").Inc()
	if l.sink != nil {
		l.sink.Click(selector, data)
	}
	return nil
}

// GetSession returns the visitor session record.
func (c *Client) GetSession() (SessionInfo, error) {
	l, err := c.guard("GetSession")
	if err != nil {
		return SessionInfo{}, err
	}
	return c.session.Resolve(l.sink), nil
}

// Subscribe registers fn on ch and returns its unsubscribe function.
func (c *Client) Subscribe(ch registry.Channel, fn func(any)) (func(), error) {
	if _, err := c.guard("Subscribe"); err != nil {
		return nil, err
	}
	if !ch.Valid() {
		return nil, fmt.Errorf("subscribe %q: %w", ch, ErrUnknownChannel)
	}
	return c.registry.Subscribe(ch, fn), nil
}

// Disconnect stops the live connection and destroys the sink. The session
// record survives; later tracking calls are counted but not forwarded.
func (c *Client) Disconnect() error {
	l, err := c.guard("Disconnect")
	if err != nil {
		return err
	}
	l.ws.Stop()

	c.mu.Lock()
	c.live.sink = nil
	c.mu.Unlock()
	if l.sink != nil {
		l.sink.Destroy()
	}
	return nil
}

// State reports the live connection state; StateIdle before Init.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	ws := c.live.ws
	c.mu.Unlock()
	if ws == nil {
		return StateIdle
	}
	return ws.State()
}
