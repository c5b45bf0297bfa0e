package client

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/saint0x/overwatch-demo/internal/logging"
	"github.com/saint0x/overwatch-demo/internal/metrics"
	"github.com/saint0x/overwatch-demo/internal/normalize"
	"github.com/saint0x/overwatch-demo/internal/registry"
	"github.com/saint0x/overwatch-demo/internal/wire"
)

const (
	DefaultHeartbeatInterval = 15 * time.Second
	DefaultReconnectDelay    = 5 * time.Second
	DefaultReadTimeout       = 60 * time.Second
	writeTimeout             = 10 * time.Second
	handshakeTimeout         = 10 * time.Second
)

// WSOptions tunes a WSClient. Zero fields take the defaults above.
type WSOptions struct {
	HeartbeatInterval time.Duration
	ReconnectDelay    time.Duration
	ReadTimeout       time.Duration
	Dialer            *websocket.Dialer
	Logger            *log.Logger
	Metrics           *metrics.Metrics
}

// WSClient owns the live connection to the daemon. It authenticates with
// the credential given to Start, subscribes to every data channel, keeps a
// heartbeat going and reconnects after a fixed delay whenever the transport
// drops. Normalized values are pushed into the registry from a single read
// goroutine per connection, in frame order.
type WSClient struct {
	url      string
	registry *registry.Registry
	opts     WSOptions
	dialer   *websocket.Dialer
	logger   *log.Logger
	metrics  *metrics.Metrics

	mu         sync.Mutex
	writeMu    sync.Mutex // serialises auth, subscribe and ping writes
	state      ConnectionState
	credential string
	conn       *websocket.Conn
	gen        uint64 // bumped per connection attempt and on Stop
	stopped    bool
	ctx        context.Context
	cancel     context.CancelFunc
	pingCancel context.CancelFunc
	reconnect  *time.Timer
}

// NewWSClient creates a client for the daemon at url that delivers into reg.
func NewWSClient(url string, reg *registry.Registry, opts WSOptions) *WSClient {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	c := &WSClient{
		url:      url,
		registry: reg,
		opts:     opts,
		dialer:   opts.Dialer,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
	if c.dialer == nil {
		c.dialer = &websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}
	if c.metrics == nil {
		c.metrics = metrics.New(nil)
	}
	return c
}

// State returns the current lifecycle state.
func (c *WSClient) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start begins connecting with credential and returns immediately. It is a
// no-op once the client is running or stopped.
func (c *WSClient) Start(credential string) {
	c.mu.Lock()
	if c.stopped || c.ctx != nil {
		c.mu.Unlock()
		return
	}
	c.credential = credential
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.mu.Unlock()

	c.connect()
}

// Stop tears the connection down from any state: the heartbeat and any
// pending reconnect are cancelled, the socket is closed and nothing is
// scheduled afterwards. Safe to call more than once.
func (c *WSClient) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.gen++
	if c.cancel != nil {
		c.cancel()
	}
	c.pingCancel = nil
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	conn := c.conn
	c.conn = nil
	c.setStateLocked(StateClosed)
	c.mu.Unlock()

	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.Close()
	}
	c.logger.Info("stopped")
}

func (c *WSClient) setStateLocked(s ConnectionState) {
	if c.state == s {
		return
	}
	c.logger.Debug("state", "from", c.state, "to", s)
	c.state = s
	c.metrics.ConnectionState.Set(float64(s))
}

// currentLocked reports whether gen is still the live attempt.
func (c *WSClient) currentLocked(gen uint64) bool {
	return !c.stopped && gen == c.gen
}

func (c *WSClient) connect() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.gen++
	gen := c.gen
	ctx := c.ctx
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	go c.run(ctx, gen)
}

func (c *WSClient) run(ctx context.Context, gen uint64) {
	c.logger.Debug("dialing", "url", c.url)
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.degrade(gen, nil, err)
		return
	}

	c.mu.Lock()
	if !c.currentLocked(gen) {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.setStateLocked(StateAuthenticating)
	credential := c.credential
	c.mu.Unlock()

	// Auth goes out before the read loop so it is the first frame the
	// daemon sees on this connection.
	if err := c.write(conn, wire.Auth(credential)); err != nil {
		c.degrade(gen, conn, err)
		return
	}
	c.readLoop(conn, gen)
}

func (c *WSClient) readLoop(conn *websocket.Conn, gen uint64) {
	for {
		conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.degrade(gen, conn, err)
			return
		}
		c.handleFrame(conn, gen, data)
	}
}

func (c *WSClient) handleFrame(conn *websocket.Conn, gen uint64, data []byte) {
	msg, err := wire.Decode(data)
	if err != nil {
		c.metrics.DecodeFailures.Inc()
		c.logger.Warn("dropping frame", "err", err)
		return
	}
	c.metrics.FramesReceived.WithLabelValues(string(msg.Kind())).Inc()

	switch m := msg.(type) {
	case wire.Connected:
		c.logger.Info("daemon greeting", "message", m.Text)
		return
	case wire.Authenticated:
		c.logger.Info("authenticated", "project", m.ProjectID)
		c.onAuthenticated(conn, gen)
		return
	case wire.Subscribed:
		c.logger.Debug("subscribed", "channel", m.Channel)
		return
	case wire.Pong:
		return
	case wire.Error:
		c.logger.Error("daemon error", "code", m.Code, "message", m.Text)
		return
	case wire.Unknown:
		c.logger.Debug("ignoring frame", "type", m.Type)
		return
	}

	c.mu.Lock()
	live := c.currentLocked(gen)
	c.mu.Unlock()
	if !live {
		return
	}
	for _, n := range normalize.Normalize(msg) {
		c.metrics.Notifications.WithLabelValues(string(n.Channel)).Inc()
		c.registry.Notify(n.Channel, n.Value)
	}
}

func (c *WSClient) onAuthenticated(conn *websocket.Conn, gen uint64) {
	c.mu.Lock()
	if !c.currentLocked(gen) || c.state != StateAuthenticating {
		c.mu.Unlock()
		return
	}
	c.setStateLocked(StateSubscribed)
	pingCtx, pingCancel := context.WithCancel(c.ctx)
	c.pingCancel = pingCancel
	c.mu.Unlock()

	for _, ch := range wire.SubscribeChannels {
		if err := c.write(conn, wire.Subscribe(ch)); err != nil {
			// The read loop sees the broken transport next and degrades.
			c.logger.Warn("subscribe failed", "channel", ch, "err", err)
			break
		}
	}
	go c.pingLoop(pingCtx, conn, gen)

	c.notifyConnection(true)
}

// pingLoop sends the application heartbeat while conn is the open
// connection. It exits when the context is cancelled or the connection
// changes.
func (c *WSClient) pingLoop(ctx context.Context, conn *websocket.Conn, gen uint64) {
	ticker := time.NewTicker(c.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			open := c.currentLocked(gen) && c.conn == conn
			c.mu.Unlock()
			if !open {
				return
			}
			if err := c.write(conn, wire.Ping()); err != nil {
				c.logger.Debug("ping failed", "err", err)
				return
			}
		}
	}
}

// degrade handles the end of connection attempt gen: it closes conn, tells
// subscribers the feed is down and schedules exactly one reconnect.
func (c *WSClient) degrade(gen uint64, conn *websocket.Conn, cause error) {
	c.mu.Lock()
	if !c.currentLocked(gen) || c.state == StateDegraded {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if c.pingCancel != nil {
		c.pingCancel()
		c.pingCancel = nil
	}
	if c.conn == conn {
		c.conn = nil
	}
	c.setStateLocked(StateDegraded)
	delay := c.opts.ReconnectDelay
	c.reconnect = time.AfterFunc(delay, func() { c.reconnectNow(gen) })
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	c.metrics.ReconnectsScheduled.Inc()
	c.logger.Warn("connection lost", "err", cause, "retry_in", delay)
	c.notifyConnection(false)
}

func (c *WSClient) reconnectNow(gen uint64) {
	c.mu.Lock()
	if !c.currentLocked(gen) {
		c.mu.Unlock()
		return
	}
	c.reconnect = nil
	c.mu.Unlock()

	c.connect()
}

func (c *WSClient) notifyConnection(connected bool) {
	c.metrics.Notifications.WithLabelValues(string(registry.Connection)).Inc()
	c.registry.Notify(registry.Connection, normalize.ConnectionStatus{Connected: connected})
}

func (c *WSClient) write(conn *websocket.Conn, v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(v)
}
