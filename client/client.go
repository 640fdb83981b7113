package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/streamline-rt/streamline/envelope"
	"github.com/streamline-rt/streamline/heartbeat"
	"github.com/streamline-rt/streamline/metrics"
	"github.com/streamline-rt/streamline/queue"
	"github.com/streamline-rt/streamline/transport"
)

// Common errors.
var ErrInvalidConfig = errors.New("invalid configuration")

// Application-defined close code sent when the client force-closes a
// connection whose heartbeats went unacknowledged.
const closeCodeHeartbeat = 4000

// State is the client's connection lifecycle state.
type State int32

// Client states. WaitingRetry and Exhausted only occur after a connection
// was lost or could not be established.
const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateWaitingRetry
	StateExhausted
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateWaitingRetry:
		return "waiting_retry"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Dispatcher receives every inbound non-control envelope. At most one
// dispatcher is installed per client; fan-out to multiple consumers is the
// router's job.
type Dispatcher func(*envelope.Envelope)

// Config configures a Client.
type Config struct {
	// Service is the logical service name, used in logs and metrics.
	Service string

	// Transport owns the physical connection.
	Transport transport.Transport

	// ReconnectBase is the delay before reconnect attempt 1; attempt k
	// waits base * 2^(k-1).
	// Default: 3 seconds.
	ReconnectBase time.Duration

	// ReconnectMax caps the per-attempt delay.
	// Default: 30 seconds.
	ReconnectMax time.Duration

	// MaxReconnectAttempts before the client gives up and surfaces
	// StateExhausted.
	// Default: 5.
	MaxReconnectAttempts int

	// Heartbeat configures the liveness monitor.
	Heartbeat heartbeat.Config

	// Queue configures the outbound buffer.
	Queue queue.Config

	// Logger for client events. Defaults to a no-op logger.
	Logger zerolog.Logger
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Service == "" {
		return ErrInvalidConfig
	}
	if c.Transport == nil {
		return ErrInvalidConfig
	}
	return nil
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReconnectBase:        3 * time.Second,
		ReconnectMax:         30 * time.Second,
		MaxReconnectAttempts: 5,
		Heartbeat:            heartbeat.DefaultConfig(),
		Queue:                queue.DefaultConfig(),
		Logger:               zerolog.Nop(),
	}
}

// HealthMetrics is a read-only composite of the client's sub-components.
type HealthMetrics struct {
	Service   string           `json:"service"`
	State     string           `json:"state"`
	Connected bool             `json:"connected"`
	Attempt   int              `json:"reconnect_attempt"`
	Queue     queue.Stats      `json:"queue"`
	Heartbeat heartbeat.Health `json:"heartbeat"`
}

// Client is the resilient messaging client for one logical service.
type Client struct {
	service     string
	tr          transport.Transport
	hb          *heartbeat.Monitor
	q           *queue.Outbound
	log         zerolog.Logger
	base        time.Duration
	maxDelay    time.Duration
	maxAttempts int

	mu         sync.Mutex
	state      State
	attempt    int
	retryTimer *time.Timer
	manual     bool
	dispatcher Dispatcher
	stateCBs   []func(State)
}

// New creates a client for one logical service. The connection is not
// opened until Connect.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	def := DefaultConfig()
	if cfg.ReconnectBase <= 0 {
		cfg.ReconnectBase = def.ReconnectBase
	}
	if cfg.ReconnectMax <= 0 {
		cfg.ReconnectMax = def.ReconnectMax
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = def.MaxReconnectAttempts
	}

	log := cfg.Logger.With().Str("component", "client").Str("service", cfg.Service).Logger()
	hbCfg := cfg.Heartbeat
	hbCfg.Logger = log
	qCfg := cfg.Queue
	qCfg.Logger = log

	c := &Client{
		service:     cfg.Service,
		tr:          cfg.Transport,
		hb:          heartbeat.NewMonitor(hbCfg),
		q:           queue.NewOutbound(qCfg),
		log:         log,
		base:        cfg.ReconnectBase,
		maxDelay:    cfg.ReconnectMax,
		maxAttempts: cfg.MaxReconnectAttempts,
		state:       StateIdle,
	}

	c.tr.SetMessageHandler(c.handleFrame)
	c.tr.SetOpenHandler(c.handleOpen)
	c.tr.SetCloseHandler(c.handleClose)
	c.tr.SetErrorHandler(c.handleError)
	c.hb.OnTimeout(c.forceReconnect)

	return c, nil
}

// Service returns the logical service name.
func (c *Client) Service() string {
	return c.service
}

// Connect opens the connection. No-op while already connecting or open.
// Also the way out of StateExhausted: a fresh call resets the attempt
// budget.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.state == StateConnecting || c.state == StateOpen {
		c.mu.Unlock()
		return
	}
	c.cancelRetryLocked()
	c.manual = false
	c.attempt = 0
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	go c.dial()
}

// Disconnect closes the connection and cancels all pending activity:
// heartbeat timers, the retry timer, and the outbound queue (queued but
// undelivered messages are intentionally dropped). No further send,
// heartbeat or reconnect activity occurs until Connect is called again.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.manual = true
	c.cancelRetryLocked()
	c.setStateLocked(StateIdle)
	c.mu.Unlock()

	c.hb.Stop()
	c.tr.Disconnect(transport.CloseNormal, "client disconnect")

	if n := c.q.Clear(); n > 0 {
		c.log.Info().Int("dropped", n).Msg("cleared outbound queue on disconnect")
		for i := 0; i < n; i++ {
			metrics.MessageDropped(metrics.DropDisconnect)
		}
	}
}

// Send stamps, serializes and delivers an envelope. Fire-and-forget: if the
// transport is not open or the write fails, the message is buffered and
// flushed on reconnect.
func (c *Client) Send(env envelope.Envelope) {
	stamped := envelope.Stamp(env)
	data, err := stamped.Marshal()
	if err != nil {
		c.log.Error().Err(err).Str("type", env.Type).Msg("dropping unserializable envelope")
		return
	}

	if c.tr.Send(data) {
		metrics.MessageSent(c.service)
		return
	}

	c.q.Enqueue(data)
	metrics.MessageQueued(c.service)
}

// Subscribe declares interest in a message type to the server. This is a
// protocol-level declaration, distinct from in-process subscriptions held
// by the router.
func (c *Client) Subscribe(messageType string) {
	c.Send(*envelope.Subscribe(messageType))
}

// Unsubscribe withdraws interest in a message type.
func (c *Client) Unsubscribe(messageType string) {
	c.Send(*envelope.Unsubscribe(messageType))
}

// IsConnected reports whether the connection is open.
func (c *Client) IsConnected() bool {
	return c.State() == StateOpen
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnStateChange registers a callback for lifecycle transitions. Callbacks
// run synchronously on the transition path and must not block.
func (c *Client) OnStateChange(cb func(State)) {
	c.mu.Lock()
	c.stateCBs = append(c.stateCBs, cb)
	c.mu.Unlock()
}

// SetDispatcher installs the single inbound dispatcher, replacing any
// previous one.
func (c *Client) SetDispatcher(d Dispatcher) {
	c.mu.Lock()
	c.dispatcher = d
	c.mu.Unlock()
}

// ClearDispatcher removes the inbound dispatcher. The connection is not
// affected.
func (c *Client) ClearDispatcher() {
	c.SetDispatcher(nil)
}

// HealthMetrics returns a read-only composite of connection, queue and
// heartbeat state.
func (c *Client) HealthMetrics() HealthMetrics {
	c.mu.Lock()
	state := c.state
	attempt := c.attempt
	c.mu.Unlock()

	return HealthMetrics{
		Service:   c.service,
		State:     state.String(),
		Connected: state == StateOpen,
		Attempt:   attempt,
		Queue:     c.q.Stats(),
		Heartbeat: c.hb.Health(),
	}
}

// dial runs one connection attempt. Failures go through the backoff path.
func (c *Client) dial() {
	metrics.ConnectAttempt(c.service)

	if err := c.tr.Connect(context.Background()); err != nil {
		c.log.Warn().Err(err).Msg("connect attempt failed")
		c.scheduleReconnect()
	}
}

// handleOpen starts the heartbeat and flushes the queue. An open event that
// arrives after a manual Disconnect, or outside a connecting cycle, is stale:
// the socket it announces is unwanted and gets closed instead of adopted.
func (c *Client) handleOpen() {
	c.mu.Lock()
	if c.manual || c.state != StateConnecting {
		c.mu.Unlock()
		c.log.Debug().Msg("discarding stale open event")
		c.tr.Disconnect(transport.CloseNormal, "stale open")
		return
	}
	c.attempt = 0
	c.setStateLocked(StateOpen)
	c.mu.Unlock()

	c.log.Info().Msg("connected")

	if err := c.hb.Start(c.probe); err != nil && !errors.Is(err, heartbeat.ErrAlreadyStarted) {
		c.log.Error().Err(err).Msg("starting heartbeat")
	}

	c.flushQueue()
}

// probe sends one ping envelope; the pong handler feeds the ack back.
func (c *Client) probe() bool {
	data, err := envelope.Ping().Marshal()
	if err != nil {
		return false
	}
	return c.tr.Send(data)
}

// handleClose reacts to the transport closing. Manual closes were initiated
// here and need no recovery; anything else schedules a reconnect.
func (c *Client) handleClose(code int, manual bool) {
	if manual {
		return
	}

	c.log.Warn().Int("code", code).Msg("connection lost")
	c.hb.Stop()
	c.scheduleReconnect()
}

// handleError logs transport errors. Recovery is driven by the close and
// dial paths, never from here, so one failure cannot schedule two retries.
func (c *Client) handleError(err error) {
	c.log.Debug().Err(err).Msg("transport error")
}

// forceReconnect drops a connection whose heartbeats went unacknowledged
// and begins the reconnect sequence exactly as if the socket had dropped.
func (c *Client) forceReconnect() {
	c.mu.Lock()
	if c.manual || c.state != StateOpen {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.log.Warn().Msg("heartbeat timeout, forcing reconnect")
	c.tr.Disconnect(closeCodeHeartbeat, "heartbeat timeout")
	c.scheduleReconnect()
}

// handleFrame parses one inbound frame. Malformed frames are logged and
// dropped; pongs feed the heartbeat and are not forwarded.
func (c *Client) handleFrame(data []byte) {
	env, err := envelope.Parse(data)
	if err != nil {
		c.log.Warn().Err(err).Msg("dropping malformed frame")
		metrics.ParseError(c.service)
		return
	}

	if env.Type == envelope.TypePong {
		c.hb.HandleAck()
		return
	}

	c.mu.Lock()
	dispatch := c.dispatcher
	c.mu.Unlock()

	if dispatch != nil {
		dispatch(env)
	}
}

// flushQueue drains the outbound queue batch by batch, stopping at the
// first failed send so ordering is preserved and a dead connection does not
// spin.
func (c *Client) flushQueue() {
	for {
		batch := c.q.DequeueBatch(0)
		if len(batch) == 0 {
			return
		}

		for i, msg := range batch {
			if c.tr.Send(msg.Data) {
				c.q.MarkSent(msg.ID)
				metrics.MessageFlushed(c.service)
				continue
			}

			c.q.MarkFailed(msg.ID)
			c.q.RequeueFront(batch[i+1:])
			return
		}
	}
}

// scheduleReconnect arms the single retry timer with exponential backoff,
// or surfaces StateExhausted once the attempt budget is spent.
func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	if c.manual || c.retryTimer != nil {
		c.mu.Unlock()
		return
	}

	c.attempt++
	if c.attempt > c.maxAttempts {
		c.setStateLocked(StateExhausted)
		c.mu.Unlock()

		c.log.Error().Int("attempts", c.maxAttempts).Msg("reconnect attempts exhausted")
		metrics.ReconnectExhausted(c.service)
		return
	}

	delay := c.backoff(c.attempt)
	attempt := c.attempt
	c.setStateLocked(StateWaitingRetry)
	c.retryTimer = time.AfterFunc(delay, c.retryFire)
	c.mu.Unlock()

	c.log.Info().Int("attempt", attempt).Dur("delay", delay).Msg("reconnect scheduled")
	metrics.ReconnectAttempt(c.service)
}

// retryFire transitions WaitingRetry -> Connecting when the timer fires.
// A disconnect that raced the timer leaves the state machine alone.
func (c *Client) retryFire() {
	c.mu.Lock()
	if c.state != StateWaitingRetry {
		c.mu.Unlock()
		return
	}
	c.retryTimer = nil
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	c.dial()
}

// backoff returns base * 2^(attempt-1) capped at the configured maximum.
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.maxDelay {
			return c.maxDelay
		}
	}
	if delay > c.maxDelay {
		return c.maxDelay
	}
	return delay
}

// cancelRetryLocked stops the authoritative retry timer. Caller holds c.mu.
func (c *Client) cancelRetryLocked() {
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
}

// setStateLocked transitions the state machine and notifies observers.
// Caller holds c.mu; callbacks are invoked asynchronously to keep the
// transition path lock-free for callers.
func (c *Client) setStateLocked(next State) {
	if c.state == next {
		return
	}
	c.state = next

	if len(c.stateCBs) == 0 {
		return
	}
	callbacks := make([]func(State), len(c.stateCBs))
	copy(callbacks, c.stateCBs)
	go func() {
		for _, cb := range callbacks {
			cb(next)
		}
	}()
}
