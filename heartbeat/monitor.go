package heartbeat

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/streamline-rt/streamline/metrics"
)

// Common errors.
var (
	ErrAlreadyStarted = errors.New("heartbeat already started")
	ErrNilProbe       = errors.New("probe function is required")
)

// ProbeFunc emits one liveness probe. It returns false if the probe could
// not be sent, which counts as a missed beat immediately.
type ProbeFunc func() bool

// Health is a read-only snapshot of liveness state.
type Health struct {
	// LastAckAt is when the last acknowledgement arrived.
	LastAckAt time.Time `json:"last_ack_at"`

	// MissedBeats is the current count of consecutive misses.
	MissedBeats int `json:"missed_beats"`

	// Healthy is true while the monitor is running and under the
	// missed-beat threshold.
	Healthy bool `json:"healthy"`
}

// Config configures a Monitor.
type Config struct {
	// Interval between probes.
	// Default: 30 seconds.
	Interval time.Duration

	// AckDeadline is how long to wait for an acknowledgement after each
	// probe before counting a miss. At most one probe is outstanding at a
	// time, so the deadline is clamped to Interval to keep miss accounting
	// at the probe rate.
	// Default: 5 seconds.
	AckDeadline time.Duration

	// MaxMissedBeats is the consecutive-miss threshold that triggers the
	// timeout callback.
	// Default: 3.
	MaxMissedBeats int

	// Logger for heartbeat events. Defaults to a no-op logger.
	Logger zerolog.Logger
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:       30 * time.Second,
		AckDeadline:    5 * time.Second,
		MaxMissedBeats: 3,
		Logger:         zerolog.Nop(),
	}
}

// Monitor schedules liveness probes and tracks acknowledgements.
type Monitor struct {
	interval    time.Duration
	ackDeadline time.Duration
	maxMissed   int
	log         zerolog.Logger

	mu         sync.Mutex
	running    bool
	lastAckAt  time.Time
	missed     int
	timeoutCBs []func()
	stopCh     chan struct{}
	doneCh     chan struct{}
	ackCh      chan struct{}
}

// NewMonitor creates a heartbeat monitor. It does nothing until Start.
func NewMonitor(cfg Config) *Monitor {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.AckDeadline <= 0 {
		cfg.AckDeadline = def.AckDeadline
	}
	if cfg.AckDeadline > cfg.Interval {
		cfg.AckDeadline = cfg.Interval
	}
	if cfg.MaxMissedBeats <= 0 {
		cfg.MaxMissedBeats = def.MaxMissedBeats
	}

	return &Monitor{
		interval:    cfg.Interval,
		ackDeadline: cfg.AckDeadline,
		maxMissed:   cfg.MaxMissedBeats,
		log:         cfg.Logger,
	}
}

// OnTimeout registers a callback invoked exactly once per Start cycle when
// the missed-beat threshold is reached. The monitor stops itself first, so
// the callback may call Stop or Start freely.
func (m *Monitor) OnTimeout(cb func()) {
	m.mu.Lock()
	m.timeoutCBs = append(m.timeoutCBs, cb)
	m.mu.Unlock()
}

// Start begins probing at the configured interval.
// Returns ErrAlreadyStarted if already running.
func (m *Monitor) Start(probe ProbeFunc) error {
	if probe == nil {
		return ErrNilProbe
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return ErrAlreadyStarted
	}
	m.running = true
	m.missed = 0
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.ackCh = make(chan struct{}, 1)

	go m.run(probe, m.stopCh, m.ackCh, m.doneCh)
	return nil
}

// HandleAck records an acknowledgement for the outstanding probe, clearing
// the deadline and resetting the miss counter. Safe to call at any time.
func (m *Monitor) HandleAck() {
	m.mu.Lock()
	running := m.running
	ackCh := m.ackCh
	m.mu.Unlock()

	if !running {
		return
	}
	select {
	case ackCh <- struct{}{}:
	default:
	}
}

// Stop cancels all pending timers. Idempotent.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stopCh := m.stopCh
	doneCh := m.doneCh
	m.mu.Unlock()

	close(stopCh)
	<-doneCh
}

// Health returns a snapshot of liveness state. Pure read, safe to poll.
func (m *Monitor) Health() Health {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Health{
		LastAckAt:   m.lastAckAt,
		MissedBeats: m.missed,
		Healthy:     m.running && m.missed < m.maxMissed,
	}
}

// run owns the probe ticker and the single outstanding ack deadline.
func (m *Monitor) run(probe ProbeFunc, stopCh, ackCh chan struct{}, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	var deadline *time.Timer
	var deadlineC <-chan time.Time
	disarm := func() {
		if deadline != nil {
			deadline.Stop()
			deadline = nil
			deadlineC = nil
		}
	}
	defer disarm()

	for {
		select {
		case <-stopCh:
			return

		case <-ticker.C:
			if deadlineC != nil {
				// Previous probe still unacknowledged; its deadline
				// owns the miss accounting.
				continue
			}
			if !probe() {
				if m.recordMiss() {
					m.fireTimeout()
					return
				}
				continue
			}
			deadline = time.NewTimer(m.ackDeadline)
			deadlineC = deadline.C

		case <-deadlineC:
			disarm()
			if m.recordMiss() {
				m.fireTimeout()
				return
			}

		case <-ackCh:
			disarm()
			m.recordAck()
		}
	}
}

// recordMiss increments the miss counter, returning true at the threshold.
func (m *Monitor) recordMiss() bool {
	metrics.HeartbeatMiss()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.missed++
	m.log.Debug().Int("missed", m.missed).Msg("heartbeat miss")
	return m.missed >= m.maxMissed
}

// recordAck resets the miss counter.
func (m *Monitor) recordAck() {
	m.mu.Lock()
	m.missed = 0
	m.lastAckAt = time.Now()
	m.mu.Unlock()
}

// fireTimeout marks the monitor stopped and invokes the timeout callbacks.
func (m *Monitor) fireTimeout() {
	metrics.HeartbeatTimeout()

	m.mu.Lock()
	m.running = false
	callbacks := make([]func(), len(m.timeoutCBs))
	copy(callbacks, m.timeoutCBs)
	m.mu.Unlock()

	m.log.Warn().Int("max_missed", m.maxMissed).Msg("heartbeat timed out")
	for _, cb := range callbacks {
		cb()
	}
}
