package queue

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/streamline-rt/streamline/metrics"
)

// Message is one buffered outbound message. Owned exclusively by the queue;
// it leaves on successful send or after exceeding its retry budget.
type Message struct {
	// ID uniquely identifies the entry for MarkSent/MarkFailed bookkeeping.
	ID string

	// Data is the serialized envelope.
	Data []byte

	// EnqueuedAt is when the entry entered the queue.
	EnqueuedAt time.Time

	// RetryCount is how many failed send attempts the entry has survived.
	RetryCount int
}

// Config configures an Outbound queue.
type Config struct {
	// MaxSize caps the number of queued entries. Past capacity the oldest
	// entry is evicted.
	// Default: 100.
	MaxSize int

	// BatchSize is the default DequeueBatch size.
	// Default: 10.
	BatchSize int

	// MaxRetries is the per-message retry budget before the entry is
	// dropped permanently.
	// Default: 3.
	MaxRetries int

	// Logger for queue events. Defaults to a no-op logger.
	Logger zerolog.Logger
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxSize:    100,
		BatchSize:  10,
		MaxRetries: 3,
		Logger:     zerolog.Nop(),
	}
}

// Stats is a read-only snapshot of queue state for health reporting.
type Stats struct {
	// Length is the number of queued entries.
	Length int `json:"length"`

	// InFlight is the number of dequeued entries awaiting MarkSent or
	// MarkFailed.
	InFlight int `json:"in_flight"`

	// OldestAge is the age of the oldest queued entry, zero when empty.
	OldestAge time.Duration `json:"oldest_age"`

	// Retried is the number of entries that have failed at least once.
	Retried int `json:"retried"`

	// Evicted is the cumulative count of entries dropped to make room.
	Evicted uint64 `json:"evicted"`

	// Exhausted is the cumulative count of entries dropped past their
	// retry budget.
	Exhausted uint64 `json:"exhausted"`
}

// Outbound is a bounded FIFO buffer for serialized outbound messages.
type Outbound struct {
	maxSize    int
	batchSize  int
	maxRetries int
	log        zerolog.Logger

	mu        sync.Mutex
	entries   []*Message
	inFlight  map[string]*Message
	evicted   uint64
	exhausted uint64
}

// NewOutbound creates an outbound queue.
func NewOutbound(cfg Config) *Outbound {
	def := DefaultConfig()
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = def.MaxSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}

	return &Outbound{
		maxSize:    cfg.MaxSize,
		batchSize:  cfg.BatchSize,
		maxRetries: cfg.MaxRetries,
		log:        cfg.Logger,
		inFlight:   make(map[string]*Message),
	}
}

// Enqueue buffers one serialized message and returns its id. Always
// succeeds; past capacity the oldest entry is evicted first.
func (q *Outbound) Enqueue(data []byte) string {
	buf := make([]byte, len(data))
	copy(buf, data)

	msg := &Message{
		ID:         uuid.NewString(),
		Data:       buf,
		EnqueuedAt: time.Now(),
	}

	q.mu.Lock()
	if len(q.entries) >= q.maxSize {
		dropped := q.entries[0]
		q.entries = q.entries[1:]
		q.evicted++
		q.log.Warn().Str("id", dropped.ID).Msg("queue full, evicting oldest entry")
		metrics.MessageDropped(metrics.DropEvicted)
	}
	q.entries = append(q.entries, msg)
	q.mu.Unlock()

	return msg.ID
}

// DequeueBatch removes and returns up to n oldest entries for a send
// attempt. n <= 0 uses the configured batch size. Each returned entry must
// be settled with MarkSent or MarkFailed.
func (q *Outbound) DequeueBatch(n int) []*Message {
	if n <= 0 {
		n = q.batchSize
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if n > len(q.entries) {
		n = len(q.entries)
	}
	if n == 0 {
		return nil
	}

	batch := q.entries[:n]
	q.entries = q.entries[n:]
	for _, msg := range batch {
		q.inFlight[msg.ID] = msg
	}

	out := make([]*Message, n)
	copy(out, batch)
	return out
}

// MarkSent retires an entry after a successful send.
func (q *Outbound) MarkSent(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.inFlight[id]; ok {
		delete(q.inFlight, id)
		return
	}
	q.removeQueued(id)
}

// MarkFailed records a failed send attempt. The entry is requeued at the
// tail unless its retry budget is exhausted, in which case it is dropped and
// MarkFailed returns false.
func (q *Outbound) MarkFailed(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	msg, ok := q.inFlight[id]
	if ok {
		delete(q.inFlight, id)
	} else {
		msg = q.removeQueued(id)
	}
	if msg == nil {
		return false
	}

	msg.RetryCount++
	if msg.RetryCount >= q.maxRetries {
		q.exhausted++
		q.log.Warn().Str("id", id).Int("retries", msg.RetryCount).
			Msg("retry budget exhausted, dropping message")
		metrics.MessageDropped(metrics.DropExhausted)
		return false
	}

	q.entries = append(q.entries, msg)
	return true
}

// RequeueFront returns in-flight entries to the head of the queue in their
// original order without counting a retry. Used when a flush aborts before
// attempting them, so ordering is preserved.
func (q *Outbound) RequeueFront(msgs []*Message) {
	if len(msgs) == 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	head := make([]*Message, 0, len(msgs)+len(q.entries))
	for _, msg := range msgs {
		if _, ok := q.inFlight[msg.ID]; ok {
			delete(q.inFlight, msg.ID)
			head = append(head, msg)
		}
	}
	q.entries = append(head, q.entries...)
}

// Clear drops every queued and in-flight entry, returning how many were
// discarded.
func (q *Outbound) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.entries) + len(q.inFlight)
	q.entries = nil
	q.inFlight = make(map[string]*Message)
	return n
}

// Len returns the number of queued entries.
func (q *Outbound) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Stats returns a snapshot of queue state.
func (q *Outbound) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := Stats{
		Length:    len(q.entries),
		InFlight:  len(q.inFlight),
		Evicted:   q.evicted,
		Exhausted: q.exhausted,
	}
	if len(q.entries) > 0 {
		s.OldestAge = time.Since(q.entries[0].EnqueuedAt)
	}
	for _, msg := range q.entries {
		if msg.RetryCount > 0 {
			s.Retried++
		}
	}
	for _, msg := range q.inFlight {
		if msg.RetryCount > 0 {
			s.Retried++
		}
	}
	return s
}

// removeQueued unlinks an entry from the queued slice by id.
// Caller holds q.mu.
func (q *Outbound) removeQueued(id string) *Message {
	for i, msg := range q.entries {
		if msg.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return msg
		}
	}
	return nil
}
