package queue

import (
	"sync"
	"time"
)

// FlushFunc receives one accumulated batch.
type FlushFunc func(batch [][]byte)

// BatcherConfig configures a Batcher.
type BatcherConfig struct {
	// BatchSize triggers a flush when the buffer reaches this many
	// messages.
	// Default: 10.
	BatchSize int

	// BatchTimeout flushes a partial buffer this long after its first
	// message.
	// Default: 100 milliseconds.
	BatchTimeout time.Duration
}

// DefaultBatcherConfig returns configuration with sensible defaults.
func DefaultBatcherConfig() BatcherConfig {
	return BatcherConfig{
		BatchSize:    10,
		BatchTimeout: 100 * time.Millisecond,
	}
}

// Batcher accumulates messages and flushes them as one unit when either the
// batch size or the batch timeout is reached, whichever comes first.
type Batcher struct {
	size    int
	timeout time.Duration
	flush   FlushFunc

	mu      sync.Mutex
	buf     [][]byte
	timer   *time.Timer
	stopped bool
}

// NewBatcher creates a batcher delivering batches to flush.
func NewBatcher(cfg BatcherConfig, flush FlushFunc) *Batcher {
	def := DefaultBatcherConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = def.BatchTimeout
	}

	return &Batcher{
		size:    cfg.BatchSize,
		timeout: cfg.BatchTimeout,
		flush:   flush,
	}
}

// Add accumulates one message. The first message in an empty buffer arms the
// flush timer; reaching the batch size flushes immediately.
func (b *Batcher) Add(data []byte) {
	buf := make([]byte, len(data))
	copy(buf, data)

	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.buf = append(b.buf, buf)
	if len(b.buf) >= b.size {
		batch := b.takeLocked()
		b.mu.Unlock()
		b.flush(batch)
		return
	}
	if len(b.buf) == 1 {
		b.timer = time.AfterFunc(b.timeout, b.Flush)
	}
	b.mu.Unlock()
}

// Flush delivers any buffered messages immediately.
func (b *Batcher) Flush() {
	b.mu.Lock()
	batch := b.takeLocked()
	b.mu.Unlock()

	if len(batch) > 0 {
		b.flush(batch)
	}
}

// Stop flushes the remainder and cancels the timer. Idempotent; Add becomes
// a no-op afterwards.
func (b *Batcher) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	batch := b.takeLocked()
	b.mu.Unlock()

	if len(batch) > 0 {
		b.flush(batch)
	}
}

// takeLocked detaches the buffer and disarms the timer. Caller holds b.mu.
func (b *Batcher) takeLocked() [][]byte {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	batch := b.buf
	b.buf = nil
	return batch
}
