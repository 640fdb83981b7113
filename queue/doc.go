// Package queue buffers serialized outbound messages across connection
// outages.
//
// # Overview
//
// Outbound is a bounded FIFO. Enqueue always succeeds: past capacity the
// single oldest entry is evicted first, so the queue never blocks the caller
// and never grows unbounded. DequeueBatch hands entries to the owner for a
// send attempt; MarkSent retires them and MarkFailed either requeues them at
// the tail or, past the per-message retry budget, drops them permanently.
// Requeuing at the tail keeps a repeatedly failing message from starving
// delivery of newer ones.
//
// Retry exhaustion is silent data loss: real-time telemetry is considered
// stale past its retry budget. It is counted in Stats and in the Prometheus
// drop counter rather than retried forever.
//
// # Batching
//
// Batcher is a secondary accumulate-and-flush mode for high-frequency
// outbound traffic where per-message send overhead matters: messages collect
// until the batch size or the batch timeout is reached, whichever comes
// first, then flush as one unit.
package queue
