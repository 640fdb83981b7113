package queue

import (
	"bytes"
	"testing"
)

// --- Unit Tests ---

func TestOutbound_FIFOOrder(t *testing.T) {
	q := NewOutbound(Config{})

	q.Enqueue([]byte("m1"))
	q.Enqueue([]byte("m2"))
	q.Enqueue([]byte("m3"))

	batch := q.DequeueBatch(0)
	if len(batch) != 3 {
		t.Fatalf("batch length = %d, want 3", len(batch))
	}
	for i, want := range []string{"m1", "m2", "m3"} {
		if string(batch[i].Data) != want {
			t.Errorf("batch[%d] = %q, want %q", i, batch[i].Data, want)
		}
	}
}

func TestOutbound_EvictsOldestAtCapacity(t *testing.T) {
	q := NewOutbound(Config{MaxSize: 3})

	q.Enqueue([]byte("m1"))
	q.Enqueue([]byte("m2"))
	q.Enqueue([]byte("m3"))
	q.Enqueue([]byte("m4"))

	if q.Len() != 3 {
		t.Fatalf("Len = %d, want 3", q.Len())
	}

	batch := q.DequeueBatch(3)
	for i, want := range []string{"m2", "m3", "m4"} {
		if string(batch[i].Data) != want {
			t.Errorf("batch[%d] = %q, want %q", i, batch[i].Data, want)
		}
	}
	if got := q.Stats().Evicted; got != 1 {
		t.Errorf("Evicted = %d, want 1", got)
	}
}

func TestOutbound_EnqueueCopiesData(t *testing.T) {
	q := NewOutbound(Config{})

	data := []byte("original")
	q.Enqueue(data)
	copy(data, "mutated!")

	batch := q.DequeueBatch(1)
	if !bytes.Equal(batch[0].Data, []byte("original")) {
		t.Errorf("queued data = %q, want %q", batch[0].Data, "original")
	}
}

func TestOutbound_DequeueBatchSizing(t *testing.T) {
	tests := []struct {
		name     string
		enqueued int
		n        int
		want     int
	}{
		{name: "default batch size", enqueued: 15, n: 0, want: 10},
		{name: "explicit size", enqueued: 15, n: 4, want: 4},
		{name: "fewer than requested", enqueued: 2, n: 10, want: 2},
		{name: "empty queue", enqueued: 0, n: 5, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewOutbound(Config{})
			for i := 0; i < tt.enqueued; i++ {
				q.Enqueue([]byte("m"))
			}
			if got := len(q.DequeueBatch(tt.n)); got != tt.want {
				t.Errorf("batch length = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOutbound_MarkSentRetiresEntry(t *testing.T) {
	q := NewOutbound(Config{})

	id := q.Enqueue([]byte("m1"))
	q.DequeueBatch(1)
	q.MarkSent(id)

	s := q.Stats()
	if s.Length != 0 || s.InFlight != 0 {
		t.Errorf("Stats = %+v, want empty queue", s)
	}
}

func TestOutbound_MarkFailedRequeuesAtTail(t *testing.T) {
	q := NewOutbound(Config{MaxRetries: 3})

	id := q.Enqueue([]byte("m1"))
	q.Enqueue([]byte("m2"))

	q.DequeueBatch(1)
	if !q.MarkFailed(id) {
		t.Fatal("MarkFailed returned false with retry budget remaining")
	}

	batch := q.DequeueBatch(2)
	if string(batch[0].Data) != "m2" || string(batch[1].Data) != "m1" {
		t.Errorf("order after requeue = [%q %q], want [m2 m1]", batch[0].Data, batch[1].Data)
	}
	if batch[1].RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", batch[1].RetryCount)
	}
}

func TestOutbound_MarkFailedDropsAtRetryBudget(t *testing.T) {
	q := NewOutbound(Config{MaxRetries: 3})

	id := q.Enqueue([]byte("m1"))
	for attempt := 1; attempt <= 2; attempt++ {
		q.DequeueBatch(1)
		if !q.MarkFailed(id) {
			t.Fatalf("attempt %d: dropped before budget exhausted", attempt)
		}
	}

	q.DequeueBatch(1)
	if q.MarkFailed(id) {
		t.Error("MarkFailed returned true past the retry budget")
	}
	s := q.Stats()
	if s.Length != 0 {
		t.Errorf("Length = %d after drop, want 0", s.Length)
	}
	if s.Exhausted != 1 {
		t.Errorf("Exhausted = %d, want 1", s.Exhausted)
	}
}

func TestOutbound_MarkFailedUnknownID(t *testing.T) {
	q := NewOutbound(Config{})
	if q.MarkFailed("no-such-id") {
		t.Error("MarkFailed returned true for unknown id")
	}
}

func TestOutbound_RequeueFrontPreservesOrder(t *testing.T) {
	q := NewOutbound(Config{})

	q.Enqueue([]byte("m1"))
	q.Enqueue([]byte("m2"))
	q.Enqueue([]byte("m3"))
	q.Enqueue([]byte("m4"))

	batch := q.DequeueBatch(3)
	// m1 was attempted; the rest of the batch goes back untouched.
	q.MarkSent(batch[0].ID)
	q.RequeueFront(batch[1:])

	out := q.DequeueBatch(3)
	for i, want := range []string{"m2", "m3", "m4"} {
		if string(out[i].Data) != want {
			t.Errorf("out[%d] = %q, want %q", i, out[i].Data, want)
		}
		if out[i].RetryCount != 0 {
			t.Errorf("out[%d].RetryCount = %d, want 0", i, out[i].RetryCount)
		}
	}
}

func TestOutbound_RequeueFrontIgnoresSettledEntries(t *testing.T) {
	q := NewOutbound(Config{})

	q.Enqueue([]byte("m1"))
	batch := q.DequeueBatch(1)
	q.MarkSent(batch[0].ID)

	q.RequeueFront(batch)
	if q.Len() != 0 {
		t.Errorf("Len = %d after requeue of settled entry, want 0", q.Len())
	}
}

func TestOutbound_Clear(t *testing.T) {
	q := NewOutbound(Config{})

	q.Enqueue([]byte("m1"))
	q.Enqueue([]byte("m2"))
	q.Enqueue([]byte("m3"))
	q.DequeueBatch(1)

	if got := q.Clear(); got != 3 {
		t.Errorf("Clear = %d, want 3", got)
	}
	s := q.Stats()
	if s.Length != 0 || s.InFlight != 0 {
		t.Errorf("Stats = %+v after Clear, want empty", s)
	}
}

func TestOutbound_Stats(t *testing.T) {
	q := NewOutbound(Config{})

	id := q.Enqueue([]byte("m1"))
	q.Enqueue([]byte("m2"))

	q.DequeueBatch(1)
	q.MarkFailed(id) // m1 requeued with one retry
	q.DequeueBatch(1)

	s := q.Stats()
	if s.Length != 1 {
		t.Errorf("Length = %d, want 1", s.Length)
	}
	if s.InFlight != 1 {
		t.Errorf("InFlight = %d, want 1", s.InFlight)
	}
	if s.Retried != 1 {
		t.Errorf("Retried = %d, want 1", s.Retried)
	}
	if s.OldestAge <= 0 {
		t.Errorf("OldestAge = %v, want positive", s.OldestAge)
	}
}
