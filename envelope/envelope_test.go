package envelope

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// --- Unit Tests ---

func TestNew(t *testing.T) {
	e, err := New("metrics_update", map[string]int{"cpu": 42})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if e.Type != "metrics_update" {
		t.Errorf("Type = %q, want metrics_update", e.Type)
	}
	if e.ID == "" {
		t.Error("ID not generated")
	}
	if e.Timestamp.IsZero() {
		t.Error("Timestamp not stamped")
	}

	var payload map[string]int
	if err := e.DecodePayload(&payload); err != nil {
		t.Fatalf("DecodePayload error: %v", err)
	}
	if payload["cpu"] != 42 {
		t.Errorf("payload cpu = %d, want 42", payload["cpu"])
	}
}

func TestNew_MissingType(t *testing.T) {
	if _, err := New("", nil); !errors.Is(err, ErrMissingType) {
		t.Errorf("error = %v, want ErrMissingType", err)
	}
}

func TestStamp(t *testing.T) {
	tests := []struct {
		name     string
		in       Envelope
		wantID   string // empty means "generated"
		wantTime bool   // true means "kept as given"
	}{
		{
			name: "fills absent fields",
			in:   Envelope{Type: "alert"},
		},
		{
			name:     "preserves existing id and timestamp",
			in:       Envelope{Type: "alert", ID: "fixed", Timestamp: time.Unix(100, 0)},
			wantID:   "fixed",
			wantTime: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Stamp(tt.in)
			if tt.wantID != "" && out.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", out.ID, tt.wantID)
			}
			if tt.wantID == "" && out.ID == "" {
				t.Error("ID not generated")
			}
			if tt.wantTime && !out.Timestamp.Equal(time.Unix(100, 0)) {
				t.Errorf("Timestamp = %v, want preserved", out.Timestamp)
			}
			if !tt.wantTime && out.Timestamp.IsZero() {
				t.Error("Timestamp not stamped")
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{
			name: "valid",
			data: `{"type":"notification","payload":{"title":"hi"},"timestamp":"2025-01-02T03:04:05Z","id":"abc"}`,
		},
		{
			name:    "not json",
			data:    `{{{`,
			wantErr: ErrMalformed,
		},
		{
			name:    "missing type",
			data:    `{"payload":{},"id":"abc"}`,
			wantErr: ErrMissingType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Parse([]byte(tt.data))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			if e.ID != "abc" {
				t.Errorf("ID = %q, want abc", e.ID)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	e, _ := New("mark_read", map[string]string{"notificationId": "n1"})
	data, err := e.Marshal()
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	got, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got.ID != e.ID || got.Type != e.Type {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, e)
	}
}

func TestDecodePayload_Absent(t *testing.T) {
	e, _ := New("ping", nil)

	var v map[string]string
	if err := e.DecodePayload(&v); !errors.Is(err, ErrNoPayload) {
		t.Errorf("DecodePayload error = %v, want ErrNoPayload", err)
	}
}

func TestControlHelpers(t *testing.T) {
	ping := Ping()
	if ping.Type != TypePing || ping.ID == "" {
		t.Errorf("Ping() = %+v", ping)
	}

	sub := Subscribe("system_metrics")
	var p SubscribePayload
	if err := sub.DecodePayload(&p); err != nil {
		t.Fatalf("DecodePayload error: %v", err)
	}
	if p.MessageType != "system_metrics" {
		t.Errorf("MessageType = %q, want system_metrics", p.MessageType)
	}

	// Wire shape must use the messageType key.
	data, _ := sub.Marshal()
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(raw["payload"]) != `{"messageType":"system_metrics"}` {
		t.Errorf("payload = %s", raw["payload"])
	}
}

func TestIsControl(t *testing.T) {
	tests := []struct {
		msgType string
		want    bool
	}{
		{TypePing, true},
		{TypePong, true},
		{TypeSubscribe, true},
		{TypeUnsubscribe, true},
		{TypeRefreshMetrics, false},
		{"metrics_update", false},
	}

	for _, tt := range tests {
		e := Envelope{Type: tt.msgType}
		if got := e.IsControl(); got != tt.want {
			t.Errorf("IsControl(%q) = %v, want %v", tt.msgType, got, tt.want)
		}
	}
}
