package envelope

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors.
var (
	ErrMalformed   = errors.New("malformed envelope")
	ErrMissingType = errors.New("envelope type is required")
	ErrNoPayload   = errors.New("envelope has no payload")
)

// Reserved control types. Everything else is application-defined.
const (
	TypePing        = "ping"
	TypePong        = "pong"
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"

	TypeRefreshMetrics = "refresh_metrics"
	TypeMarkRead       = "mark_read"
	TypeMarkAllRead    = "mark_all_read"
)

// Envelope is the typed message wrapper exchanged over the connection.
type Envelope struct {
	// Type identifies the message kind.
	Type string `json:"type"`

	// Payload is the message body. Inbound envelopes keep the raw JSON;
	// use DecodePayload to unmarshal into a concrete type.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Timestamp is when the envelope was stamped, RFC 3339 on the wire.
	Timestamp time.Time `json:"timestamp"`

	// ID uniquely identifies the envelope for de-duplication and
	// queue bookkeeping.
	ID string `json:"id"`
}

// New creates an envelope with the given type and payload, stamping
// timestamp and a fresh id. The payload is marshaled to JSON.
func New(msgType string, payload any) (*Envelope, error) {
	if msgType == "" {
		return nil, ErrMissingType
	}

	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = data
	}

	return &Envelope{
		Type:      msgType,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
		ID:        uuid.NewString(),
	}, nil
}

// Stamp fills in timestamp and id if absent, returning a copy.
// The input envelope is not modified.
func Stamp(e Envelope) Envelope {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return e
}

// Marshal serializes an envelope to JSON.
func (e *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Parse deserializes an envelope from JSON.
func Parse(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, ErrMalformed
	}
	if e.Type == "" {
		return nil, ErrMissingType
	}
	return &e, nil
}

// DecodePayload unmarshals the payload into v. An absent payload is
// ErrNoPayload, distinct from a malformed one.
func (e *Envelope) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return ErrNoPayload
	}
	return json.Unmarshal(e.Payload, v)
}

// IsControl reports whether the envelope carries a reserved control type.
func (e *Envelope) IsControl() bool {
	switch e.Type {
	case TypePing, TypePong, TypeSubscribe, TypeUnsubscribe:
		return true
	default:
		return false
	}
}

// SubscribePayload is the payload for subscribe/unsubscribe control frames.
type SubscribePayload struct {
	MessageType string `json:"messageType"`
}

// Ping creates a ping control envelope.
func Ping() *Envelope {
	e, _ := New(TypePing, nil)
	return e
}

// Pong creates a pong control envelope.
func Pong() *Envelope {
	e, _ := New(TypePong, nil)
	return e
}

// Subscribe creates a subscribe control envelope for a message type.
func Subscribe(messageType string) *Envelope {
	e, _ := New(TypeSubscribe, SubscribePayload{MessageType: messageType})
	return e
}

// Unsubscribe creates an unsubscribe control envelope for a message type.
func Unsubscribe(messageType string) *Envelope {
	e, _ := New(TypeUnsubscribe, SubscribePayload{MessageType: messageType})
	return e
}
