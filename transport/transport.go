package transport

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/streamline-rt/streamline/credentials"
)

// Common errors.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrClosed        = errors.New("transport closed")
)

// CloseNormal is the close code for a clean, manual close. Any other code,
// or an abnormal closure, means the connection dropped unexpectedly.
const CloseNormal = 1000

// State is the connection state of a transport.
type State int32

// Connection states. Exactly one transport per client is in this state
// machine at a time.
const (
	StateClosed State = iota
	StateConnecting
	StateOpen
	StateClosing
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Handler types for transport events.
type (
	// MessageHandler receives each raw inbound frame.
	MessageHandler func(data []byte)

	// OpenHandler fires once the connection is established.
	OpenHandler func()

	// CloseHandler fires when the connection closes. manual is true for a
	// clean close initiated through Disconnect; anything else is an
	// unexpected close the owner should treat as "schedule reconnect".
	CloseHandler func(code int, manual bool)

	// ErrorHandler receives connect and I/O errors. The transport never
	// retries itself; the owner schedules the retry.
	ErrorHandler func(err error)
)

// Transport owns one physical connection.
type Transport interface {
	// Connect opens the connection. Idempotent: a call while already
	// connecting or open is a no-op. Credential resolution happens before
	// the socket is constructed and may fail; failures surface through the
	// error handler as well as the return value.
	Connect(ctx context.Context) error

	// Disconnect performs a clean close with the given code and reason.
	// Always safe to call, in any state.
	Disconnect(code int, reason string)

	// Send writes one raw frame. Returns false without error if the
	// connection is not open or the write fails.
	Send(data []byte) bool

	// IsOpen reports whether the connection is open.
	IsOpen() bool

	// State returns the current connection state.
	State() State

	// Handler registration. At most one handler of each kind is active.
	SetMessageHandler(h MessageHandler)
	SetOpenHandler(h OpenHandler)
	SetCloseHandler(h CloseHandler)
	SetErrorHandler(h ErrorHandler)
}

// Config holds common transport configuration.
type Config struct {
	// URL of the server endpoint (ws:// or wss://).
	URL string

	// Credentials resolves the per-connection auth token.
	Credentials credentials.Provider

	// HandshakeTimeout bounds credential resolution plus the dial.
	// Default: 10 seconds.
	HandshakeTimeout time.Duration

	// WriteTimeout for individual frame writes.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// MaxMessageSize limits inbound frame size in bytes.
	// Default: 1MB.
	MaxMessageSize int64

	// Logger for transport events. Defaults to a no-op logger.
	Logger zerolog.Logger
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrInvalidConfig
	}
	if c.Credentials == nil {
		return ErrInvalidConfig
	}
	return nil
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		MaxMessageSize:   1024 * 1024, // 1MB
		Logger:           zerolog.Nop(),
	}
}
