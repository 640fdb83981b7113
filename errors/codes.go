package errors

// ErrorCategory classifies errors by their nature and retry semantics.
type ErrorCategory string

// Error categories define how errors should be handled.
const (
	// CategoryTransient indicates temporary failures where retry may succeed.
	// Examples: dial failures, heartbeat timeouts, dropped sockets.
	CategoryTransient ErrorCategory = "transient"

	// CategoryPermanent indicates failures where retry will not help.
	// Examples: rejected credentials, malformed frames.
	CategoryPermanent ErrorCategory = "permanent"

	// CategoryResource indicates exhaustion of a configured budget.
	// Examples: queue overflow, per-message retry budget, reconnect attempts.
	CategoryResource ErrorCategory = "resource"

	// CategoryInternal indicates unexpected errors or bugs.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRetryable returns true if errors in this category may succeed on retry.
func (c ErrorCategory) IsRetryable() bool {
	switch c {
	case CategoryTransient, CategoryResource:
		return true
	default:
		return false
	}
}

// ErrorCode identifies specific error types within categories.
type ErrorCode string

// Error codes for the failure scenarios the client subsystem distinguishes.
const (
	// Transient errors
	ErrCodeConnectFailed    ErrorCode = "CONNECT_FAILED"    // Socket could not be opened
	ErrCodeSendFailed       ErrorCode = "SEND_FAILED"       // Write failed or socket not open
	ErrCodeHeartbeatTimeout ErrorCode = "HEARTBEAT_TIMEOUT" // Liveness probes went unacknowledged
	ErrCodeClosed           ErrorCode = "CLOSED"            // Connection closed unexpectedly

	// Permanent errors
	ErrCodeAuthFailed   ErrorCode = "AUTH_FAILED"   // Credential fetch or handshake rejected
	ErrCodeParseError   ErrorCode = "PARSE_ERROR"   // Inbound frame was not a valid envelope
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT" // Malformed or invalid input
	ErrCodeCanceled     ErrorCode = "CANCELED"      // Operation was canceled

	// Resource errors
	ErrCodeQueueOverflow      ErrorCode = "QUEUE_OVERFLOW"      // Bounded queue evicted an entry
	ErrCodeRetryExhausted     ErrorCode = "RETRY_EXHAUSTED"     // Message dropped past its retry budget
	ErrCodeReconnectExhausted ErrorCode = "RECONNECT_EXHAUSTED" // Max reconnect attempts reached

	// Internal errors
	ErrCodeInternal ErrorCode = "INTERNAL" // Unexpected internal error
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeConnectFailed, ErrCodeSendFailed, ErrCodeHeartbeatTimeout, ErrCodeClosed:
		return CategoryTransient

	case ErrCodeAuthFailed, ErrCodeParseError, ErrCodeInvalidInput, ErrCodeCanceled:
		return CategoryPermanent

	case ErrCodeQueueOverflow, ErrCodeRetryExhausted, ErrCodeReconnectExhausted:
		return CategoryResource

	default:
		return CategoryInternal
	}
}

// Description returns a human-readable default description for the code.
func (c ErrorCode) Description() string {
	switch c {
	case ErrCodeConnectFailed:
		return "connection attempt failed"
	case ErrCodeSendFailed:
		return "send failed"
	case ErrCodeHeartbeatTimeout:
		return "heartbeat acknowledgement deadline exceeded"
	case ErrCodeClosed:
		return "connection closed unexpectedly"
	case ErrCodeAuthFailed:
		return "authentication failed"
	case ErrCodeParseError:
		return "malformed inbound frame"
	case ErrCodeInvalidInput:
		return "invalid input"
	case ErrCodeCanceled:
		return "operation canceled"
	case ErrCodeQueueOverflow:
		return "outbound queue overflow"
	case ErrCodeRetryExhausted:
		return "message retry budget exhausted"
	case ErrCodeReconnectExhausted:
		return "reconnect attempts exhausted"
	default:
		return "internal error"
	}
}
