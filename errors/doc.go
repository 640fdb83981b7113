// Package errors provides the structured error taxonomy for streamline.
//
// # Error Categories
//
// Errors are classified into four categories:
//
//   - Transient: temporary failures where retry may succeed (connect failures,
//     heartbeat timeouts)
//   - Permanent: failures where retry will not help (bad credentials,
//     malformed frames)
//   - Resource: exhaustion conditions (queue overflow, retry budgets)
//   - Internal: unexpected errors indicating bugs
//
// # Usage
//
// Create a new error:
//
//	err := errors.New(errors.ErrCodeConnectFailed, "dial failed")
//
// Wrap an existing error with context:
//
//	wrapped := errors.Wrap(err, "opening metrics connection")
//
// Check if an error is retryable before scheduling a reconnect:
//
//	var serr *errors.Error
//	if std.As(err, &serr) && serr.Retryable() {
//	    // schedule retry
//	}
//
// Everything inside the client subsystem is absorbed into state transitions or
// logged events; these errors exist so the log line and the health surface can
// say precisely what failed.
package errors
