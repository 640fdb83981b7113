// Package envelope defines the typed message wrapper exchanged over a
// streamline connection.
//
// # Overview
//
// Every frame on the wire is a JSON envelope carrying a type, an opaque
// payload, an ISO-8601 timestamp and a unique id. The id is generated by the
// sender when absent and is used for de-duplication and queue bookkeeping.
// Envelopes are immutable once constructed.
//
// # Control Types
//
// A small set of types is reserved for the connection protocol itself:
//
//   - ping / pong: liveness probe and acknowledgement
//   - subscribe / unsubscribe: declare interest in a message type to the server
//   - refresh_metrics, mark_read, mark_all_read: service-specific controls
//
// All other types are application-defined and are fanned out to subscribers
// untouched.
package envelope
