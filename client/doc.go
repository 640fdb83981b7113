// Package client implements the resilient messaging client for one logical
// service.
//
// # Overview
//
// A Client composes a transport connection, a heartbeat monitor and an
// outbound queue into one coherent unit: it owns the reconnect-with-backoff
// policy, envelope framing and parsing, ping/pong handling, and the public
// send/subscribe surface. One Client is created per logical service (for
// example "metrics" or "notifications") and persists for the application's
// lifetime.
//
// # Failure Model
//
// Every failure inside the client is absorbed and converted into a state
// transition or a logged event. Send is fire-and-forget: while the transport
// is unavailable messages are buffered in the outbound queue and flushed in
// order on reconnect. An unexpected close or a heartbeat timeout schedules a
// reconnect with exponential backoff; past the attempt budget the client
// lands in StateExhausted, surfaced through OnStateChange so the embedding
// application can prompt a manual reconnect.
//
// A manual Disconnect is the cancellation primitive: it synchronously stops
// every pending timer and intentionally drops any still-queued messages,
// since a manual disconnect signals the caller no longer wants this
// session's effects to outlive it.
//
// # Reconnect State Machine
//
// The reconnect policy is an explicit state machine with a single
// authoritative retry timer:
//
//	Idle -> Connecting -> Open
//	                 \-> WaitingRetry -> Connecting (attempt k at base * 2^(k-1))
//	                 \-> Exhausted (after MaxReconnectAttempts)
//
// Cancellation on manual disconnect is therefore one well-defined operation
// rather than scattered flag checks.
package client
