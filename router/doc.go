// Package router multiplexes one client per logical service across any
// number of in-process subscribers.
//
// # Overview
//
// N dashboard components interested in the same data stream must not mean N
// sockets, and they must not clobber each other's callbacks by assigning to
// a shared handler slot. The Router owns both guarantees: it keeps exactly
// one Client per service name, installs exactly one inbound dispatcher on
// it, and fans every envelope out to all registered handlers in arrival
// order.
//
// Subscription lifecycle is tied to consumer interest, not to connection
// state: unsubscribing the last handler clears the dispatcher but leaves
// the connection open, so a later subscriber reuses it without a
// reconnect. Connection teardown is a separate, explicit operation.
//
// # Wiring
//
// Clients are either registered up front:
//
//	r := router.New(router.Config{})
//	r.Register("metrics", metricsClient)
//
// or constructed lazily through a Factory the application supplies once at
// startup. There is no package-level singleton: the application wires the
// Router up and passes it by reference to whatever needs it.
package router
