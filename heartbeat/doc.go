// Package heartbeat detects half-open or stalled connections that the
// transport layer has not yet reported as closed.
//
// # Overview
//
// A Monitor periodically invokes a probe function supplied by its owner
// (typically "send a ping envelope") and expects a matching acknowledgement
// within a deadline. HandleAck must be called by the owner when the ack frame
// arrives. After a configured number of consecutive misses the timeout
// callback fires exactly once and the monitor stops itself; the owner is
// expected to force a reconnect and call Start again once the new connection
// is open.
//
// Separating probe scheduling from the reconnect decision keeps liveness
// detection reusable and testable independent of transport specifics.
package heartbeat
