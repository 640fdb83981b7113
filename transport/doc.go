// Package transport owns one physical connection to a streamline server.
//
// # Overview
//
// A Transport opens the socket, sends raw frames, closes, and surfaces
// open/message/close/error events through single-slot handlers. It never
// retries on its own: every failure is surfaced to the owner, which decides
// whether and when to reconnect.
//
// # Available Implementations
//
//   - WebSocket: production transport over gorilla/websocket. The auth
//     credential is carried in the WebSocket sub-protocol during the
//     handshake, never as a URL query parameter, so it cannot leak into
//     access logs or proxies.
//   - Memory: in-process implementation for testing, with scriptable
//     connect outcomes and server-side frame injection.
//
// # Handlers
//
// At most one handler of each kind is active at a time. Replacing a handler
// is an explicit Set* call, not a side effect; this is what lets a higher
// layer guarantee that independent consumers never clobber each other's
// callback.
package transport
