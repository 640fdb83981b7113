package transport

import (
	"context"
	"encoding/base64"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	serrors "github.com/streamline-rt/streamline/errors"
)

// Subprotocol names offered during the WebSocket handshake. The auth token
// rides in a dedicated subprotocol entry so it never appears in the URL.
const (
	Subprotocol     = "streamline.v1"
	authSubprotocol = "streamline.auth."
)

// WebSocket implements Transport over a gorilla/websocket client connection.
type WebSocket struct {
	config Config

	mu     sync.Mutex
	conn   *websocket.Conn
	state  State
	manual bool
	gen    uint64 // connection generation; stale read loops bail out

	writeMu sync.Mutex

	handlerMu sync.RWMutex
	onMessage MessageHandler
	onOpen    OpenHandler
	onClose   CloseHandler
	onError   ErrorHandler
}

// NewWebSocket creates a WebSocket transport. The connection is not opened
// until Connect is called.
func NewWebSocket(cfg Config) (*WebSocket, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	def := DefaultConfig()
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}

	return &WebSocket{
		config: cfg,
		state:  StateClosed,
	}, nil
}

// AuthProtocol encodes a token into the auth subprotocol entry. Exposed so
// servers accepting streamline connections can decode the same format.
func AuthProtocol(token string) string {
	return authSubprotocol + base64.RawURLEncoding.EncodeToString([]byte(token))
}

// Connect resolves the credential and opens the socket. A call while already
// connecting or open is a no-op.
func (t *WebSocket) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.state == StateConnecting || t.state == StateOpen {
		t.mu.Unlock()
		return nil
	}
	t.state = StateConnecting
	t.manual = false
	t.gen++
	gen := t.gen
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, t.config.HandshakeTimeout)
	defer cancel()

	token, err := t.config.Credentials.Token(ctx)
	if err != nil {
		cerr := serrors.WrapWithCode(err, serrors.ErrCodeAuthFailed, "resolving credential")
		t.failConnect(gen, cerr)
		return cerr
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: t.config.HandshakeTimeout,
		Subprotocols:     []string{Subprotocol, AuthProtocol(token)},
	}

	conn, resp, err := dialer.DialContext(ctx, t.config.URL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		cerr := serrors.WrapWithCode(err, serrors.ErrCodeConnectFailed, "dialing "+t.config.URL)
		t.failConnect(gen, cerr)
		return cerr
	}

	conn.SetReadLimit(t.config.MaxMessageSize)

	t.mu.Lock()
	if t.gen != gen || t.state != StateConnecting {
		// Disconnect raced the dial; drop the fresh socket.
		t.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	t.conn = conn
	t.state = StateOpen
	t.mu.Unlock()

	t.config.Logger.Debug().Str("url", t.config.URL).Msg("transport open")
	t.emitOpen()

	go t.readLoop(conn, gen)
	return nil
}

// failConnect rolls the state machine back to Closed and surfaces the error.
func (t *WebSocket) failConnect(gen uint64, err error) {
	t.mu.Lock()
	if t.gen == gen && t.state == StateConnecting {
		t.state = StateClosed
	}
	t.mu.Unlock()

	t.config.Logger.Warn().Err(err).Msg("transport connect failed")
	t.emitError(err)
}

// Disconnect performs a clean close. Safe to call in any state.
func (t *WebSocket) Disconnect(code int, reason string) {
	t.mu.Lock()
	switch t.state {
	case StateClosed, StateClosing:
		t.mu.Unlock()
		return
	case StateConnecting:
		// No socket yet; mark the attempt dead so a racing dial aborts.
		t.state = StateClosed
		t.manual = true
		t.gen++
		t.mu.Unlock()
		return
	}
	conn := t.conn
	t.state = StateClosing
	t.manual = true
	t.mu.Unlock()

	deadline := time.Now().Add(t.config.WriteTimeout)
	t.writeMu.Lock()
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
	t.writeMu.Unlock()
	conn.Close()
}

// Send writes one raw frame. Returns false if the connection is not open or
// the write fails.
func (t *WebSocket) Send(data []byte) bool {
	t.mu.Lock()
	if t.state != StateOpen {
		t.mu.Unlock()
		return false
	}
	conn := t.conn
	t.mu.Unlock()

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(t.config.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.config.Logger.Warn().Err(err).Msg("transport write failed")
		return false
	}
	return true
}

// IsOpen reports whether the connection is open.
func (t *WebSocket) IsOpen() bool {
	return t.State() == StateOpen
}

// State returns the current connection state.
func (t *WebSocket) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// readLoop pumps inbound frames to the message handler until the socket
// dies, then settles the state machine and fires the close handler.
func (t *WebSocket) readLoop(conn *websocket.Conn, gen uint64) {
	var readErr error
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			readErr = err
			break
		}
		t.emitMessage(data)
	}

	code := websocket.CloseAbnormalClosure
	if ce, ok := readErr.(*websocket.CloseError); ok {
		code = ce.Code
	}

	t.mu.Lock()
	if t.gen != gen {
		// A newer connection has taken over; this loop is stale.
		t.mu.Unlock()
		return
	}
	manual := t.manual
	t.conn = nil
	t.state = StateClosed
	t.mu.Unlock()

	conn.Close()

	if manual {
		t.config.Logger.Debug().Msg("transport closed")
		t.emitClose(CloseNormal, true)
		return
	}

	t.config.Logger.Warn().Int("code", code).Err(readErr).Msg("transport closed unexpectedly")
	t.emitError(serrors.WrapWithCode(readErr, serrors.ErrCodeClosed, "connection lost"))
	t.emitClose(code, false)
}

// SetMessageHandler installs the message handler, replacing any previous one.
func (t *WebSocket) SetMessageHandler(h MessageHandler) {
	t.handlerMu.Lock()
	t.onMessage = h
	t.handlerMu.Unlock()
}

// SetOpenHandler installs the open handler, replacing any previous one.
func (t *WebSocket) SetOpenHandler(h OpenHandler) {
	t.handlerMu.Lock()
	t.onOpen = h
	t.handlerMu.Unlock()
}

// SetCloseHandler installs the close handler, replacing any previous one.
func (t *WebSocket) SetCloseHandler(h CloseHandler) {
	t.handlerMu.Lock()
	t.onClose = h
	t.handlerMu.Unlock()
}

// SetErrorHandler installs the error handler, replacing any previous one.
func (t *WebSocket) SetErrorHandler(h ErrorHandler) {
	t.handlerMu.Lock()
	t.onError = h
	t.handlerMu.Unlock()
}

func (t *WebSocket) emitMessage(data []byte) {
	t.handlerMu.RLock()
	h := t.onMessage
	t.handlerMu.RUnlock()
	if h != nil {
		h(data)
	}
}

func (t *WebSocket) emitOpen() {
	t.handlerMu.RLock()
	h := t.onOpen
	t.handlerMu.RUnlock()
	if h != nil {
		h()
	}
}

func (t *WebSocket) emitClose(code int, manual bool) {
	t.handlerMu.RLock()
	h := t.onClose
	t.handlerMu.RUnlock()
	if h != nil {
		h(code, manual)
	}
}

func (t *WebSocket) emitError(err error) {
	t.handlerMu.RLock()
	h := t.onError
	t.handlerMu.RUnlock()
	if h != nil {
		h(err)
	}
}
