package transport

import (
	"context"
	"sync"
)

// Memory implements Transport in-process. Useful for testing and for wiring
// a client against a simulated server: connect outcomes are scriptable,
// sends are recorded, and the "server" side can inject frames and closes.
type Memory struct {
	mu           sync.Mutex
	state        State
	connectErrs  []error
	connectCount int
	failSends    bool
	sent         [][]byte

	handlerMu sync.RWMutex
	onMessage MessageHandler
	onOpen    OpenHandler
	onClose   CloseHandler
	onError   ErrorHandler
}

// NewMemory creates an in-process transport that connects successfully and
// accepts every send until scripted otherwise.
func NewMemory() *Memory {
	return &Memory{state: StateClosed}
}

// ScriptConnectErrors queues errors to be returned by the next Connect
// calls, in order. A nil entry means that attempt succeeds.
func (t *Memory) ScriptConnectErrors(errs ...error) {
	t.mu.Lock()
	t.connectErrs = append(t.connectErrs, errs...)
	t.mu.Unlock()
}

// SetFailSends makes Send return false while enabled, simulating a broken
// write path on an otherwise open connection.
func (t *Memory) SetFailSends(fail bool) {
	t.mu.Lock()
	t.failSends = fail
	t.mu.Unlock()
}

// ConnectCount returns how many Connect attempts actually ran (no-op calls
// while open or connecting are not counted).
func (t *Memory) ConnectCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connectCount
}

// Sent returns a copy of all frames accepted by Send, in order.
func (t *Memory) Sent() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.sent))
	copy(out, t.sent)
	return out
}

// InjectMessage delivers a frame as if the server had sent it.
func (t *Memory) InjectMessage(data []byte) {
	t.handlerMu.RLock()
	h := t.onMessage
	t.handlerMu.RUnlock()
	if h != nil {
		h(data)
	}
}

// InjectClose drops the connection as if the server had closed it with the
// given code. A non-1000 code is an unexpected close.
func (t *Memory) InjectClose(code int) {
	t.mu.Lock()
	if t.state != StateOpen {
		t.mu.Unlock()
		return
	}
	t.state = StateClosed
	t.mu.Unlock()

	t.handlerMu.RLock()
	h := t.onClose
	t.handlerMu.RUnlock()
	if h != nil {
		h(code, false)
	}
}

// Connect opens the in-process connection, honoring scripted failures.
func (t *Memory) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.state == StateConnecting || t.state == StateOpen {
		t.mu.Unlock()
		return nil
	}
	t.connectCount++
	var err error
	if len(t.connectErrs) > 0 {
		err = t.connectErrs[0]
		t.connectErrs = t.connectErrs[1:]
	}
	if err != nil {
		t.state = StateClosed
		t.mu.Unlock()

		t.handlerMu.RLock()
		h := t.onError
		t.handlerMu.RUnlock()
		if h != nil {
			h(err)
		}
		return err
	}
	t.state = StateOpen
	t.mu.Unlock()

	t.handlerMu.RLock()
	h := t.onOpen
	t.handlerMu.RUnlock()
	if h != nil {
		h()
	}
	return nil
}

// Disconnect performs a clean close.
func (t *Memory) Disconnect(code int, reason string) {
	t.mu.Lock()
	if t.state != StateOpen && t.state != StateConnecting {
		t.mu.Unlock()
		return
	}
	t.state = StateClosed
	t.mu.Unlock()

	t.handlerMu.RLock()
	h := t.onClose
	t.handlerMu.RUnlock()
	if h != nil {
		h(CloseNormal, true)
	}
}

// Send records the frame if the connection is open.
func (t *Memory) Send(data []byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateOpen || t.failSends {
		return false
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	t.sent = append(t.sent, buf)
	return true
}

// IsOpen reports whether the connection is open.
func (t *Memory) IsOpen() bool {
	return t.State() == StateOpen
}

// State returns the current connection state.
func (t *Memory) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SetMessageHandler installs the message handler, replacing any previous one.
func (t *Memory) SetMessageHandler(h MessageHandler) {
	t.handlerMu.Lock()
	t.onMessage = h
	t.handlerMu.Unlock()
}

// SetOpenHandler installs the open handler, replacing any previous one.
func (t *Memory) SetOpenHandler(h OpenHandler) {
	t.handlerMu.Lock()
	t.onOpen = h
	t.handlerMu.Unlock()
}

// SetCloseHandler installs the close handler, replacing any previous one.
func (t *Memory) SetCloseHandler(h CloseHandler) {
	t.handlerMu.Lock()
	t.onClose = h
	t.handlerMu.Unlock()
}

// SetErrorHandler installs the error handler, replacing any previous one.
func (t *Memory) SetErrorHandler(h ErrorHandler) {
	t.handlerMu.Lock()
	t.onError = h
	t.handlerMu.Unlock()
}
