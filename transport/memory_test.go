package transport

import (
	"context"
	"errors"
	"testing"
)

// --- Unit Tests ---

func TestMemory_ConnectLifecycle(t *testing.T) {
	tr := NewMemory()

	var opened bool
	tr.SetOpenHandler(func() { opened = true })

	if tr.IsOpen() {
		t.Error("open before Connect")
	}
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	if !opened {
		t.Error("open handler not invoked")
	}
	if tr.State() != StateOpen {
		t.Errorf("State = %v, want open", tr.State())
	}

	// Idempotent: second call is a no-op and not counted.
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect error: %v", err)
	}
	if got := tr.ConnectCount(); got != 1 {
		t.Errorf("ConnectCount = %d, want 1", got)
	}
}

func TestMemory_ScriptedConnectError(t *testing.T) {
	tr := NewMemory()
	scripted := errors.New("dial refused")
	tr.ScriptConnectErrors(scripted, nil)

	var gotErr error
	tr.SetErrorHandler(func(err error) { gotErr = err })

	if err := tr.Connect(context.Background()); !errors.Is(err, scripted) {
		t.Fatalf("Connect error = %v, want scripted", err)
	}
	if !errors.Is(gotErr, scripted) {
		t.Errorf("error handler got %v", gotErr)
	}
	if tr.State() != StateClosed {
		t.Errorf("State = %v, want closed", tr.State())
	}

	// The next attempt succeeds.
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect error: %v", err)
	}
	if got := tr.ConnectCount(); got != 2 {
		t.Errorf("ConnectCount = %d, want 2", got)
	}
}

func TestMemory_Send(t *testing.T) {
	tr := NewMemory()

	if tr.Send([]byte("early")) {
		t.Error("Send succeeded while closed")
	}

	tr.Connect(context.Background())
	if !tr.Send([]byte("one")) {
		t.Error("Send failed while open")
	}

	tr.SetFailSends(true)
	if tr.Send([]byte("two")) {
		t.Error("Send succeeded with failing writes")
	}

	sent := tr.Sent()
	if len(sent) != 1 || string(sent[0]) != "one" {
		t.Errorf("Sent = %q", sent)
	}
}

func TestMemory_ManualDisconnect(t *testing.T) {
	tr := NewMemory()
	tr.Connect(context.Background())

	var gotCode int
	var gotManual bool
	tr.SetCloseHandler(func(code int, manual bool) {
		gotCode = code
		gotManual = manual
	})

	tr.Disconnect(CloseNormal, "bye")
	if gotCode != CloseNormal || !gotManual {
		t.Errorf("close handler got code=%d manual=%v", gotCode, gotManual)
	}

	// Idempotent.
	tr.Disconnect(CloseNormal, "again")
}

func TestMemory_InjectedFramesAndClose(t *testing.T) {
	tr := NewMemory()
	tr.Connect(context.Background())

	var frames []string
	tr.SetMessageHandler(func(data []byte) { frames = append(frames, string(data)) })

	var gotCode int
	var gotManual bool
	tr.SetCloseHandler(func(code int, manual bool) {
		gotCode = code
		gotManual = manual
	})

	tr.InjectMessage([]byte(`{"type":"pong"}`))
	tr.InjectClose(1006)

	if len(frames) != 1 {
		t.Fatalf("frames = %q", frames)
	}
	if gotCode != 1006 || gotManual {
		t.Errorf("close handler got code=%d manual=%v, want unexpected 1006", gotCode, gotManual)
	}
	if tr.IsOpen() {
		t.Error("still open after injected close")
	}
}

func TestAuthProtocol(t *testing.T) {
	p := AuthProtocol("token-123")
	if p == "" || p == authSubprotocol {
		t.Errorf("AuthProtocol = %q", p)
	}
	// The raw token must not appear verbatim in the header value.
	if p == authSubprotocol+"token-123" {
		t.Error("token embedded verbatim in subprotocol")
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateConnecting, "connecting"},
		{StateOpen, "open"},
		{StateClosing, "closing"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", tt.state, got, tt.want)
		}
	}
}
