package realtime

import (
	"sync"
	"testing"

	"corkboard/internal/logging"
)

type fakeTransport struct {
	mu          sync.Mutex
	messages    [][]byte
	pings       int
	pingErr     error
	writeErr    error
	closed      bool
	closeCode   int
	closeReason string
}

func (t *fakeTransport) WriteMessage(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.writeErr != nil {
		return t.writeErr
	}
	t.messages = append(t.messages, data)
	return nil
}

func (t *fakeTransport) Ping() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pingErr != nil {
		return t.pingErr
	}
	t.pings++
	return nil
}

func (t *fakeTransport) Close(code int, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.closeCode = code
	t.closeReason = reason
	return nil
}

func (t *fakeTransport) CloseCode() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeCode
}

func (t *fakeTransport) WasClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func newTestClient(t *testing.T, deviceID string) (*Client, *fakeTransport) {
	t.Helper()
	transport := &fakeTransport{}
	return NewClient(deviceID, transport, 8, logging.NewNop()), transport
}

// drain pops one queued message off the client's send channel without
// running a write pump.
func drain(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	default:
		t.Fatal("expected a queued message")
		return nil
	}
}
