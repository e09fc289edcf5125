package realtime

import "testing"

func TestSendAfterCloseFails(t *testing.T) {
	c, transport := newTestClient(t, "device")

	if !c.Send([]byte("hello")) {
		t.Fatal("send on an open client should succeed")
	}

	c.Close(CloseNormal, "bye")
	if c.Send([]byte("late")) {
		t.Fatal("send after close should fail")
	}
	if !c.Closed() {
		t.Fatal("client should report closed")
	}
	if transport.CloseCode() != CloseNormal {
		t.Fatalf("close code = %d, want %d", transport.CloseCode(), CloseNormal)
	}

	// Second close must not panic or rewrite the close frame.
	c.Close(CloseGoingAway, "again")
	if transport.CloseCode() != CloseNormal {
		t.Fatal("second close should not overwrite the first close code")
	}
}

func TestSendDropsWhenBufferFull(t *testing.T) {
	transport := &fakeTransport{}
	c := NewClient("device", transport, 2, nil)

	if !c.Send([]byte("1")) || !c.Send([]byte("2")) {
		t.Fatal("sends within the buffer should succeed")
	}
	if c.Send([]byte("3")) {
		t.Fatal("send on a full buffer should drop, not block")
	}
}

func TestWritePumpDeliversQueuedMessages(t *testing.T) {
	c, transport := newTestClient(t, "device")

	c.Send([]byte("one"))
	c.Send([]byte("two"))
	c.Close(CloseNormal, "done")

	// The pump drains buffered messages even after close.
	c.WritePump()

	transport.mu.Lock()
	defer transport.mu.Unlock()
	if len(transport.messages) != 2 {
		t.Fatalf("delivered %d messages, want 2", len(transport.messages))
	}
	if string(transport.messages[0]) != "one" || string(transport.messages[1]) != "two" {
		t.Fatalf("messages out of order: %q", transport.messages)
	}
}

func TestLivenessFlags(t *testing.T) {
	c, transport := newTestClient(t, "device")

	if !c.Alive() {
		t.Fatal("a fresh client starts alive")
	}
	c.MarkProbed()
	if c.Alive() {
		t.Fatal("probed client should read not-alive until it answers")
	}
	c.MarkAlive()
	if !c.Alive() {
		t.Fatal("answered client should read alive")
	}

	if err := c.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	transport.mu.Lock()
	defer transport.mu.Unlock()
	if transport.pings != 1 {
		t.Fatalf("pings = %d, want 1", transport.pings)
	}
}
