package realtime

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"corkboard/internal/logging"
)

// CloseNormal and CloseGoingAway mirror the websocket close codes used when
// the registry or heartbeat monitor terminates a connection.
const (
	CloseNormal    = 1000
	CloseGoingAway = 1001
)

// Transport abstracts the underlying socket so registry and dispatcher logic
// can be exercised without a live websocket.
type Transport interface {
	WriteMessage(data []byte) error
	Ping() error
	Close(code int, reason string) error
}

// Client is one admitted device connection. The send channel decouples
// broadcast callers from slow sockets; WritePump is the only goroutine that
// touches the transport for data frames.
type Client struct {
	DeviceID  string
	SessionID string

	transport Transport
	logger    *slog.Logger

	mu     sync.RWMutex
	send   chan []byte
	closed bool

	alive atomic.Bool
}

// NewClient wraps an admitted transport. bufferSize bounds the send queue;
// a full queue drops messages rather than blocking the broadcaster.
func NewClient(deviceID string, transport Transport, bufferSize int, logger *slog.Logger) *Client {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	c := &Client{
		DeviceID:  deviceID,
		transport: transport,
		send:      make(chan []byte, bufferSize),
		logger:    logging.WithComponent(logger, "realtime"),
	}
	c.alive.Store(true)
	return c
}

// Send queues a message for delivery. Returns false if the client is closed
// or its buffer is full; the caller counts that as a failed send.
func (c *Client) Send(message []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		c.logger.Warn("send buffer full, dropping message", logging.String("device_id", c.DeviceID))
		return false
	}
}

// Close terminates the connection with the given close code. Safe to call
// multiple times; only the first call writes the close frame.
func (c *Client) Close(code int, reason string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	if err := c.transport.Close(code, reason); err != nil {
		c.logger.Debug("transport close failed",
			logging.String("device_id", c.DeviceID),
			logging.Error(err))
	}
}

// Closed reports whether Close has been called.
func (c *Client) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// MarkAlive records a liveness response from the peer.
func (c *Client) MarkAlive() {
	c.alive.Store(true)
}

// MarkProbed clears the liveness flag ahead of a probe; the peer must answer
// before the next heartbeat tick to stay registered.
func (c *Client) MarkProbed() {
	c.alive.Store(false)
}

// Alive reports whether the peer has answered since the last probe.
func (c *Client) Alive() bool {
	return c.alive.Load()
}

// Ping sends a liveness probe on the transport.
func (c *Client) Ping() error {
	return c.transport.Ping()
}

// WritePump drains the send queue onto the transport until the queue is
// closed or a write fails. Run it in its own goroutine per connection.
func (c *Client) WritePump() {
	for message := range c.send {
		if err := c.transport.WriteMessage(message); err != nil {
			c.logger.Debug("write failed",
				logging.String("device_id", c.DeviceID),
				logging.Error(err))
			c.Close(CloseGoingAway, "write failure")
			return
		}
	}
}
