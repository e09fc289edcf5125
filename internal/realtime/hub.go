package realtime

import (
	"log/slog"

	"corkboard/internal/logging"
)

// Hub ties the registry, edit lock, and dispatcher together and owns the
// protocol-level transitions: admission, lock handoff, and disconnect.
type Hub struct {
	Registry   *Registry
	Lock       *EditLock
	Dispatcher *Dispatcher

	identity   IdentityFunc
	sendBuffer int
	logger     *slog.Logger
}

// HubOptions configures hub construction.
type HubOptions struct {
	Identity   IdentityFunc
	SendBuffer int
	Notifier   Notifier
	Logger     *slog.Logger
}

// NewHub builds the realtime coordination core.
func NewHub(opts HubOptions) *Hub {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	identity := opts.Identity
	if identity == nil {
		identity = PeerSignatureIdentity
	}

	lock := NewEditLock()
	registry := NewRegistry(lock, logger)
	dispatcher := NewDispatcher(registry, lock, opts.Notifier, logger)
	return &Hub{
		Registry:   registry,
		Lock:       lock,
		Dispatcher: dispatcher,
		identity:   identity,
		sendBuffer: opts.SendBuffer,
		logger:     logging.WithComponent(logger, "hub"),
	}
}

// DeviceID derives the stable device identifier for a peer.
func (h *Hub) DeviceID(remoteAddr, signature string) string {
	return h.identity(remoteAddr, signature)
}

// Admit registers a new connection for a device and starts its write pump.
// A prior connection for the same device is closed with a normal-closure
// code before the new one takes over.
func (h *Hub) Admit(deviceID string, transport Transport) *Client {
	c := NewClient(deviceID, transport, h.sendBuffer, h.logger)
	if previous := h.Registry.Admit(c); previous != nil {
		previous.Close(CloseNormal, "superseded by new connection")
	}
	go c.WritePump()
	return c
}

// AcquireEditLock hands the advisory lock to the client and tells every
// connection who is editing now.
func (h *Hub) AcquireEditLock(c *Client) {
	h.Lock.Acquire(c)
	h.Dispatcher.Broadcast(EventEditLockAcquired, map[string]any{
		"deviceId": c.DeviceID,
	}, ScopeAll)
}

// ReleaseEditLock clears the lock if the client holds it and announces the
// transition. A release from a non-holder is a no-op.
func (h *Hub) ReleaseEditLock(c *Client) {
	if !h.Lock.Release(c) {
		return
	}
	h.Dispatcher.Broadcast(EventEditLockReleased, map[string]any{
		"deviceId": c.DeviceID,
	}, ScopeAll)
}

// Disconnect removes the connection from the registry and closes it. If the
// departing connection held the edit lock, the implicit release is announced
// to the remaining connections.
func (h *Hub) Disconnect(c *Client, code int, reason string) {
	removed, wasEditHolder := h.Registry.Remove(c)
	c.Close(code, reason)
	if removed && wasEditHolder {
		h.Dispatcher.Broadcast(EventEditLockReleased, map[string]any{
			"deviceId": c.DeviceID,
			"implicit": true,
		}, ScopeAll)
	}
}
