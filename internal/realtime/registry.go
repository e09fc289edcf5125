package realtime

import (
	"log/slog"
	"sync"

	"corkboard/internal/logging"
)

// Registry owns the device-to-connection map. At most one live connection is
// registered per device identifier at any instant.
type Registry struct {
	mu      sync.Mutex
	clients map[string]*Client
	lock    *EditLock
	logger  *slog.Logger
}

// NewRegistry returns an empty registry sharing the given edit lock, so
// removals can report whether the departing connection held it.
func NewRegistry(lock *EditLock, logger *slog.Logger) *Registry {
	return &Registry{
		clients: make(map[string]*Client),
		lock:    lock,
		logger:  logging.WithComponent(logger, "registry"),
	}
}

// Admit registers a client under its device identifier. An existing entry
// for the same device is displaced and returned; the caller is expected to
// close it with a normal-closure code. Message ordering across the swap is
// not preserved.
func (r *Registry) Admit(c *Client) *Client {
	r.mu.Lock()
	previous := r.clients[c.DeviceID]
	r.clients[c.DeviceID] = c
	r.mu.Unlock()

	if previous != nil {
		r.logger.Info("device reconnected, displacing previous connection",
			logging.String("device_id", c.DeviceID))
	} else {
		r.logger.Debug("device admitted", logging.String("device_id", c.DeviceID))
	}
	return previous
}

// Remove deletes the mapping only if the stored entry is still this exact
// client, so a stale close handler cannot evict a newer connection. It
// reports whether the entry was removed and whether the departing client
// held the edit lock; the caller is responsible for the implicit release
// broadcast.
func (r *Registry) Remove(c *Client) (removed, wasEditHolder bool) {
	r.mu.Lock()
	if current, ok := r.clients[c.DeviceID]; ok && current == c {
		delete(r.clients, c.DeviceID)
		removed = true
	}
	r.mu.Unlock()

	if !removed {
		return false, false
	}
	wasEditHolder = r.lock.Release(c)
	r.logger.Debug("device removed",
		logging.String("device_id", c.DeviceID),
		logging.Bool("held_edit_lock", wasEditHolder))
	return removed, wasEditHolder
}

// Get returns the live connection for a device, if any.
func (r *Registry) Get(deviceID string) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clients[deviceID]
}

// Count returns the number of registered connections, for health reporting.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Snapshot returns the current client set. The slice is a copy; callers may
// iterate it without holding the registry closed.
func (r *Registry) Snapshot() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	return clients
}
