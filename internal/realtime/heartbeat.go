package realtime

import (
	"context"
	"log/slog"
	"time"

	"corkboard/internal/logging"
)

// Monitor probes registered connections on a fixed interval and evicts peers
// that stopped answering, reclaiming sockets that vanished without a clean
// close.
type Monitor struct {
	registry   *Registry
	dispatcher *Dispatcher
	interval   time.Duration
	logger     *slog.Logger
}

// NewMonitor builds a heartbeat monitor over the registry.
func NewMonitor(registry *Registry, dispatcher *Dispatcher, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{
		registry:   registry,
		dispatcher: dispatcher,
		interval:   interval,
		logger:     logging.WithComponent(logger, "heartbeat"),
	}
}

// Run ticks until the context is canceled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("heartbeat monitor started", logging.Duration("interval", m.interval))
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("heartbeat monitor stopped")
			return
		case <-ticker.C:
			m.Tick()
		}
	}
}

// Tick performs one probe pass: evict connections that never answered the
// previous probe, then mark and probe the survivors.
func (m *Monitor) Tick() {
	for _, c := range m.registry.Snapshot() {
		if !c.Alive() {
			m.evict(c)
			continue
		}
		c.MarkProbed()
		if err := c.Ping(); err != nil {
			m.logger.Debug("probe failed",
				logging.String("device_id", c.DeviceID),
				logging.Error(err))
			m.evict(c)
		}
	}
}

func (m *Monitor) evict(c *Client) {
	removed, wasEditHolder := m.registry.Remove(c)
	c.Close(CloseGoingAway, "heartbeat timeout")
	if !removed {
		return
	}
	m.logger.Info("evicted unresponsive connection", logging.String("device_id", c.DeviceID))
	if wasEditHolder {
		m.dispatcher.Broadcast(EventEditLockReleased, map[string]any{
			"implicit": true,
		}, ScopeAll)
	}
}
