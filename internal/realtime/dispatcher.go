package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"corkboard/internal/logging"
)

// Notifier delivers fallback push notifications for events that warrant
// reaching devices without an open connection.
type Notifier interface {
	Deliver(ctx context.Context, eventType EventType, payload json.RawMessage, adminOnly bool)
}

// Result summarizes one broadcast pass.
type Result struct {
	Sent   int
	Failed int
}

// Dispatcher fans typed events out to registered connections. A failed send
// on one connection never aborts delivery to the rest.
type Dispatcher struct {
	registry *Registry
	lock     *EditLock
	notifier Notifier
	logger   *slog.Logger

	pushTimeout time.Duration
}

// NewDispatcher wires the dispatcher to the registry and edit lock. notifier
// may be nil when push delivery is disabled.
func NewDispatcher(registry *Registry, lock *EditLock, notifier Notifier, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		registry:    registry,
		lock:        lock,
		notifier:    notifier,
		logger:      logging.WithComponent(logger, "dispatcher"),
		pushTimeout: 30 * time.Second,
	}
}

// Broadcast serializes the event once and writes it to every connection in
// scope. Push-eligible events additionally schedule an asynchronous push
// delivery pass; scheduling never blocks the realtime write path.
func (d *Dispatcher) Broadcast(eventType EventType, data any, scope Scope) Result {
	return d.broadcast(eventType, data, scope, false)
}

// BroadcastAdminPush behaves like Broadcast but restricts the push delivery
// pass to admin-flagged subscriptions.
func (d *Dispatcher) BroadcastAdminPush(eventType EventType, data any, scope Scope) Result {
	return d.broadcast(eventType, data, scope, true)
}

func (d *Dispatcher) broadcast(eventType EventType, data any, scope Scope, adminPushOnly bool) Result {
	message, err := Encode(eventType, data)
	if err != nil {
		d.logger.Error("event serialization failed",
			logging.String("event", string(eventType)),
			logging.Error(err))
		return Result{}
	}

	var result Result
	for _, c := range d.targets(scope) {
		if c.Send(message) {
			result.Sent++
		} else {
			result.Failed++
		}
	}

	d.logger.Debug("broadcast complete",
		logging.String("event", string(eventType)),
		logging.String("scope", scope.String()),
		logging.Int("sent", result.Sent),
		logging.Int("failed", result.Failed))

	if eventType.PushEligible() && d.notifier != nil {
		d.schedulePush(eventType, data, adminPushOnly)
	}
	return result
}

// SendTo delivers one event to a single connection, outside any scope rule.
// Used for direct notices such as forced logout.
func (d *Dispatcher) SendTo(c *Client, eventType EventType, data any) bool {
	if c == nil {
		return false
	}
	message, err := Encode(eventType, data)
	if err != nil {
		d.logger.Error("event serialization failed",
			logging.String("event", string(eventType)),
			logging.Error(err))
		return false
	}
	return c.Send(message)
}

func (d *Dispatcher) targets(scope Scope) []*Client {
	switch scope {
	case ScopeEditLockHolder:
		holder := d.lock.Holder()
		if holder == nil {
			// Holder departed since the event was scoped; drop it.
			return nil
		}
		return []*Client{holder}
	default:
		return d.registry.Snapshot()
	}
}

func (d *Dispatcher) schedulePush(eventType EventType, data any, adminOnly bool) {
	var payload json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			d.logger.Error("push payload serialization failed",
				logging.String("event", string(eventType)),
				logging.Error(err))
			return
		}
		payload = encoded
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.pushTimeout)
		defer cancel()
		d.notifier.Deliver(ctx, eventType, payload, adminOnly)
	}()
}
