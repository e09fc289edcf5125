// Package push delivers fallback Web Push notifications for events that
// should reach devices without an open realtime connection. Delivery is
// best-effort: one attempt per subscription per pass, no scheduled retry.
package push

import (
	"context"
	"encoding/json"

	"corkboard/internal/realtime"
	"corkboard/internal/store"
)

// SubscriptionStore is the persistence surface the worker needs.
type SubscriptionStore interface {
	ListSubscriptions(ctx context.Context, adminOnly bool) ([]*store.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) (bool, error)
	TouchSubscription(ctx context.Context, endpoint string) error
}

// Service fans one event out to registered push endpoints.
type Service interface {
	// Deliver attempts one delivery pass for the event. Outcomes are
	// logged only; by the time delivery runs the original caller has
	// already been answered.
	Deliver(ctx context.Context, eventType realtime.EventType, payload json.RawMessage, adminOnly bool)

	// SendTest pushes a test notification to every subscription, returning
	// the number of successful deliveries.
	SendTest(ctx context.Context) (int, error)

	// Enabled reports whether real deliveries are configured.
	Enabled() bool
}
