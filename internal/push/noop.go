package push

import (
	"context"
	"encoding/json"

	"corkboard/internal/realtime"
)

type nopService struct{}

// NewNop returns a service that silently drops every delivery. Used when no
// VAPID keys are configured.
func NewNop() Service {
	return nopService{}
}

func (nopService) Deliver(context.Context, realtime.EventType, json.RawMessage, bool) {}

func (nopService) SendTest(context.Context) (int, error) { return 0, nil }

func (nopService) Enabled() bool { return false }
