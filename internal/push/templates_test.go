package push

import (
	"encoding/json"
	"testing"

	"corkboard/internal/realtime"
)

func TestBuildNotificationFromTemplate(t *testing.T) {
	notification := buildNotification(realtime.EventOperatorAlert, nil)
	if notification.Title != "Operator alert" {
		t.Errorf("title = %q", notification.Title)
	}
	if !notification.RequireInteraction {
		t.Error("operator alerts should require interaction")
	}
	if notification.Tag != "operator-alert" {
		t.Errorf("tag = %q", notification.Tag)
	}
	if notification.Timestamp == 0 {
		t.Error("expected a timestamp")
	}
}

func TestBuildNotificationPayloadOverrides(t *testing.T) {
	payload, _ := json.Marshal(map[string]string{"message": "Board closes at six."})
	notification := buildNotification(realtime.EventOperatorAlert, payload)
	if notification.Body != "Board closes at six." {
		t.Errorf("body = %q, want the operator message", notification.Body)
	}
}

func TestBuildNotificationUnknownEventFallsBack(t *testing.T) {
	notification := buildNotification(realtime.EventType("mystery"), nil)
	if notification.Title == "" || notification.Tag == "" {
		t.Errorf("fallback notification incomplete: %+v", notification)
	}
}
