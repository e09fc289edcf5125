package push

import (
	"encoding/json"
	"time"

	"corkboard/internal/realtime"
)

// Notification is the payload handed to the push endpoint. The service
// worker on the device renders it as-is.
type Notification struct {
	Title              string `json:"title"`
	Body               string `json:"body"`
	Tag                string `json:"tag"`
	RequireInteraction bool   `json:"requireInteraction"`
	Icon               string `json:"icon"`
	Badge              string `json:"badge"`
	Timestamp          int64  `json:"timestamp"`
}

const (
	defaultIcon  = "/static/icons/icon-192.png"
	defaultBadge = "/static/icons/badge-72.png"
)

type template struct {
	title              string
	body               string
	tag                string
	requireInteraction bool
}

// One fixed template per push-eligible event type. The tag collapses
// repeated notifications of the same kind on the device.
var templates = map[realtime.EventType]template{
	realtime.EventArtifactStagedPending: {
		title: "New upload waiting",
		body:  "A document was uploaded and is waiting for review.",
		tag:   "board-pending",
	},
	realtime.EventArtifactActivated: {
		title: "Board updated",
		body:  "A new document is now visible on the board.",
		tag:   "board-update",
	},
	realtime.EventArtifactsReordered: {
		title: "Board updated",
		body:  "The board layout changed.",
		tag:   "board-update",
	},
	realtime.EventOperatorAlert: {
		title:              "Operator alert",
		body:               "An operator sent an alert to all devices.",
		tag:                "operator-alert",
		requireInteraction: true,
	},
}

// buildNotification renders the notification for an event. Payloads carrying
// a "title" or "message" field override the template text, which lets
// operator alerts show their actual message.
func buildNotification(eventType realtime.EventType, payload json.RawMessage) Notification {
	tmpl, ok := templates[eventType]
	if !ok {
		tmpl = template{title: "Board update", body: "Something changed on the board.", tag: "board-update"}
	}

	notification := Notification{
		Title:              tmpl.title,
		Body:               tmpl.body,
		Tag:                tmpl.tag,
		RequireInteraction: tmpl.requireInteraction,
		Icon:               defaultIcon,
		Badge:              defaultBadge,
		Timestamp:          time.Now().UnixMilli(),
	}

	if len(payload) > 0 {
		var overrides struct {
			Title   string `json:"title"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload, &overrides); err == nil {
			if overrides.Title != "" {
				notification.Title = overrides.Title
			}
			if overrides.Message != "" {
				notification.Body = overrides.Message
			}
		}
	}
	return notification
}
