package realtime

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType identifies one kind of realtime message. The set is closed;
// handlers dispatch on it exhaustively rather than matching raw strings.
type EventType string

const (
	EventDeviceRegister        EventType = "device_register"
	EventEditLockAcquired      EventType = "edit_lock_acquired"
	EventEditLockReleased      EventType = "edit_lock_released"
	EventArtifactUploaded      EventType = "artifact_uploaded"
	EventArtifactStagedPending EventType = "artifact_staged_to_pending"
	EventArtifactActivated     EventType = "artifact_activated"
	EventArtifactsReordered    EventType = "artifacts_reordered"
	EventArtifactMetadata      EventType = "artifact_metadata_updated"
	EventArtifactAltTheme      EventType = "artifact_alternate_theme_ready"
	EventArtifactDeleted       EventType = "artifact_deleted"
	EventOperatorAlert         EventType = "operator_alert"
	EventDeviceLoggedOut       EventType = "device_logged_out"
)

// Valid reports whether the event type belongs to the known catalog.
func (e EventType) Valid() bool {
	switch e {
	case EventDeviceRegister, EventEditLockAcquired, EventEditLockReleased,
		EventArtifactUploaded, EventArtifactStagedPending, EventArtifactActivated,
		EventArtifactsReordered, EventArtifactMetadata, EventArtifactAltTheme,
		EventArtifactDeleted, EventOperatorAlert, EventDeviceLoggedOut:
		return true
	}
	return false
}

// PushEligible reports whether the event type should additionally be handed
// to the push delivery worker after the realtime fan-out.
func (e EventType) PushEligible() bool {
	switch e {
	case EventArtifactStagedPending, EventArtifactActivated,
		EventArtifactsReordered, EventOperatorAlert:
		return true
	}
	return false
}

// Scope selects which connections a broadcast reaches.
type Scope int

const (
	// ScopeAll delivers to every open connection.
	ScopeAll Scope = iota
	// ScopeEditLockHolder delivers only to the current edit lock holder, if
	// any. Used for staged-artifact updates that must not leak to viewers.
	ScopeEditLockHolder
)

func (s Scope) String() string {
	switch s {
	case ScopeAll:
		return "all"
	case ScopeEditLockHolder:
		return "edit-lock-holder"
	}
	return fmt.Sprintf("scope(%d)", int(s))
}

// Envelope is the wire format for realtime messages in both directions.
type Envelope struct {
	Type      EventType       `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Encode serializes one event into its wire envelope. The payload is
// marshaled exactly once per broadcast; every recipient gets identical bytes.
func Encode(eventType EventType, data any) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
		}
		raw = encoded
	}
	envelope := Envelope{
		Type:      eventType,
		Data:      raw,
		Timestamp: time.Now().UnixMilli(),
	}
	msg, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", eventType, err)
	}
	return msg, nil
}

// Decode parses an inbound wire message into its envelope.
func Decode(raw []byte) (*Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if envelope.Type == "" {
		return nil, fmt.Errorf("decode envelope: missing type")
	}
	return &envelope, nil
}
