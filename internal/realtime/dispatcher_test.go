package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"corkboard/internal/logging"
)

type recordingNotifier struct {
	delivered chan deliveredEvent
}

type deliveredEvent struct {
	eventType EventType
	adminOnly bool
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{delivered: make(chan deliveredEvent, 8)}
}

func (n *recordingNotifier) Deliver(_ context.Context, eventType EventType, _ json.RawMessage, adminOnly bool) {
	n.delivered <- deliveredEvent{eventType: eventType, adminOnly: adminOnly}
}

func newTestHub(notifier Notifier) *Hub {
	return NewHub(HubOptions{
		Identity:   PeerSignatureIdentity,
		SendBuffer: 8,
		Notifier:   notifier,
		Logger:     logging.NewNop(),
	})
}

func TestBroadcastAllReachesEveryConnection(t *testing.T) {
	hub := newTestHub(nil)

	var clients []*Client
	for _, id := range []string{"a", "b", "c"} {
		c, _ := newTestClient(t, id)
		hub.Registry.Admit(c)
		clients = append(clients, c)
	}

	result := hub.Dispatcher.Broadcast(EventArtifactDeleted, map[string]string{"id": "doc"}, ScopeAll)
	if result.Sent != 3 || result.Failed != 0 {
		t.Fatalf("result = %+v, want 3 sent / 0 failed", result)
	}

	// Every connection receives byte-identical serialized payload.
	var first []byte
	for _, c := range clients {
		msg := drain(t, c)
		if first == nil {
			first = msg
			continue
		}
		if !bytes.Equal(first, msg) {
			t.Fatalf("payloads differ across connections: %s vs %s", first, msg)
		}
	}
}

func TestBroadcastCountsFailedSends(t *testing.T) {
	hub := newTestHub(nil)

	open, _ := newTestClient(t, "open")
	closed, _ := newTestClient(t, "closed")
	hub.Registry.Admit(open)
	hub.Registry.Admit(closed)
	closed.Close(CloseNormal, "gone")

	result := hub.Dispatcher.Broadcast(EventArtifactDeleted, nil, ScopeAll)
	if result.Sent != 1 || result.Failed != 1 {
		t.Fatalf("result = %+v, want 1 sent / 1 failed", result)
	}
	// The closed connection must not abort delivery to the open one.
	drain(t, open)
}

func TestBroadcastHolderScope(t *testing.T) {
	hub := newTestHub(nil)

	holder, _ := newTestClient(t, "editor")
	viewer, _ := newTestClient(t, "viewer")
	hub.Registry.Admit(holder)
	hub.Registry.Admit(viewer)
	hub.Lock.Acquire(holder)

	result := hub.Dispatcher.Broadcast(EventArtifactMetadata, map[string]string{"id": "staged"}, ScopeEditLockHolder)
	if result.Sent != 1 {
		t.Fatalf("sent = %d, want 1", result.Sent)
	}
	drain(t, holder)
	select {
	case msg := <-viewer.send:
		t.Fatalf("viewer should not receive holder-scoped event, got %s", msg)
	default:
	}
}

func TestBroadcastHolderScopeWithoutHolderDrops(t *testing.T) {
	hub := newTestHub(nil)

	viewer, _ := newTestClient(t, "viewer")
	hub.Registry.Admit(viewer)

	// The scoped-to-holder event is simply dropped when the holder is gone.
	result := hub.Dispatcher.Broadcast(EventArtifactMetadata, nil, ScopeEditLockHolder)
	if result.Sent != 0 || result.Failed != 0 {
		t.Fatalf("result = %+v, want zero activity", result)
	}
}

func TestPushEligibleEventsScheduleDelivery(t *testing.T) {
	notifier := newRecordingNotifier()
	hub := newTestHub(notifier)

	hub.Dispatcher.Broadcast(EventArtifactActivated, map[string]string{"id": "doc"}, ScopeAll)

	select {
	case event := <-notifier.delivered:
		if event.eventType != EventArtifactActivated {
			t.Fatalf("delivered %s, want %s", event.eventType, EventArtifactActivated)
		}
		if event.adminOnly {
			t.Fatal("plain broadcast should not restrict push to admins")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("push delivery was never scheduled")
	}

	// Non-eligible events never reach the notifier.
	hub.Dispatcher.Broadcast(EventEditLockAcquired, nil, ScopeAll)
	select {
	case event := <-notifier.delivered:
		t.Fatalf("unexpected push for %s", event.eventType)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestAdminOnlyPushRestriction(t *testing.T) {
	notifier := newRecordingNotifier()
	hub := newTestHub(notifier)

	hub.Dispatcher.BroadcastAdminPush(EventArtifactStagedPending, map[string]string{"id": "doc"}, ScopeAll)

	select {
	case event := <-notifier.delivered:
		if !event.adminOnly {
			t.Fatal("expected admin-only push delivery")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("push delivery was never scheduled")
	}
}

func TestSendToSingleConnection(t *testing.T) {
	hub := newTestHub(nil)
	c, _ := newTestClient(t, "device")
	hub.Registry.Admit(c)

	if !hub.Dispatcher.SendTo(c, EventDeviceLoggedOut, nil) {
		t.Fatal("direct send should succeed")
	}
	envelope, err := Decode(drain(t, c))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Type != EventDeviceLoggedOut {
		t.Fatalf("type = %s, want %s", envelope.Type, EventDeviceLoggedOut)
	}

	if hub.Dispatcher.SendTo(nil, EventDeviceLoggedOut, nil) {
		t.Fatal("send to nil connection should fail")
	}
}
