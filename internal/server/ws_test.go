package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"corkboard/internal/realtime"
)

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func register(t *testing.T, conn *websocket.Conn, signature, sessionToken string) *realtime.Envelope {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{
		"signature":    signature,
		"sessionToken": sessionToken,
	})
	envelope := realtime.Envelope{
		Type:      realtime.EventDeviceRegister,
		Data:      payload,
		Timestamp: time.Now().UnixMilli(),
	}
	raw, _ := json.Marshal(envelope)
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("write register: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, ack, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read ack: %v", err)
	}
	decoded, err := realtime.Decode(ack)
	if err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	return decoded
}

func TestWebsocketRegisterAck(t *testing.T) {
	env := newTestServer(t)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	conn := dialWS(t, ts)
	defer conn.Close()

	ack := register(t, conn, "browser-a", "")
	if ack.Type != realtime.EventDeviceRegister {
		t.Fatalf("ack type = %s, want device_register", ack.Type)
	}

	var data struct {
		DeviceID string `json:"deviceId"`
		Admin    bool   `json:"admin"`
	}
	if err := json.Unmarshal(ack.Data, &data); err != nil {
		t.Fatalf("decode ack data: %v", err)
	}
	if data.DeviceID == "" {
		t.Fatal("expected a derived device id")
	}
	if data.Admin {
		t.Fatal("anonymous registration should not be admin")
	}
	if env.hub.Registry.Count() != 1 {
		t.Fatalf("registry count = %d, want 1", env.hub.Registry.Count())
	}
}

func TestWebsocketSessionBinding(t *testing.T) {
	env := newTestServer(t)
	token := env.login(t)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	conn := dialWS(t, ts)
	defer conn.Close()

	ack := register(t, conn, "admin-browser", token)
	var data struct {
		Admin bool `json:"admin"`
	}
	if err := json.Unmarshal(ack.Data, &data); err != nil {
		t.Fatalf("decode ack data: %v", err)
	}
	if !data.Admin {
		t.Fatal("valid session token should bind as admin")
	}
}

func TestWebsocketDuplicateDeviceDisplaced(t *testing.T) {
	env := newTestServer(t)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	first := dialWS(t, ts)
	defer first.Close()
	register(t, first, "same-device", "")

	second := dialWS(t, ts)
	defer second.Close()
	register(t, second, "same-device", "")

	// The first transport receives a normal-closure frame.
	_ = first.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, _, err := first.ReadMessage()
		if err == nil {
			continue
		}
		if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			t.Fatalf("expected close 1000, got %v", err)
		}
		break
	}

	deadline := time.Now().Add(2 * time.Second)
	for env.hub.Registry.Count() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if env.hub.Registry.Count() != 1 {
		t.Fatalf("registry count = %d, want 1", env.hub.Registry.Count())
	}
}

func TestWebsocketEditLockProtocol(t *testing.T) {
	env := newTestServer(t)
	token := env.login(t)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	admin := dialWS(t, ts)
	defer admin.Close()
	register(t, admin, "editor", token)

	send := func(msgType realtime.EventType) {
		raw, _ := json.Marshal(realtime.Envelope{Type: msgType, Timestamp: time.Now().UnixMilli()})
		if err := admin.WriteMessage(websocket.TextMessage, raw); err != nil {
			t.Fatalf("write %s: %v", msgType, err)
		}
	}

	send(msgEditLockAcquire)

	_ = admin.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := admin.ReadMessage()
	if err != nil {
		t.Fatalf("read lock event: %v", err)
	}
	envelope, err := realtime.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Type != realtime.EventEditLockAcquired {
		t.Fatalf("event = %s, want edit_lock_acquired", envelope.Type)
	}
	if env.hub.Lock.Holder() == nil {
		t.Fatal("lock should be held")
	}

	send(msgEditLockRelease)
	_, raw, err = admin.ReadMessage()
	if err != nil {
		t.Fatalf("read release event: %v", err)
	}
	envelope, _ = realtime.Decode(raw)
	if envelope.Type != realtime.EventEditLockReleased {
		t.Fatalf("event = %s, want edit_lock_released", envelope.Type)
	}
}

func TestWebsocketDisconnectClearsLock(t *testing.T) {
	env := newTestServer(t)
	token := env.login(t)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	admin := dialWS(t, ts)
	register(t, admin, "editor", token)

	raw, _ := json.Marshal(realtime.Envelope{Type: msgEditLockAcquire, Timestamp: time.Now().UnixMilli()})
	if err := admin.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("write acquire: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for env.hub.Lock.Holder() == nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if env.hub.Lock.Holder() == nil {
		t.Fatal("lock never acquired")
	}

	admin.Close()

	deadline = time.Now().Add(2 * time.Second)
	for env.hub.Lock.Holder() != nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if env.hub.Lock.Holder() != nil {
		t.Fatal("lock should clear when the holder's socket dies")
	}
}

func TestWebsocketRejectsUnregisteredFirstMessage(t *testing.T) {
	env := newTestServer(t)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	conn := dialWS(t, ts)
	defer conn.Close()

	raw, _ := json.Marshal(realtime.Envelope{Type: msgEditLockAcquire, Timestamp: time.Now().UnixMilli()})
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("write: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("socket should be dropped when the first message is not device_register")
	}
	if env.hub.Registry.Count() != 0 {
		t.Fatalf("registry count = %d, want 0", env.hub.Registry.Count())
	}
}
