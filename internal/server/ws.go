package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"corkboard/internal/logging"
	"corkboard/internal/realtime"
)

const (
	registerWait = 10 * time.Second
	writeWait    = 10 * time.Second
)

// Inbound protocol message types. Clients drive the edit lock and liveness
// with these; everything else arrives over the REST surface.
const (
	msgDeviceRegister  = realtime.EventDeviceRegister
	msgEditLockAcquire realtime.EventType = "edit_lock_acquire"
	msgEditLockRelease realtime.EventType = "edit_lock_release"
	msgHeartbeat       realtime.EventType = "heartbeat"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The board is served same-origin; reverse proxies terminate anything
	// external.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsTransport adapts a gorilla connection to the realtime transport surface.
// Data frames are written only by the client's write pump; control frames
// may be written concurrently.
type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) WriteMessage(data []byte) error {
	_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) Ping() error {
	return t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (t *wsTransport) Close(code int, reason string) error {
	message := websocket.FormatCloseMessage(code, reason)
	_ = t.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(writeWait))
	return t.conn.Close()
}

type registerPayload struct {
	Signature    string `json:"signature"`
	SessionToken string `json:"sessionToken"`
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", logging.Error(err))
		return
	}

	// The first message must register the device; everything before that is
	// an anonymous socket we are not willing to hold open.
	_ = conn.SetReadDeadline(time.Now().Add(registerWait))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return
	}
	envelope, err := realtime.Decode(raw)
	if err != nil || envelope.Type != msgDeviceRegister {
		_ = conn.Close()
		return
	}
	var register registerPayload
	if len(envelope.Data) > 0 {
		_ = json.Unmarshal(envelope.Data, &register)
	}

	deviceID := s.hub.DeviceID(r.RemoteAddr, register.Signature)
	client := s.hub.Admit(deviceID, &wsTransport{conn: conn})

	isAdmin := false
	if register.SessionToken != "" {
		if sess, err := s.sessions.Validate(register.SessionToken); err == nil {
			if err := s.sessions.Bind(sess.ID, client); err == nil {
				isAdmin = true
			}
		}
	}

	s.hub.Dispatcher.SendTo(client, realtime.EventDeviceRegister, map[string]any{
		"deviceId": deviceID,
		"admin":    isAdmin,
	})

	conn.SetPongHandler(func(string) error {
		client.MarkAlive()
		_ = conn.SetReadDeadline(time.Time{})
		return nil
	})
	_ = conn.SetReadDeadline(time.Time{})

	s.readLoop(conn, client)
}

// readLoop consumes inbound protocol messages until the socket dies. It is
// the close handler for the connection: when it returns, the device is
// removed from the registry and an implicit lock release is announced when
// needed.
func (s *Server) readLoop(conn *websocket.Conn, client *realtime.Client) {
	defer func() {
		if client.SessionID != "" {
			s.sessions.Unbind(client.SessionID, client)
		}
		s.hub.Disconnect(client, realtime.CloseGoingAway, "connection closed")
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		envelope, err := realtime.Decode(raw)
		if err != nil {
			s.logger.Debug("undecodable realtime message",
				logging.String("device_id", client.DeviceID),
				logging.Error(err))
			continue
		}

		switch envelope.Type {
		case msgHeartbeat:
			client.MarkAlive()
		case msgEditLockAcquire:
			if client.SessionID == "" {
				// Only logged-in admins may edit.
				continue
			}
			s.hub.AcquireEditLock(client)
		case msgEditLockRelease:
			s.hub.ReleaseEditLock(client)
		case msgDeviceRegister:
			// Already registered; ignore.
		default:
			s.logger.Debug("unexpected realtime message",
				logging.String("device_id", client.DeviceID),
				logging.String("type", string(envelope.Type)))
		}
	}
}
