package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/duskpool/core/pkg/eventbus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin is enforced by the CORS middleware on the REST surface
	},
}

// clientMessage is every shape a client may send: subscribe, unsubscribe,
// or pong.
type clientMessage struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
}

// serverMessage is every shape the server sends besides a published event
// (which uses eventbus.WSEvent directly).
type serverMessage struct {
	Type      string `json:"type"`
	Channel   string `json:"channel,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// handleWebSocket upgrades the connection, registers a bus subscriber, and
// runs its read/write pumps until either side closes.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}

	sub := s.bus.Register()
	go s.writePump(conn, sub)
	s.readPump(conn, sub)
}

// readPump decodes subscribe/unsubscribe/pong frames until the connection
// closes, at which point it unregisters the subscriber so writePump's range
// over Outbound() ends.
func (s *Server) readPump(conn *websocket.Conn, sub *eventbus.Subscriber) {
	defer func() {
		s.bus.Unregister(sub)
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			writeServerMessage(conn, serverMessage{Type: "error", Message: "invalid JSON frame"})
			continue
		}

		switch msg.Type {
		case "subscribe":
			s.bus.Subscribe(sub, eventbus.Channel(msg.Channel))
			writeServerMessage(conn, serverMessage{Type: "subscribed", Channel: msg.Channel})
		case "unsubscribe":
			s.bus.Unsubscribe(sub, eventbus.Channel(msg.Channel))
			writeServerMessage(conn, serverMessage{Type: "unsubscribed", Channel: msg.Channel})
		case "pong":
			sub.RecordPong(time.Now())
		default:
			writeServerMessage(conn, serverMessage{Type: "error", Message: "unknown message type " + msg.Type})
		}
	}
}

// writePump drains the subscriber's outbound queue to the connection and
// sends periodic pings, disconnecting a subscriber that misses too many
// consecutive pongs per the configured heartbeat.
func (s *Server) writePump(conn *websocket.Conn, sub *eventbus.Subscriber) {
	interval := time.Duration(s.heartbeat.interval) * time.Millisecond
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-sub.Outbound():
			if !ok {
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case now := <-ticker.C:
			if sub.MissedPongs(now, interval) > s.heartbeat.missedPongLimit {
				s.logger.Infow("disconnecting subscriber for missed pongs")
				return
			}
			if err := writeServerMessage(conn, serverMessage{Type: "ping", Timestamp: now.UnixMilli()}); err != nil {
				return
			}
		}
	}
}

func writeServerMessage(conn *websocket.Conn, msg serverMessage) error {
	return conn.WriteJSON(msg)
}
