// Path: internal/delivery/ws/handlers.go
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tictactoe/internal/events"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Handlers streams fan-out channels to WebSocket clients. Each connection
// gets its own subscription; nothing published before it connected is sent.
type Handlers struct {
	broker   *events.Broker
	log      *zap.Logger
	upgrader websocket.Upgrader

	done      chan struct{}
	closeOnce sync.Once
}

// NewHandlers creates the push endpoints.
func NewHandlers(broker *events.Broker, log *zap.Logger) *Handlers {
	return &Handlers{
		broker: broker,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		done: make(chan struct{}),
	}
}

// Register implements rest.Routes.
func (h *Handlers) Register(r *mux.Router) {
	r.HandleFunc("/ws/games/{id}/moves", func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		h.stream(w, r, events.MoveMadeChannel(id), events.GameFinishedChannel(id))
	})
	r.HandleFunc("/ws/players/{username}/requests", func(w http.ResponseWriter, r *http.Request) {
		u := mux.Vars(r)["username"]
		h.stream(w, r,
			events.RequestReceivedChannel(u),
			events.RequestRespondedChannel(u),
			events.RequestAcceptedChannel(u),
		)
	})
	r.HandleFunc("/ws/players", func(w http.ResponseWriter, r *http.Request) {
		h.stream(w, r, events.PlayersChanged)
	})
}

// Close disconnects every client.
func (h *Handlers) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *Handlers) stream(w http.ResponseWriter, r *http.Request, channels ...string) {
	// Subscribe before the handshake completes so the client never misses
	// an event published right after it sees the connection open.
	sub := h.broker.Subscribe(channels...)
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Cancel()
		h.log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	h.log.Debug("WebSocket client connected", zap.Strings("channels", channels))

	go h.readPump(conn, sub)
	h.writePump(conn, sub)
}

// readPump only watches for the client going away; clients send nothing.
func (h *Handlers) readPump(conn *websocket.Conn, sub *events.Subscription) {
	defer sub.Cancel()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.log.Warn("WebSocket error", zap.Error(err))
			}
			return
		}
	}
}

func (h *Handlers) writePump(conn *websocket.Conn, sub *events.Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.Cancel()
		conn.Close()
	}()

	for {
		select {
		case e, ok := <-sub.C():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				h.log.Error("Failed to encode event", zap.String("channel", e.Channel), zap.Error(err))
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-h.done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		}
	}
}
