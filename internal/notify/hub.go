package notify

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Publisher broadcasts entity-changed events to connected clients. Publish is
// best-effort: it never blocks the caller and delivery failures are swallowed.
type Publisher interface {
	Publish(event string, payload any)
}

// Event is the wire format pushed to dashboard clients.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The dashboard may be served from a different origin
		return true
	},
}

// client is one connected dashboard socket.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans out events to all connected WebSocket clients.
type Hub struct {
	clients    map[*client]struct{}
	mu         sync.Mutex
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	logger     *log.Logger
}

// NewHub creates a hub. Run must be started in a goroutine before clients connect.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		register:   make(chan *client, 8),
		unregister: make(chan *client, 8),
		broadcast:  make(chan []byte, 256),
		logger:     logger,
	}
}

// Run processes registrations and broadcasts until the channel loop exits.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
			h.logger.WithField("clients", h.ClientCount()).Debug("websocket client connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.WithField("clients", h.ClientCount()).Debug("websocket client disconnected")

		case message := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					// Slow client, drop it rather than block the hub
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish marshals the event and queues it for broadcast. It never blocks;
// if the broadcast buffer is full the event is dropped.
func (h *Hub) Publish(event string, payload any) {
	message, err := json.Marshal(Event{Event: event, Data: payload})
	if err != nil {
		h.logger.WithError(err).WithField("event", event).Warn("failed to marshal event")
		return
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.WithField("event", event).Warn("broadcast buffer full, event dropped")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades an HTTP request to a WebSocket connection and registers it
// with the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Error("websocket upgrade failed")
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	h.register <- c

	go c.writePump()
	go c.readPump(h)
}

// readPump drains client messages to keep the connection alive. Inbound
// messages are ignored; the push channel is one-way.
func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump sends queued messages and periodic pings to the client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
