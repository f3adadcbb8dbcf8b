package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oneoblomov/HandPC/internal/app"
	"github.com/oneoblomov/HandPC/internal/gesture"
)

const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// message is one frame of the event stream.
type message struct {
	Type      string         `json:"type"`
	Event     *gesture.Event `json:"event,omitempty"`
	Status    *app.Status    `json:"status,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

// sendBuffer is how many messages may wait for a slow client before it is
// dropped.
const sendBuffer = 32

// client is one WebSocket connection. Only its writer goroutine writes to
// conn once it is registered.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writeLoop() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "closing"),
		time.Now().Add(writeWait))
}

// EventsHandler pushes pipeline events to WebSocket clients. Broadcast
// never blocks on the network.
type EventsHandler struct {
	greeting func() any
	clients  map[*client]struct{}
	mu       sync.Mutex
}

// NewEventsHandler creates an EventsHandler. greeting, when it returns
// non-nil, is written to each client as soon as it connects.
func NewEventsHandler(greeting func() any) *EventsHandler {
	return &EventsHandler{
		greeting: greeting,
		clients:  make(map[*client]struct{}),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	if h.greeting != nil {
		if v := h.greeting(); v != nil {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(v); err != nil {
				conn.Close()
				return
			}
		}
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)
	go c.writeLoop()
	defer h.unregister(c)

	// Reads only detect the peer going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *EventsHandler) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *EventsHandler) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(c)
}

// drop is called with h.mu held. Closing send stops the writer, which
// closes the connection.
func (h *EventsHandler) drop(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// Broadcast queues v as JSON for every client. A client whose queue is
// full is dropped.
func (h *EventsHandler) Broadcast(v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		log.Printf("Failed to encode event: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.Println("Dropping slow event stream client")
			h.drop(c)
		}
	}
}

// Clients returns the number of connected clients.
func (h *EventsHandler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll disconnects every client.
func (h *EventsHandler) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.drop(c)
	}
}
