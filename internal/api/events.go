package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/subwatch/backend/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // internal tool, origins not restricted
	},
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

// WSEvent is the frame pushed to connected feed clients.
type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// EventHub fans stored notifications out to connected websocket clients. It
// implements domain.NotificationSink; publishing never blocks ingestion.
type EventHub struct {
	clients    map[*feedClient]bool
	register   chan *feedClient
	unregister chan *feedClient
	broadcast  chan []byte
	mu         sync.RWMutex
	logger     *zap.Logger
}

func NewEventHub(logger *zap.Logger) *EventHub {
	return &EventHub{
		clients:    make(map[*feedClient]bool),
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
		broadcast:  make(chan []byte, 64),
		logger:     logger,
	}
}

func (h *EventHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("feed client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Debug("feed client disconnected")
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow client; drop the frame rather than block.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Publish queues a notification for broadcast. Fire-and-forget: if the hub
// buffer is full the event is dropped.
func (h *EventHub) Publish(n domain.Notification) {
	frame, err := json.Marshal(WSEvent{Type: "notification", Payload: n})
	if err != nil {
		h.logger.Error("failed to marshal feed event", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- frame:
	default:
	}
}

// Serve upgrades the connection and attaches it to the hub.
func (h *EventHub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &feedClient{conn: conn, send: make(chan []byte, 16)}
	h.register <- client

	go client.writePump()
	go client.readPump(h)
}

func (c *feedClient) readPump(hub *EventHub) {
	defer func() {
		hub.unregister <- c
		c.conn.Close()
	}()

	// The feed is server-to-client only; reads just detect disconnects.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *feedClient) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
