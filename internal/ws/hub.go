package ws

import (
	"encoding/json"
	"sync"

	"bakery-backoffice/pkg/logger"

	"github.com/gofiber/contrib/websocket"
)

// broadcastBuffer is how many messages may queue before Publish starts
// dropping them.
const broadcastBuffer = 64

// Message is the envelope every client receives.
type Message struct {
	Type    string      `json:"type"`
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

type Hub struct {
	Clients    map[*websocket.Conn]bool
	Register   chan *websocket.Conn
	Unregister chan *websocket.Conn
	Broadcast  chan []byte
	mutex      sync.Mutex
	done       chan struct{}
	closeOnce  sync.Once
	log        *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		Clients:    make(map[*websocket.Conn]bool),
		Register:   make(chan *websocket.Conn),
		Unregister: make(chan *websocket.Conn),
		Broadcast:  make(chan []byte, broadcastBuffer),
		done:       make(chan struct{}),
		log:        log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.Register:
			h.mutex.Lock()
			h.Clients[conn] = true
			n := len(h.Clients)
			h.mutex.Unlock()
			h.log.Debug("websocket client connected", "clients", n)

		case conn := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.Clients[conn]; ok {
				delete(h.Clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()

		case message := <-h.Broadcast:
			h.mutex.Lock()
			for conn := range h.Clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					h.log.Debug("dropping websocket client", "error", err)
					conn.Close()
					delete(h.Clients, conn)
				}
			}
			h.mutex.Unlock()

		case <-h.done:
			h.mutex.Lock()
			for conn := range h.Clients {
				conn.Close()
				delete(h.Clients, conn)
			}
			h.mutex.Unlock()
			return
		}
	}
}

// Close stops Run and disconnects every client.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.Clients)
}

func encode(event string, payload interface{}) ([]byte, error) {
	return json.Marshal(Message{Type: "order_update", Action: event, Payload: payload})
}

// Publish queues an order event for every client. It never blocks: when the
// queue is full the event is dropped and logged.
func (h *Hub) Publish(event string, payload interface{}) {
	msg, err := encode(event, payload)
	if err != nil {
		h.log.Error("encode websocket event", "event", event, "error", err)
		return
	}
	select {
	case h.Broadcast <- msg:
	default:
		h.log.Warn("websocket queue full, event dropped", "event", event)
	}
}

// Serve is the per-connection loop mounted on the websocket route.
func (h *Hub) Serve(c *websocket.Conn) {
	select {
	case h.Register <- c:
	case <-h.done:
		c.Close()
		return
	}
	defer func() {
		select {
		case h.Unregister <- c:
		case <-h.done:
		}
	}()

	for {
		// clients only listen; reads detect disconnects
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
}
