package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

const broadcastBuffer = 64

// Event is the JSON frame pushed to every connected storefront/admin client.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Action    string      `json:"action"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type Hub struct {
	Clients    map[*websocket.Conn]bool
	Register   chan *websocket.Conn
	Unregister chan *websocket.Conn
	Broadcast  chan []byte
	mutex      sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*websocket.Conn]bool),
		Register:   make(chan *websocket.Conn),
		Unregister: make(chan *websocket.Conn),
		Broadcast:  make(chan []byte, broadcastBuffer),
	}
}

// Publish queues an event for broadcast. It never blocks the caller: when the
// queue is full the event is dropped and logged.
func (h *Hub) Publish(eventType, action string, data interface{}, message string) {
	evt := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Action:    action,
		Data:      data,
		Message:   message,
		Timestamp: time.Now(),
	}

	msg, err := json.Marshal(evt)
	if err != nil {
		log.Printf("ws: failed to encode %s event: %v", action, err)
		return
	}

	select {
	case h.Broadcast <- msg:
	default:
		log.Printf("ws: broadcast queue full, dropping %s event", action)
	}
}

func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.Clients)
}

func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.Register:
			h.mutex.Lock()
			h.Clients[conn] = true
			h.mutex.Unlock()
			log.Println("New WS Client Connected")

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
					conn.Close()
					delete(h.Clients, conn)
				}
			}
			h.mutex.Unlock()
		}
	}
}
