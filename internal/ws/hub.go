package ws

import (
	"log"
)

// pushEnvelope pairs a payload with its recipient on the hub's push channel.
type pushEnvelope struct {
	userID uint
	data   []byte
}

// Hub tracks the active notification sockets, one connection per user. A new
// connection for a user replaces the previous one.
type Hub struct {
	clients map[uint]*Client

	register   chan *Client
	unregister chan *Client
	push       chan pushEnvelope
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		push:       make(chan pushEnvelope, 256),
	}
}

// Push delivers data to the user's open socket, if any. Non-blocking: when
// the hub's queue is full the payload is dropped, the notification is still
// persisted and will show up on the next list call.
func (h *Hub) Push(userID uint, data []byte) {
	select {
	case h.push <- pushEnvelope{userID: userID, data: data}:
	default:
		log.Printf("Notification hub push queue full, dropping payload for user %d", userID)
	}
}

// Run starts the hub loop. It owns the clients map; all mutation goes through
// the channels.
func (h *Hub) Run() {
	log.Println("Notification hub started.")
	for {
		select {
		case client := <-h.register:
			if existing, ok := h.clients[client.userID]; ok {
				close(existing.send)
			}
			h.clients[client.userID] = client
			log.Printf("Notification socket registered: user %d", client.userID)

		case client := <-h.unregister:
			if stored, ok := h.clients[client.userID]; ok && stored == client {
				delete(h.clients, client.userID)
				close(client.send)
				log.Printf("Notification socket unregistered: user %d", client.userID)
			}

		case envelope := <-h.push:
			client, ok := h.clients[envelope.userID]
			if !ok {
				// Not connected; the persisted notification covers them.
				continue
			}
			select {
			case client.send <- envelope.data:
			default:
				log.Printf("Send buffer full for user %d, closing socket", envelope.userID)
				close(client.send)
				delete(h.clients, envelope.userID)
			}
		}
	}
}
