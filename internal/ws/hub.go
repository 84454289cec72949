package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub fans lifecycle events out to every client subscribed to a room. It
// holds no durable state: subscriptions live only as long as the connection,
// and delivery is at-most-once with no ordering guarantee relative to the
// store writes that triggered them.
type Hub struct {
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool
	stopped bool
	mu      sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		rooms:   make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		close(client.send)
		return
	}
	h.clients[client] = true
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	h.removeFromRoom(client)
	close(client.send)
}

// Subscribe moves the client onto roomID. Re-subscribing to the same room is
// a no-op, so a reconnecting client can always replay its join. An empty
// roomID just leaves the current room.
func (h *Hub) Subscribe(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}
	if client.roomID == roomID {
		return
	}
	h.removeFromRoom(client)
	if roomID == "" {
		return
	}
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	client.roomID = roomID
}

func (h *Hub) removeFromRoom(client *Client) {
	if client.roomID == "" {
		return
	}
	if members, ok := h.rooms[client.roomID]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, client.roomID)
		}
	}
	client.roomID = ""
}

// Publish sends an event to every subscriber of the room. Slow clients are
// skipped rather than blocked on.
func (h *Hub) Publish(roomID string, event string, payload interface{}) {
	msg, err := NewMessage(event, payload)
	if err != nil {
		log.Printf("failed to build %s message: %v", event, err)
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("failed to marshal %s message: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[roomID] {
		select {
		case client.send <- data:
		default:
		}
	}
}

// SubscriberCount reports how many clients are listening to the room.
func (h *Hub) SubscriberCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Stop disconnects every client and rejects further registrations.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}
	h.stopped = true
	for client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[*Client]bool)
	h.rooms = make(map[string]map[*Client]bool)
}
