// internal/hub/hub.go
// Room-based relay between the browser pages and the device.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/erilali/reactionpad/internal/logger"
	"github.com/erilali/reactionpad/internal/message"
)

// delivery is a message addressed to every client of one room.
type delivery struct {
	room string
	msg  message.RoomMessage
}

// Hub tracks connected clients by room and fans messages out to them.
type Hub struct {
	Clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	Mu         sync.RWMutex

	Results   *Results
	StartTime time.Time
	Logger    *logger.Logger

	broadcast chan delivery
	done      chan struct{}
	rounds    *roundTracker
}

// NewHub creates a Hub. results may be nil when NATS is not available.
func NewHub(results *Results, logger *logger.Logger) *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Results:    results,
		StartTime:  time.Now(),
		Logger:     logger,
		broadcast:  make(chan delivery, 64),
		done:       make(chan struct{}),
		rounds:     newRoundTracker(),
	}
}

// Run is the hub event loop. It returns when ctx is done, closing every
// client's send channel on the way out.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.Mu.Lock()
			for client := range h.Clients {
				delete(h.Clients, client)
				close(client.Send)
			}
			h.Mu.Unlock()
			return

		case client := <-h.Register:
			h.Mu.Lock()
			h.Clients[client] = true
			h.Mu.Unlock()
			h.Logger.LogEvent("info", "client_connected", client.ID, client.Room)

		case client := <-h.Unregister:
			h.remove(client)

		case d := <-h.broadcast:
			h.deliver(d)
		}
	}
}

// SendToRoom queues msg for every client in room as is; RoomID is not
// rewritten.
func (h *Hub) SendToRoom(room string, msg message.RoomMessage) {
	select {
	case h.broadcast <- delivery{room: room, msg: msg}:
	case <-h.done:
	}
}

func (h *Hub) register(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

// RoomSize counts the clients currently joined to room.
func (h *Hub) RoomSize(room string) int {
	h.Mu.RLock()
	defer h.Mu.RUnlock()
	n := 0
	for client := range h.Clients {
		if client.Room == room {
			n++
		}
	}
	return n
}

// Rooms returns the client count per room.
func (h *Hub) Rooms() map[string]int {
	h.Mu.RLock()
	defer h.Mu.RUnlock()
	rooms := make(map[string]int)
	for client := range h.Clients {
		rooms[client.Room]++
	}
	return rooms
}

func (h *Hub) deliver(d delivery) {
	data, err := json.Marshal(d.msg)
	if err != nil {
		h.Logger.Errorf("Failed to marshal message for room %s: %v", d.room, err)
		return
	}

	// copy the room's clients so the lock is not held while sending
	h.Mu.RLock()
	targets := make([]*Client, 0, len(h.Clients))
	for client := range h.Clients {
		if client.Room == d.room {
			targets = append(targets, client)
		}
	}
	h.Mu.RUnlock()

	for _, client := range targets {
		select {
		case client.Send <- data:
		default:
			// slow or gone, the pumps finish the cleanup
			h.Logger.Warnf("Dropping client %s in room %s: send buffer full", client.ID, client.Room)
			h.remove(client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	if _, ok := h.Clients[client]; ok {
		delete(h.Clients, client)
		close(client.Send)
		h.Logger.LogEvent("info", "client_disconnected", client.ID, client.Room)
	}
}
