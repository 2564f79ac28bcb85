// internal/hub/websocket.go
package hub

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	webSocketWriteDeadline = 10 * time.Second
	webSocketPingPeriod    = 50 * time.Second
	webSocketMaxMessage    = 512
	clientSendBuffer       = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// pages are served from anywhere on the LAN, the device sends no Origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWs upgrades the request and joins the connection to room.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request, room string) {
	if !validateRoom(room) {
		http.Error(w, "invalid room: must be 1-32 characters, alphanumeric, '-' or '_'", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Errorf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		ID:         uuid.NewString(),
		Room:       room,
		Conn:       conn,
		Send:       make(chan []byte, clientSendBuffer),
		LastActive: time.Now(),
	}
	if !h.register(client) {
		conn.Close()
		return
	}
	go h.ReadPump(client)
	go h.WritePump(client)
}

// ReadPump reads messages from the WebSocket connection. The device never
// answers pings, so reads carry no deadline; a dead peer is noticed when a
// write fails.
func (h *Hub) ReadPump(client *Client) {
	defer func() {
		h.unregister(client)
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(webSocketMaxMessage)
	for {
		_, payload, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.Logger.LogEvent("error", "read_error", client.ID, err.Error())
			}
			return
		}
		client.LastActive = time.Now()
		h.HandleClientMessage(client, payload)
	}
}

// WritePump writes queued messages, one frame each, and keeps the link
// alive with pings.
func (h *Hub) WritePump(client *Client) {
	ticker := time.NewTicker(webSocketPingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(webSocketWriteDeadline))
			if !ok {
				// The hub closed the channel.
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(webSocketWriteDeadline))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
