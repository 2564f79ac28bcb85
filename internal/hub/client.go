// internal/hub/client.go
package hub

import (
	"time"

	"github.com/gorilla/websocket"
)

// Client is one WebSocket connection joined to a room. The device and the
// browser pages are all clients.
type Client struct {
	ID         string
	Room       string
	Conn       *websocket.Conn
	Send       chan []byte
	LastActive time.Time
}
