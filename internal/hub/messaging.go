// internal/hub/messaging.go
package hub

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/erilali/reactionpad/internal/message"
)

// validateRoom checks a room name taken from the URL. Room names end up in
// NATS subjects, so the character set is narrow.
func validateRoom(room string) bool {
	if len(room) < 1 || len(room) > 32 {
		return false
	}
	for _, char := range room {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '_' || char == '-') {
			return false
		}
	}
	return true
}

// HandleClientMessage stamps an incoming message with the client's room and
// relays it as is to everyone in that room, the sender included. Round results are
// also published to the results stream.
func (h *Hub) HandleClientMessage(client *Client, payload []byte) {
	var msg message.Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		h.Logger.Warnf("Invalid message from %s: %v", client.ID, err)
		return
	}
	h.Logger.LogEvent("debug", "message_received", client.Room, msg.Message)

	now := time.Now()
	switch {
	case msg.Message == message.CommandLEDRight || msg.Message == message.CommandLEDLeft:
		h.StartRound(client.Room, msg.Message)

	case message.IsResult(msg.Message):
		round, ended := h.rounds.result(client.Room, msg.Message)
		if ended {
			h.Logger.LogEvent("info", "round_ended", client.Room, fmt.Sprintf("#%d %sms", round, msg.Message))
		}
		if h.Results.Enabled() {
			res := Result{Room: client.Room, Result: msg.Message, Round: round, Timestamp: now.Unix()}
			if err := h.Results.Publish(res); err != nil {
				h.Logger.Errorf("Failed to publish result to NATS: %v", err)
			}
		}
	}

	h.SendToRoom(client.Room, message.RoomMessage{Message: msg.Message, RoomID: client.Room})
}
