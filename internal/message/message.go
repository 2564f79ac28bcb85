// internal/message/message.go
// Application payloads exchanged between the device, the relay and the browser.
package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Payload texts carried in the "message" field.
const (
	Connected = "connected"
	Running   = "running"
	Miss      = "miss"

	CommandLEDRight = "led_r"
	CommandLEDLeft  = "led_l"
	CommandPing     = "pico"
)

// Message is the single-key JSON object used on the device link.
type Message struct {
	Message string `json:"message"`
}

// RoomMessage is what the relay broadcasts; RoomID is stamped by the relay.
type RoomMessage struct {
	Message string `json:"message"`
	RoomID  string `json:"room_id"`
}

// Command is an inbound device command.
type Command string

var (
	ErrMalformed      = errors.New("malformed payload")
	ErrUnknownCommand = errors.New("unknown command")
)

// ParseError describes a payload that is not a recognized command.
type ParseError struct {
	Payload string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: %q", e.Err, e.Payload)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseCommand decodes a frame payload into one of the known commands.
func ParseCommand(payload []byte) (Command, error) {
	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return "", &ParseError{Payload: string(payload), Err: ErrMalformed}
	}
	switch m.Message {
	case CommandLEDRight, CommandLEDLeft, CommandPing:
		return Command(m.Message), nil
	default:
		return "", &ParseError{Payload: string(payload), Err: ErrUnknownCommand}
	}
}

// Encode renders {"message": text}.
func Encode(text string) []byte {
	data, _ := json.Marshal(Message{Message: text})
	return data
}

// Reaction formats an elapsed time as whole milliseconds.
func Reaction(elapsed time.Duration) string {
	return strconv.FormatInt(elapsed.Milliseconds(), 10)
}

// IsResult reports whether text is a round result sent by the device.
func IsResult(text string) bool {
	if text == Miss {
		return true
	}
	if text == "" {
		return false
	}
	for _, c := range text {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
