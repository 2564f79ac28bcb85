// internal/console/console.go
// Operator-side client that drives the device through the relay.
package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/erilali/reactionpad/internal/logger"
	"github.com/erilali/reactionpad/internal/message"
)

const dialTimeout = 10 * time.Second

var ErrUnknownCommand = errors.New("unknown command")

var aliases = map[string]string{
	"right": message.CommandLEDRight,
	"left":  message.CommandLEDLeft,
	"ping":  message.CommandPing,
}

// Resolve maps a command name or alias to the wire command.
func Resolve(name string) (string, error) {
	switch name {
	case message.CommandLEDRight, message.CommandLEDLeft, message.CommandPing:
		return name, nil
	}
	if cmd, ok := aliases[name]; ok {
		return cmd, nil
	}
	return "", fmt.Errorf("%w: %q (want led_r, led_l, pico)", ErrUnknownCommand, name)
}

// Options for one trigger run.
type Options struct {
	// URL of the relay room, e.g. ws://mb2022.local:3033/ws/ws.
	URL     string
	Command string
	// Wait is how long to keep printing room traffic after sending.
	Wait time.Duration
	Out  io.Writer
}

// Trigger joins the room, sends one command and collects whatever the room
// says until Wait runs out.
func Trigger(ctx context.Context, opts Options, log *logger.Logger) ([]message.RoomMessage, error) {
	cmd, err := Resolve(opts.Command)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, opts.URL, &websocket.DialOptions{
		HTTPClient: &http.Client{Timeout: dialTimeout},
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", opts.URL, err)
	}
	defer conn.CloseNow()

	if err := conn.Write(ctx, websocket.MessageText, message.Encode(cmd)); err != nil {
		return nil, fmt.Errorf("send %s: %w", cmd, err)
	}
	log.Infof("Sent %s to %s", cmd, opts.URL)

	readCtx, stop := context.WithTimeout(ctx, opts.Wait)
	defer stop()
	var got []message.RoomMessage
	for {
		typ, data, err := conn.Read(readCtx)
		if err != nil {
			if readCtx.Err() != nil && ctx.Err() == nil {
				return got, nil
			}
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return got, nil
			}
			return got, err
		}
		if typ != websocket.MessageText {
			continue
		}
		var msg message.RoomMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warnf("Unreadable message: %v", err)
			continue
		}
		got = append(got, msg)
		if opts.Out != nil {
			fmt.Fprintf(opts.Out, "%s\t%s\n", msg.RoomID, msg.Message)
		}
	}
}
