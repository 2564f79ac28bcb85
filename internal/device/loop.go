// internal/device/loop.go
package device

import (
	"context"
	"errors"
	"time"

	"github.com/erilali/reactionpad/internal/game"
	"github.com/erilali/reactionpad/internal/input"
	"github.com/erilali/reactionpad/internal/logger"
	"github.com/erilali/reactionpad/internal/message"
	"github.com/erilali/reactionpad/internal/wsproto"
)

// DefaultInterval is the pause between loop iterations.
const DefaultInterval = 5 * time.Millisecond

// Conn is the upgraded socket as the loop sees it.
type Conn interface {
	TryReceive() (*wsproto.Frame, error)
	Send(payload []byte) error
	Close() error
}

// Loop runs the game against one connection. Everything it touches is owned
// by the goroutine calling Run.
type Loop struct {
	conn     Conn
	ctrl     *game.Controller
	interval time.Duration
	logger   *logger.Logger
	now      func() time.Time
}

// NewLoop wires a connection to a controller.
func NewLoop(conn Conn, ctrl *game.Controller, interval time.Duration, log *logger.Logger) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Loop{
		conn:     conn,
		ctrl:     ctrl,
		interval: interval,
		logger:   log,
		now:      time.Now,
	}
}

// Run steps until the stream fails or ctx is done. LEDs are turned off and
// the connection closed on the way out in every case.
func (l *Loop) Run(ctx context.Context) error {
	defer l.cleanup()

	timer := time.NewTimer(l.interval)
	defer timer.Stop()
	for {
		if err := l.Step(l.now()); err != nil {
			return err
		}
		timer.Reset(l.interval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Step runs one iteration: at most one inbound command, then the buttons.
// Commands are handled first so a round started in this tick is judged
// against this tick's button edges.
func (l *Loop) Step(now time.Time) error {
	frame, err := l.conn.TryReceive()
	if err != nil {
		return err
	}
	if frame != nil {
		if err := l.dispatch(frame, now); err != nil {
			return err
		}
	}

	right, left := l.ctrl.PollButtons()
	out, ok := l.ctrl.Tick(now, right, left)
	if !ok {
		return nil
	}
	switch out.Kind {
	case game.Correct:
		ms := message.Reaction(out.Elapsed)
		l.logger.Infof("Reaction %sms", ms)
		return l.send(ms)
	case game.Miss:
		return l.send(message.Miss)
	default:
		// timeouts are not reported
		return nil
	}
}

func (l *Loop) dispatch(f *wsproto.Frame, now time.Time) error {
	if f.Opcode != wsproto.OpcodeText {
		l.logger.Debugf("Ignoring %s frame", f.Opcode)
		return nil
	}
	l.logger.LogEvent("debug", "message_received", "", f.Text())

	cmd, err := message.ParseCommand(f.Payload)
	if err != nil {
		if errors.Is(err, message.ErrUnknownCommand) {
			l.logger.Debugf("Ignoring message: %v", err)
		} else {
			l.logger.Warnf("Dropping payload: %v", err)
		}
		return nil
	}

	switch cmd {
	case message.CommandLEDRight:
		l.ctrl.StartRound(input.Right, now)
	case message.CommandLEDLeft:
		l.ctrl.StartRound(input.Left, now)
	case message.CommandPing:
		return l.send(message.Running)
	}
	return nil
}

func (l *Loop) send(text string) error {
	if err := l.conn.Send(message.Encode(text)); err != nil {
		l.logger.Errorf("Send %q failed: %v", text, err)
		return err
	}
	return nil
}

func (l *Loop) cleanup() {
	l.ctrl.AllOff()
	if err := l.conn.Close(); err != nil {
		l.logger.Debugf("Close: %v", err)
	}
	l.logger.Info("Connection closed")
}
