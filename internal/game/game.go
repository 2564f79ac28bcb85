// internal/game/game.go
// Reaction round state machine driven by the device loop.
package game

import (
	"fmt"
	"time"

	"github.com/erilali/reactionpad/internal/input"
	"github.com/erilali/reactionpad/internal/logger"
	"periph.io/x/conn/v3/gpio"
)

// DefaultTimeout ends a round nobody answered.
const DefaultTimeout = 10 * time.Second

// LED is the output side of a pin.
type LED interface {
	Out(l gpio.Level) error
}

// Button is the input side of a pin.
type Button interface {
	Read() gpio.Level
}

// Phase tells whether a round is running.
type Phase int

const (
	Idle Phase = iota
	Measuring
)

func (p Phase) String() string {
	if p == Measuring {
		return "measuring"
	}
	return "idle"
}

// State is the current round. Expected and StartedAt only mean something
// while Phase is Measuring.
type State struct {
	Phase     Phase
	Expected  input.ButtonID
	StartedAt time.Time
}

// OutcomeKind classifies how a tick resolved.
type OutcomeKind int

const (
	Correct OutcomeKind = iota
	Miss
	Timeout
)

func (k OutcomeKind) String() string {
	switch k {
	case Correct:
		return "correct"
	case Miss:
		return "miss"
	case Timeout:
		return "timeout"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is what a tick reports. Elapsed is set for Correct only.
type Outcome struct {
	Kind    OutcomeKind
	Elapsed time.Duration
}

// Controller owns both LEDs, both buttons and the debouncer. It is not safe
// for concurrent use; the device loop is its only caller.
type Controller struct {
	leds    [2]LED
	buttons [2]Button
	deb     *input.Debouncer
	timeout time.Duration
	state   State
	logger  *logger.Logger
}

// NewController wires the pins indexed by input.ButtonID. A zero timeout
// falls back to DefaultTimeout.
func NewController(leds [2]LED, buttons [2]Button, timeout time.Duration, log *logger.Logger) *Controller {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	c := &Controller{
		leds:    leds,
		buttons: buttons,
		deb:     input.NewDebouncer(),
		timeout: timeout,
		logger:  log,
	}
	for _, id := range input.Buttons {
		c.deb.Reset(id, c.level(id))
	}
	return c
}

// State returns a copy of the round state.
func (c *Controller) State() State {
	return c.state
}

// Timeout is the configured round limit.
func (c *Controller) Timeout() time.Duration {
	return c.timeout
}

// StartRound lights the LED for id and starts timing. A round already in
// progress is abandoned without a report and its LED is left alone.
func (c *Controller) StartRound(id input.ButtonID, now time.Time) {
	if c.state.Phase == Measuring {
		c.logger.Debugf("Abandoning %s round after %s", c.state.Expected, now.Sub(c.state.StartedAt))
	}
	c.state = State{Phase: Measuring, Expected: id, StartedAt: now}
	c.setLED(id, gpio.High)
	c.deb.Reset(id, c.level(id))
	c.logger.LogEvent("info", "round_started", "", id.String())
}

// PollButtons samples both buttons once and returns their edges.
func (c *Controller) PollButtons() (right, left input.Edge) {
	right = c.deb.Poll(input.Right, c.level(input.Right))
	left = c.deb.Poll(input.Left, c.level(input.Left))
	return right, left
}

// Tick evaluates one loop iteration. Checks run in a fixed order: a press of
// the expected button, a press of the other one, then the timeout. At most
// one outcome is returned per call.
func (c *Controller) Tick(now time.Time, right, left input.Edge) (Outcome, bool) {
	if c.state.Phase != Measuring {
		return Outcome{}, false
	}
	edges := [2]input.Edge{input.Right: right, input.Left: left}
	expected := c.state.Expected

	if edges[expected] == input.EdgePressed {
		elapsed := now.Sub(c.state.StartedAt)
		c.setLED(expected, gpio.Low)
		c.state = State{Phase: Idle}
		c.logger.LogEvent("info", "round_ended", "", fmt.Sprintf("%s in %dms", expected, elapsed.Milliseconds()))
		return Outcome{Kind: Correct, Elapsed: elapsed}, true
	}

	if edges[expected.Other()] == input.EdgePressed {
		// the round keeps running
		c.logger.LogEvent("info", "round_miss", "", fmt.Sprintf("%s pressed", expected.Other()))
		return Outcome{Kind: Miss}, true
	}

	if now.Sub(c.state.StartedAt) >= c.timeout {
		c.AllOff()
		c.state = State{Phase: Idle}
		c.logger.LogEvent("info", "round_ended", "", "timeout")
		return Outcome{Kind: Timeout}, true
	}
	return Outcome{}, false
}

// AllOff drives both LEDs low. The game state is not touched.
func (c *Controller) AllOff() {
	for _, id := range input.Buttons {
		c.setLED(id, gpio.Low)
	}
}

func (c *Controller) level(id input.ButtonID) input.Level {
	return input.LevelOf(c.buttons[id].Read())
}

func (c *Controller) setLED(id input.ButtonID, l gpio.Level) {
	if err := c.leds[id].Out(l); err != nil {
		c.logger.Warnf("Failed to set %s LED to %s: %v", id, l, err)
	}
}
