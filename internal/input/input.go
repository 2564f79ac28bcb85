// internal/input/input.go
// Button levels to press/release edges.
package input

import "periph.io/x/conn/v3/gpio"

// ButtonID names one of the two buttons.
type ButtonID int

const (
	Right ButtonID = iota
	Left
)

// Buttons lists both IDs in evaluation order.
var Buttons = [2]ButtonID{Right, Left}

func (b ButtonID) String() string {
	switch b {
	case Right:
		return "right"
	case Left:
		return "left"
	default:
		return "unknown"
	}
}

// Other returns the opposite button.
func (b ButtonID) Other() ButtonID {
	if b == Right {
		return Left
	}
	return Right
}

// Level is the logical button state.
type Level int

const (
	Released Level = iota
	Pressed
)

func (l Level) String() string {
	if l == Pressed {
		return "pressed"
	}
	return "released"
}

// LevelOf maps a raw pin read. Buttons pull up, so Low means pressed.
func LevelOf(raw gpio.Level) Level {
	if raw == gpio.Low {
		return Pressed
	}
	return Released
}

// Edge is a reported transition.
type Edge int

const (
	NoEdge Edge = iota
	EdgePressed
	EdgeReleased
)

func (e Edge) String() string {
	switch e {
	case EdgePressed:
		return "pressed"
	case EdgeReleased:
		return "released"
	default:
		return "none"
	}
}

// State is the per-button debounce memory.
type State struct {
	LastLevel Level
	// Latched is set once a press was reported and cleared on release.
	Latched bool
}

// Debouncer tracks both buttons. There is no time-based filtering: a press
// is reported once per press-and-hold cycle by the latch alone, so callers
// must poll at a steady interval.
type Debouncer struct {
	states [2]State
}

// NewDebouncer starts with both buttons released.
func NewDebouncer() *Debouncer {
	return &Debouncer{}
}

// Reset re-initializes one button from its current level. A button that is
// already down is recorded as pressed so it does not produce a fresh edge.
func (d *Debouncer) Reset(id ButtonID, level Level) {
	d.states[id] = State{LastLevel: level}
}

// Poll feeds one sample and returns the edge it produced, if any.
func (d *Debouncer) Poll(id ButtonID, level Level) Edge {
	s := &d.states[id]
	edge := NoEdge
	switch {
	case s.LastLevel == Released && level == Pressed && !s.Latched:
		s.Latched = true
		edge = EdgePressed
	case s.LastLevel == Pressed && level == Released:
		s.Latched = false
		edge = EdgeReleased
	}
	s.LastLevel = level
	return edge
}

// State returns a copy of the button's debounce state.
func (d *Debouncer) State(id ButtonID) State {
	return d.states[id]
}
