package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"periph.io/x/conn/v3/gpio"
)

func TestSinglePressPerHold(t *testing.T) {
	d := NewDebouncer()
	seq := []Level{Released, Pressed, Pressed, Pressed, Released}

	var pressed, released int
	for _, l := range seq {
		switch d.Poll(Right, l) {
		case EdgePressed:
			pressed++
		case EdgeReleased:
			released++
		}
	}
	assert.Equal(t, 1, pressed)
	assert.Equal(t, 1, released)
	assert.Equal(t, State{LastLevel: Released}, d.State(Right))
}

func TestPollTransitions(t *testing.T) {
	cases := []struct {
		name  string
		start State
		level Level
		want  Edge
		after State
	}{
		{"fresh press", State{LastLevel: Released}, Pressed, EdgePressed, State{LastLevel: Pressed, Latched: true}},
		{"held", State{LastLevel: Pressed, Latched: true}, Pressed, NoEdge, State{LastLevel: Pressed, Latched: true}},
		{"release", State{LastLevel: Pressed, Latched: true}, Released, EdgeReleased, State{LastLevel: Released}},
		{"idle", State{LastLevel: Released}, Released, NoEdge, State{LastLevel: Released}},
		{"latched rising", State{LastLevel: Released, Latched: true}, Pressed, NoEdge, State{LastLevel: Pressed, Latched: true}},
		{"unlatched release", State{LastLevel: Pressed}, Released, EdgeReleased, State{LastLevel: Released}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewDebouncer()
			d.states[Left] = tc.start
			assert.Equal(t, tc.want, d.Poll(Left, tc.level))
			assert.Equal(t, tc.after, d.State(Left))
		})
	}
}

func TestResetFromHeldButton(t *testing.T) {
	d := NewDebouncer()
	d.Reset(Left, Pressed)

	assert.Equal(t, NoEdge, d.Poll(Left, Pressed), "a button held at reset is not a fresh press")
	assert.Equal(t, EdgeReleased, d.Poll(Left, Released))
	assert.Equal(t, EdgePressed, d.Poll(Left, Pressed))
}

func TestButtonsAreIndependent(t *testing.T) {
	d := NewDebouncer()
	assert.Equal(t, EdgePressed, d.Poll(Right, Pressed))
	assert.Equal(t, EdgePressed, d.Poll(Left, Pressed))
	assert.Equal(t, NoEdge, d.Poll(Right, Pressed))
}

func TestLevelOfIsActiveLow(t *testing.T) {
	assert.Equal(t, Pressed, LevelOf(gpio.Low))
	assert.Equal(t, Released, LevelOf(gpio.High))
}

func TestNames(t *testing.T) {
	assert.Equal(t, "right", Right.String())
	assert.Equal(t, "left", Left.String())
	assert.Equal(t, Left, Right.Other())
	assert.Equal(t, "pressed", EdgePressed.String())
	assert.Equal(t, "none", NoEdge.String())
}
