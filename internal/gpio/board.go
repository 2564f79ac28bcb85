// internal/gpio/board.go
// Pin lookup and setup for the two LEDs and two buttons.
package gpio

import (
	"fmt"

	"github.com/erilali/reactionpad/internal/input"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Pins holds BCM numbers indexed by input.ButtonID.
type Pins struct {
	LEDs    [2]int
	Buttons [2]int
}

// Board is the configured set of pins.
type Board struct {
	LEDs    [2]gpio.PinIO
	Buttons [2]gpio.PinIO
}

// Open initializes the host drivers and looks every pin up by its GPIO name.
func Open(p Pins) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("gpio: host init: %w", err)
	}
	var leds, buttons [2]gpio.PinIO
	for _, id := range input.Buttons {
		led, err := lookup(p.LEDs[id])
		if err != nil {
			return nil, err
		}
		btn, err := lookup(p.Buttons[id])
		if err != nil {
			return nil, err
		}
		leds[id], buttons[id] = led, btn
	}
	return Setup(leds, buttons)
}

func lookup(n int) (gpio.PinIO, error) {
	name := fmt.Sprintf("GPIO%d", n)
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("gpio: pin %s not found", name)
	}
	return pin, nil
}

// Setup drives the LEDs low and puts the buttons in pulled-up input mode.
func Setup(leds, buttons [2]gpio.PinIO) (*Board, error) {
	for _, id := range input.Buttons {
		if err := leds[id].Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("gpio: %s LED %s: %w", id, leds[id], err)
		}
		if err := buttons[id].In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("gpio: %s button %s: %w", id, buttons[id], err)
		}
	}
	return &Board{LEDs: leds, Buttons: buttons}, nil
}

// Halt turns the LEDs off and releases every pin.
func (b *Board) Halt() error {
	var first error
	for _, id := range input.Buttons {
		if err := b.LEDs[id].Out(gpio.Low); err != nil && first == nil {
			first = err
		}
		for _, p := range []gpio.PinIO{b.LEDs[id], b.Buttons[id]} {
			if err := p.Halt(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
