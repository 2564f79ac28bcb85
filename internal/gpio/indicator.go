// internal/gpio/indicator.go
package gpio

import (
	"context"
	"time"

	"github.com/erilali/reactionpad/internal/input"
	"github.com/erilali/reactionpad/internal/logger"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

const (
	// FadePeriod is one full fade in plus fade out.
	FadePeriod    = 2 * time.Second
	fadeFrequency = physic.KiloHertz
	blinkStep     = 100 * time.Millisecond
	failureBlinks = 4
)

// Output is an LED pin that may support PWM.
type Output interface {
	Out(l gpio.Level) error
	PWM(duty gpio.Duty, f physic.Frequency) error
}

// Indicator plays the status patterns on the LEDs.
type Indicator struct {
	leds   [2]Output
	noPWM  bool
	sleep  func(context.Context, time.Duration) error
	logger *logger.Logger
}

// NewIndicator uses the board LEDs.
func NewIndicator(leds [2]Output, log *logger.Logger) *Indicator {
	if log == nil {
		log = logger.Nop()
	}
	return &Indicator{leds: leds, sleep: sleepCtx, logger: log}
}

// StartupBlink flashes right then left once.
func (i *Indicator) StartupBlink(ctx context.Context) error {
	steps := []struct {
		right, left gpio.Level
		hold        time.Duration
	}{
		{gpio.Low, gpio.Low, 100 * time.Millisecond},
		{gpio.High, gpio.Low, 100 * time.Millisecond},
		{gpio.Low, gpio.Low, 300 * time.Millisecond},
		{gpio.Low, gpio.High, 100 * time.Millisecond},
	}
	for _, s := range steps {
		i.set(input.Right, s.right)
		i.set(input.Left, s.left)
		if err := i.sleep(ctx, s.hold); err != nil {
			i.Off()
			return err
		}
	}
	i.Off()
	return nil
}

// FailureBlink flashes the right LED four times.
func (i *Indicator) FailureBlink(ctx context.Context) error {
	defer i.set(input.Right, gpio.Low)
	for n := 0; n < failureBlinks; n++ {
		i.set(input.Right, gpio.High)
		if err := i.sleep(ctx, blinkStep); err != nil {
			return err
		}
		i.set(input.Right, gpio.Low)
		if err := i.sleep(ctx, blinkStep); err != nil {
			return err
		}
	}
	return nil
}

// Fade sets the right LED brightness for a point in the fade cycle. When the
// pin has no PWM the LED is on for the first half of the cycle and off for
// the second.
func (i *Indicator) Fade(elapsed time.Duration) {
	pos := elapsed % FadePeriod
	half := FadePeriod / 2
	if i.noPWM {
		if pos < half {
			i.set(input.Right, gpio.High)
		} else {
			i.set(input.Right, gpio.Low)
		}
		return
	}

	ramp := pos
	if pos >= half {
		ramp = FadePeriod - pos
	}
	duty := gpio.Duty(int64(gpio.DutyMax) * int64(ramp) / int64(half))
	if err := i.leds[input.Right].PWM(duty, fadeFrequency); err != nil {
		i.logger.Warnf("PWM unavailable, falling back to on/off: %v", err)
		i.noPWM = true
		i.Fade(elapsed)
	}
}

// Off forces both LEDs low.
func (i *Indicator) Off() {
	i.set(input.Right, gpio.Low)
	i.set(input.Left, gpio.Low)
}

func (i *Indicator) set(id input.ButtonID, l gpio.Level) {
	if err := i.leds[id].Out(l); err != nil {
		i.logger.Warnf("Failed to set %s LED: %v", id, err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
