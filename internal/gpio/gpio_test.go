package gpio

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/erilali/reactionpad/internal/input"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
)

func TestSetupConfiguresPins(t *testing.T) {
	var leds, buttons [2]gpio.PinIO
	fakes := map[string]*gpiotest.Pin{}
	for _, id := range input.Buttons {
		led := &gpiotest.Pin{N: "led_" + id.String(), L: gpio.High}
		btn := &gpiotest.Pin{N: "btn_" + id.String()}
		fakes[led.N], fakes[btn.N] = led, btn
		leds[id], buttons[id] = led, btn
	}

	b, err := Setup(leds, buttons)
	require.NoError(t, err)
	for _, id := range input.Buttons {
		assert.Equal(t, gpio.Low, b.LEDs[id].Read(), "%s LED off", id)
		assert.Equal(t, gpio.PullUp, fakes["btn_"+id.String()].P)
	}
}

// recorder logs every call so patterns can be compared.
type recorder struct {
	name   string
	log    *[]string
	pwmErr error
}

func (r *recorder) Out(l gpio.Level) error {
	*r.log = append(*r.log, fmt.Sprintf("%s=%s", r.name, l))
	return nil
}

func (r *recorder) PWM(d gpio.Duty, f physic.Frequency) error {
	if r.pwmErr != nil {
		return r.pwmErr
	}
	*r.log = append(*r.log, fmt.Sprintf("%s~%d", r.name, d))
	return nil
}

func newTestIndicator(pwmErr error) (*Indicator, *[]string) {
	var log []string
	ind := NewIndicator([2]Output{
		input.Right: &recorder{name: "R", log: &log, pwmErr: pwmErr},
		input.Left:  &recorder{name: "L", log: &log},
	}, nil)
	ind.sleep = func(_ context.Context, d time.Duration) error {
		log = append(log, d.String())
		return nil
	}
	return ind, &log
}

func TestStartupBlinkPattern(t *testing.T) {
	ind, log := newTestIndicator(nil)
	require.NoError(t, ind.StartupBlink(context.Background()))
	assert.Equal(t, []string{
		"R=Low", "L=Low", "100ms",
		"R=High", "L=Low", "100ms",
		"R=Low", "L=Low", "300ms",
		"R=Low", "L=High", "100ms",
		"R=Low", "L=Low",
	}, *log)
}

func TestFailureBlinkFourTimes(t *testing.T) {
	ind, log := newTestIndicator(nil)
	require.NoError(t, ind.FailureBlink(context.Background()))

	var highs int
	for _, e := range *log {
		if e == "R=High" {
			highs++
		}
		assert.NotContains(t, e, "L=")
	}
	assert.Equal(t, 4, highs)
	assert.Equal(t, "R=Low", (*log)[len(*log)-1])
}

func TestBlinkStopsOnCancel(t *testing.T) {
	ind := NewIndicator([2]Output{&gpiotest.Pin{}, &gpiotest.Pin{}}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ind.FailureBlink(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFadeDutyCycle(t *testing.T) {
	cases := []struct {
		at   time.Duration
		want gpio.Duty
	}{
		{0, 0},
		{500 * time.Millisecond, gpio.DutyMax / 2},
		{time.Second, gpio.DutyMax},
		{1500 * time.Millisecond, gpio.DutyMax / 2},
		{2 * time.Second, 0},
	}
	for _, tc := range cases {
		pin := &gpiotest.Pin{}
		ind := NewIndicator([2]Output{pin, &gpiotest.Pin{}}, nil)
		ind.Fade(tc.at)
		assert.Equal(t, tc.want, pin.D, "at %s", tc.at)
		assert.Equal(t, physic.KiloHertz, pin.F)
	}
}

func TestFadeFallsBackToOnOff(t *testing.T) {
	ind, log := newTestIndicator(errors.New("no pwm"))
	ind.Fade(200 * time.Millisecond)
	ind.Fade(1200 * time.Millisecond)
	assert.Equal(t, []string{"R=High", "R=Low"}, *log)
	assert.True(t, ind.noPWM)
}
