// internal/config/device.go
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/erilali/reactionpad/internal/util"
)

// Device mirrors config.json on the device. Every key is optional.
type Device struct {
	WiFi      WiFi      `json:"wifi" yaml:"wifi"`
	WebSocket WebSocket `json:"websocket" yaml:"websocket"`
	GPIO      GPIO      `json:"gpio" yaml:"gpio"`
	Settings  Settings  `json:"settings" yaml:"settings"`
}

type WiFi struct {
	SSID          string `json:"ssid" yaml:"ssid"`
	Password      string `json:"password" yaml:"password"`
	Interface     string `json:"interface" yaml:"interface"`
	JoinTimeoutMS int    `json:"join_timeout_ms" yaml:"join_timeout_ms"`
}

type WebSocket struct {
	Host               string `json:"host" yaml:"host"`
	Port               int    `json:"port" yaml:"port"`
	Path               string `json:"path" yaml:"path"`
	ReadTimeoutMS      int    `json:"read_timeout_ms" yaml:"read_timeout_ms"`
	HandshakeTimeoutMS int    `json:"handshake_timeout_ms" yaml:"handshake_timeout_ms"`
	// BufferPartialFrames keeps incomplete inbound frames across loop ticks.
	BufferPartialFrames bool `json:"buffer_partial_frames" yaml:"buffer_partial_frames"`
}

// GPIO pin numbers.
type GPIO struct {
	LEDRightPin    int `json:"led_r_pin" yaml:"led_r_pin"`
	LEDLeftPin     int `json:"led_l_pin" yaml:"led_l_pin"`
	ButtonRightPin int `json:"button_r_pin" yaml:"button_r_pin"`
	ButtonLeftPin  int `json:"button_l_pin" yaml:"button_l_pin"`
}

type Settings struct {
	TimeoutMS       int `json:"timeout_ms" yaml:"timeout_ms"`
	CheckIntervalMS int `json:"check_interval_ms" yaml:"check_interval_ms"`
}

// DefaultDevice returns the values used when a key is absent.
func DefaultDevice() Device {
	return Device{
		WiFi: WiFi{
			JoinTimeoutMS: 10000,
		},
		WebSocket: WebSocket{
			Host:               "mb2022.local",
			Port:               3033,
			Path:               "/ws/ws",
			ReadTimeoutMS:      1,
			HandshakeTimeoutMS: 10000,
		},
		GPIO: GPIO{
			LEDRightPin:    9,
			LEDLeftPin:     3,
			ButtonRightPin: 28,
			ButtonLeftPin:  27,
		},
		Settings: Settings{
			TimeoutMS:       10000,
			CheckIntervalMS: 5,
		},
	}
}

// LoadDevice reads path over the defaults. found is false when the file does
// not exist, in which case the defaults are returned.
func LoadDevice(path string) (cfg Device, found bool, err error) {
	cfg = DefaultDevice()
	found, err = util.DecodeFile(path, &cfg)
	if err != nil {
		return DefaultDevice(), found, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, found, err
	}
	return cfg, found, nil
}

// Validate rejects values the device cannot run with.
func (c Device) Validate() error {
	var errs []error
	if c.WebSocket.Host == "" {
		errs = append(errs, errors.New("websocket.host is empty"))
	}
	if c.WebSocket.Port < 1 || c.WebSocket.Port > 65535 {
		errs = append(errs, fmt.Errorf("websocket.port %d out of range", c.WebSocket.Port))
	}
	if c.WebSocket.Path == "" || c.WebSocket.Path[0] != '/' {
		errs = append(errs, fmt.Errorf("websocket.path %q must start with /", c.WebSocket.Path))
	}
	for _, v := range []struct {
		key string
		ms  int
	}{
		{"websocket.read_timeout_ms", c.WebSocket.ReadTimeoutMS},
		{"websocket.handshake_timeout_ms", c.WebSocket.HandshakeTimeoutMS},
		{"wifi.join_timeout_ms", c.WiFi.JoinTimeoutMS},
		{"settings.timeout_ms", c.Settings.TimeoutMS},
		{"settings.check_interval_ms", c.Settings.CheckIntervalMS},
	} {
		if v.ms <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", v.key, v.ms))
		}
	}

	pins := map[int]string{}
	for _, p := range []struct {
		key string
		pin int
	}{
		{"gpio.led_r_pin", c.GPIO.LEDRightPin},
		{"gpio.led_l_pin", c.GPIO.LEDLeftPin},
		{"gpio.button_r_pin", c.GPIO.ButtonRightPin},
		{"gpio.button_l_pin", c.GPIO.ButtonLeftPin},
	} {
		if p.pin < 0 {
			errs = append(errs, fmt.Errorf("%s is negative", p.key))
			continue
		}
		if other, dup := pins[p.pin]; dup {
			errs = append(errs, fmt.Errorf("%s and %s share pin %d", other, p.key, p.pin))
			continue
		}
		pins[p.pin] = p.key
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid device config: %w", errors.Join(errs...))
	}
	return nil
}

// Addr is host:port for dialing. The host is resolved separately.
func (w WebSocket) Addr(ip net.IP) string {
	return net.JoinHostPort(ip.String(), strconv.Itoa(w.Port))
}

func (w WebSocket) ReadTimeout() time.Duration {
	return time.Duration(w.ReadTimeoutMS) * time.Millisecond
}

func (w WebSocket) HandshakeTimeout() time.Duration {
	return time.Duration(w.HandshakeTimeoutMS) * time.Millisecond
}

func (w WiFi) JoinTimeout() time.Duration {
	return time.Duration(w.JoinTimeoutMS) * time.Millisecond
}

func (s Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

func (s Settings) CheckInterval() time.Duration {
	return time.Duration(s.CheckIntervalMS) * time.Millisecond
}
