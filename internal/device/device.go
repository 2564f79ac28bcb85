// internal/device/device.go
// Device startup: indicator blink, network join, server resolution, upgrade,
// then the game loop.
package device

import (
	"context"
	"errors"
	"fmt"

	"github.com/erilali/reactionpad/internal/config"
	"github.com/erilali/reactionpad/internal/game"
	"github.com/erilali/reactionpad/internal/gpio"
	"github.com/erilali/reactionpad/internal/input"
	"github.com/erilali/reactionpad/internal/logger"
	"github.com/erilali/reactionpad/internal/message"
	"github.com/erilali/reactionpad/internal/netjoin"
	"github.com/erilali/reactionpad/internal/wsproto"
)

// Device holds what a run needs. The hooks default to the real host.
type Device struct {
	Config config.Device
	Logger *logger.Logger

	OpenBoard func(gpio.Pins) (*gpio.Board, error)
	Link      netjoin.Connectivity
	Resolver  netjoin.Resolver
}

// New returns a device bound to the host GPIO and NetworkManager.
func New(cfg config.Device, log *logger.Logger) *Device {
	if log == nil {
		log = logger.NewLogger("device")
	}
	return &Device{
		Config:    cfg,
		Logger:    log,
		OpenBoard: gpio.Open,
		Link:      netjoin.NewNetworkManager(cfg.WiFi.Interface),
	}
}

// Run executes one full session. It returns when the connection drops, the
// context ends, or a startup step fails; there is no reconnect. Cancelling
// ctx is a clean stop and returns nil.
func (d *Device) Run(ctx context.Context) error {
	err := d.run(ctx)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		d.Logger.Info("Stopped")
		return nil
	}
	return err
}

func (d *Device) run(ctx context.Context) error {
	cfg := d.Config
	log := d.Logger

	board, err := d.OpenBoard(gpio.Pins{
		LEDs:    [2]int{input.Right: cfg.GPIO.LEDRightPin, input.Left: cfg.GPIO.LEDLeftPin},
		Buttons: [2]int{input.Right: cfg.GPIO.ButtonRightPin, input.Left: cfg.GPIO.ButtonLeftPin},
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := board.Halt(); err != nil {
			log.Warnf("Failed to release pins: %v", err)
		}
	}()

	ind := gpio.NewIndicator([2]gpio.Output{board.LEDs[input.Right], board.LEDs[input.Left]}, log.WithField("part", "indicator"))
	if err := ind.StartupBlink(ctx); err != nil {
		return err
	}

	log.Info("Joining network")
	creds := netjoin.Credentials{SSID: cfg.WiFi.SSID, Password: cfg.WiFi.Password, Interface: cfg.WiFi.Interface}
	err = netjoin.Join(ctx, d.Link, creds, cfg.WiFi.JoinTimeout(), ind.Fade, log)
	ind.Off()
	if err != nil {
		log.Errorf("Network join failed: %v", err)
		_ = ind.FailureBlink(ctx)
		return err
	}

	ip, err := netjoin.Resolve(ctx, d.Resolver, cfg.WebSocket.Host)
	if err != nil {
		return err
	}
	addr := cfg.WebSocket.Addr(ip)
	log.Infof("Resolved %s -> %s", cfg.WebSocket.Host, ip)

	conn, res, err := wsproto.Dial(ctx, addr, cfg.WebSocket.Host, cfg.WebSocket.Path, wsproto.Options{
		ReadTimeout:      cfg.WebSocket.ReadTimeout(),
		HandshakeTimeout: cfg.WebSocket.HandshakeTimeout(),
		BufferPartial:    cfg.WebSocket.BufferPartialFrames,
	})
	if err != nil {
		log.Errorf("Connect to %s failed: %v", addr, err)
		_ = ind.FailureBlink(ctx)
		return fmt.Errorf("connect %s%s: %w", addr, cfg.WebSocket.Path, err)
	}
	log.Debugf("Handshake response: %q", res.Response)
	log.LogEvent("info", "client_connected", addr, "")

	ctrl := game.NewController(
		[2]game.LED{board.LEDs[input.Right], board.LEDs[input.Left]},
		[2]game.Button{board.Buttons[input.Right], board.Buttons[input.Left]},
		cfg.Settings.Timeout(),
		log.WithField("part", "game"),
	)
	loop := NewLoop(conn, ctrl, cfg.Settings.CheckInterval(), log)

	if err := conn.Send(message.Encode(message.Connected)); err != nil {
		loop.cleanup()
		return err
	}

	err = loop.Run(ctx)
	if dropped := conn.Dropped(); dropped > 0 {
		log.Warnf("%d undecodable frames were dropped", dropped)
	}
	log.LogEvent("info", "client_disconnected", addr, errString(err))
	return err
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
