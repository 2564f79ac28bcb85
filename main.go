// main.go
// Entry point: the device client, the relay server and a console trigger behind one cobra CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erilali/reactionpad/internal/api"
	"github.com/erilali/reactionpad/internal/config"
	"github.com/erilali/reactionpad/internal/console"
	"github.com/erilali/reactionpad/internal/device"
	"github.com/erilali/reactionpad/internal/logger"
	"github.com/erilali/reactionpad/internal/util"
	"github.com/spf13/cobra"
)

var (
	logConfigPath string
	deviceConfig  string
	envFile       string
	triggerURL    string
	triggerName   string
	triggerWait   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "reactionpad",
	Short: "Two-button reaction game over WebSocket",
	Long: `reactionpad runs the reaction game device client on the Pi,
the relay that pages and the device share rooms on, and a small
console trigger for poking the device by hand.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg, err := util.LoadLoggerConfig(logConfigPath)
		if err != nil {
			fmt.Printf("Error loading logger config: %v, using defaults\n", err)
		}
		logger.InitLogger(cfg)
	},
}

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Run the device client",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.NewLogger("device")
		cfg, found, err := config.LoadDevice(deviceConfig)
		if err != nil {
			return fmt.Errorf("load %s: %w", deviceConfig, err)
		}
		if !found {
			log.Warnf("Config %s not found, using defaults", deviceConfig)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return device.New(cfg, log).Run(ctx)
	},
}

var relayCmd = &cobra.Command{
	Use:   "relay [port]",
	Short: "Run the WebSocket relay",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadRelay(envFile)
		if err != nil {
			return err
		}
		if len(args) > 0 {
			cfg.Port = args[0]
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return api.StartServer(ctx, cfg, logger.NewLogger("server"))
	},
}

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Send one command into a relay room and print the replies",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		_, err := console.Trigger(ctx, console.Options{
			URL:     triggerURL,
			Command: triggerName,
			Wait:    triggerWait,
			Out:     os.Stdout,
		}, logger.NewLogger("trigger"))
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logConfigPath, "log-config", "logger_config.json", "logger configuration file (JSON or YAML)")

	deviceCmd.Flags().StringVarP(&deviceConfig, "config", "c", "config.json", "device configuration file (JSON or YAML)")
	relayCmd.Flags().StringVar(&envFile, "env", ".env", "environment file with PORT, NATS_URL and friends")

	triggerCmd.Flags().StringVar(&triggerURL, "url", "ws://localhost:3033/ws/ws", "relay room URL")
	triggerCmd.Flags().StringVar(&triggerName, "command", "ping", "command to send: led_r, led_l, pico or right, left, ping")
	triggerCmd.Flags().DurationVar(&triggerWait, "wait", 2*time.Second, "how long to print room traffic after sending")

	rootCmd.AddCommand(deviceCmd, relayCmd, triggerCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
