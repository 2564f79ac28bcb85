// internal/config/relay.go
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
)

// Relay is the relay server configuration, read from the environment.
type Relay struct {
	Port        string
	NatsURL     string
	DeviceRoom  string
	StaticDir   string
	TemplateDir string
}

// LoadRelay loads .env files when present and reads the environment.
// Missing .env files are not an error.
func LoadRelay(envFiles ...string) (Relay, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return Relay{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Relay{
		Port:        getenv("PORT", "3033"),
		NatsURL:     getenv("NATS_URL", nats.DefaultURL),
		DeviceRoom:  getenv("DEVICE_ROOM", "ws"),
		StaticDir:   getenv("STATIC_DIR", "./static"),
		TemplateDir: getenv("TEMPLATE_DIR", "./template"),
	}
	if n, err := strconv.Atoi(cfg.Port); err != nil || n < 1 || n > 65535 {
		return cfg, fmt.Errorf("invalid PORT %q", cfg.Port)
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
