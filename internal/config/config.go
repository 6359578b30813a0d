package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danmuck/serial9/internal/protocol/serial9"
	"github.com/pelletier/go-toml/v2"
)

// BridgeConfig mirrors the serial9ctl TOML file.
type BridgeConfig struct {
	ID           string    `toml:"id"`
	Transport    string    `toml:"transport"`
	Port         string    `toml:"port"`
	Baud         int       `toml:"baud"`
	ReadTimeout  string    `toml:"read_timeout"`
	Addr         string    `toml:"addr"`
	DialAttempts int       `toml:"dial_attempts"`
	PollInterval string    `toml:"poll_interval"`
	BridgeBaud   string    `toml:"bridge_baud"`
	EmulatorBaud string    `toml:"emulator_baud"`
	AdminAddr    string    `toml:"admin_addr"`
	AdminToken   string    `toml:"admin_token"`
	CorsOrigins  []string  `toml:"cors_origins"`
	TLS          TLSConfig `toml:"tls"`
}

type TLSConfig struct {
	Enabled            bool   `toml:"enabled"`
	CAFile             string `toml:"ca_file"`
	CertFile           string `toml:"cert_file"`
	KeyFile            string `toml:"key_file"`
	ServerName         string `toml:"server_name"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
}

func LoadBridgeConfig(path string) (BridgeConfig, error) {
	var cfg BridgeConfig
	if err := loadToml(path, &cfg); err != nil {
		return BridgeConfig{}, err
	}
	if cfg.ID == "" {
		cfg.ID = "serial9.local"
	}
	if cfg.Transport == "" {
		cfg.Transport = "serial"
	}
	if err := ValidateBridgeConfig(cfg); err != nil {
		return BridgeConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateBridgeConfig(cfg BridgeConfig) error {
	if strings.TrimSpace(cfg.ID) == "" {
		return fmt.Errorf("bridge config missing id")
	}
	switch strings.TrimSpace(cfg.Transport) {
	case "serial", "loopback", "emulator":
	case "tcp":
		if strings.TrimSpace(cfg.Addr) == "" {
			return fmt.Errorf("bridge config addr required for tcp transport")
		}
	default:
		return fmt.Errorf("bridge config unknown transport: %q", cfg.Transport)
	}
	if cfg.Baud < 0 {
		return fmt.Errorf("bridge config baud must be positive")
	}
	if cfg.DialAttempts < 0 {
		return fmt.Errorf("bridge config dial_attempts must not be negative")
	}
	for key, raw := range map[string]string{"bridge_baud": cfg.BridgeBaud, "emulator_baud": cfg.EmulatorBaud} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if _, err := serial9.ParseRate(raw); err != nil {
			return fmt.Errorf("bridge config %s invalid: %w", key, err)
		}
	}
	for key, raw := range map[string]string{"read_timeout": cfg.ReadTimeout, "poll_interval": cfg.PollInterval} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		d, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("bridge config %s invalid: %w", key, err)
		}
		if d <= 0 {
			return fmt.Errorf("bridge config %s must be positive", key)
		}
	}
	if cfg.TLS.Enabled && cfg.Transport != "tcp" {
		return fmt.Errorf("bridge config tls requires tcp transport")
	}
	return nil
}
