package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/serial9/internal/service"
)

type fileConfig struct {
	ID           string   `toml:"id"`
	Transport    string   `toml:"transport"`
	Port         string   `toml:"port"`
	Baud         int      `toml:"baud"`
	ReadTimeout  string   `toml:"read_timeout"`
	Addr         string   `toml:"addr"`
	DialAttempts int      `toml:"dial_attempts"`
	PollInterval string   `toml:"poll_interval"`
	BridgeBaud   string   `toml:"bridge_baud"`
	EmulatorBaud string   `toml:"emulator_baud"`
	AdminAddr    string   `toml:"admin_addr"`
	AdminToken   string   `toml:"admin_token"`
	CorsOrigins  []string `toml:"cors_origins"`
	TLS          fileTLS  `toml:"tls"`
}

type fileTLS struct {
	Enabled            bool   `toml:"enabled"`
	CAFile             string `toml:"ca_file"`
	CertFile           string `toml:"cert_file"`
	KeyFile            string `toml:"key_file"`
	ServerName         string `toml:"server_name"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
}

func loadServiceConfig(path string) (service.Config, error) {
	cfg := service.DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return service.Config{}, fmt.Errorf("load serial9 config: %w", err)
	}

	if meta.IsDefined("id") {
		if id := strings.TrimSpace(raw.ID); id != "" {
			cfg.ID = id
		}
	}

	if meta.IsDefined("transport") {
		cfg.Transport = service.TransportKind(strings.ToLower(strings.TrimSpace(raw.Transport)))
	}

	if meta.IsDefined("port") {
		cfg.Serial.Port = strings.TrimSpace(raw.Port)
	}

	if meta.IsDefined("baud") {
		cfg.Serial.Baud = raw.Baud
	}

	if meta.IsDefined("read_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReadTimeout))
		if err != nil {
			return service.Config{}, fmt.Errorf("parse read_timeout: %w", err)
		}
		cfg.Serial.ReadTimeout = d
		cfg.Dial.ReadTimeout = d
	}

	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}

	if meta.IsDefined("dial_attempts") {
		cfg.Dial.Attempts = raw.DialAttempts
	}

	if meta.IsDefined("poll_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.PollInterval))
		if err != nil {
			return service.Config{}, fmt.Errorf("parse poll_interval: %w", err)
		}
		cfg.PollInterval = d
	}

	if meta.IsDefined("bridge_baud") {
		cfg.BridgeBaud = strings.TrimSpace(raw.BridgeBaud)
	}

	if meta.IsDefined("emulator_baud") {
		cfg.EmulatorBaud = strings.TrimSpace(raw.EmulatorBaud)
	}

	if meta.IsDefined("admin_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}

	if meta.IsDefined("admin_token") {
		cfg.AdminToken = strings.TrimSpace(raw.AdminToken)
	}

	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeOrigins(raw.CorsOrigins)
	}

	if meta.IsDefined("tls") {
		cfg.Dial.TLS.Enabled = raw.TLS.Enabled
		cfg.Dial.TLS.CAFile = strings.TrimSpace(raw.TLS.CAFile)
		cfg.Dial.TLS.CertFile = strings.TrimSpace(raw.TLS.CertFile)
		cfg.Dial.TLS.KeyFile = strings.TrimSpace(raw.TLS.KeyFile)
		cfg.Dial.TLS.ServerName = strings.TrimSpace(raw.TLS.ServerName)
		cfg.Dial.TLS.InsecureSkipVerify = raw.TLS.InsecureSkipVerify
	}

	return cfg, nil
}

func normalizeOrigins(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
