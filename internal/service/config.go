package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/serial9/internal/protocol/serial9"
	"github.com/danmuck/serial9/internal/transport"
)

// TransportKind selects the 8-bit channel to the bridge.
type TransportKind string

const (
	TransportSerial   TransportKind = "serial"
	TransportTCP      TransportKind = "tcp"
	TransportLoopback TransportKind = "loopback"
	TransportEmulator TransportKind = "emulator"
)

var (
	ErrInvalidTransport    = errors.New("service: invalid transport")
	ErrMissingAddr         = errors.New("service: tcp transport requires addr")
	ErrInvalidPollInterval = errors.New("service: invalid poll interval")
	ErrInvalidReadTimeout  = errors.New("service: read timeout must be positive")
)

// Config configures one bridge runtime.
// BridgeBaud, when set, is requested from the bridge right after connect.
// An empty AdminToken leaves the admin write routes unauthenticated.
type Config struct {
	ID           string
	Transport    TransportKind
	Serial       transport.SerialConfig
	Addr         string
	Dial         transport.DialConfig
	PollInterval time.Duration
	BridgeBaud   string
	EmulatorBaud string
	AdminAddr    string
	AdminToken   string
	CorsOrigins  []string
}

func DefaultConfig() Config {
	return Config{
		ID:           "serial9.local",
		Transport:    TransportSerial,
		Serial:       transport.DefaultSerialConfig(),
		Dial:         transport.DefaultDialConfig(),
		PollInterval: 10 * time.Millisecond,
		EmulatorBaud: "9600",
		AdminAddr:    "127.0.0.1:7090",
		CorsOrigins:  []string{"http://localhost:3000"},
	}
}

func (c Config) Validate() error {
	switch c.Transport {
	case TransportLoopback, TransportEmulator:
	case TransportSerial:
		if c.Serial.ReadTimeout <= 0 {
			return fmt.Errorf("%w: serial %v", ErrInvalidReadTimeout, c.Serial.ReadTimeout)
		}
	case TransportTCP:
		if strings.TrimSpace(c.Addr) == "" {
			return ErrMissingAddr
		}
		if c.Dial.ReadTimeout <= 0 {
			return fmt.Errorf("%w: tcp %v", ErrInvalidReadTimeout, c.Dial.ReadTimeout)
		}
		if err := c.Dial.TLS.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTransport, c.Transport)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidPollInterval, c.PollInterval)
	}
	if strings.TrimSpace(c.BridgeBaud) != "" {
		if _, err := serial9.ParseRate(c.BridgeBaud); err != nil {
			return fmt.Errorf("bridge_baud: %w", err)
		}
	}
	if c.Transport == TransportEmulator {
		if _, err := serial9.ParseRate(c.EmulatorBaud); err != nil {
			return fmt.Errorf("emulator_baud: %w", err)
		}
	}
	return nil
}
