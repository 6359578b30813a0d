package transport

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/danmuck/serial9/internal/protocol"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// USB ids of the Arduino Pro Micro that runs the bridge firmware.
const (
	BridgeVID = "2341"
	BridgePID = "8036"
)

// SerialConfig opens the USB side of a bridge. An empty Port triggers
// discovery by USB id.
type SerialConfig struct {
	Port        string
	Baud        int
	ReadTimeout time.Duration
	BufferSize  int
}

func DefaultSerialConfig() SerialConfig {
	return SerialConfig{
		Baud:        115200,
		ReadTimeout: 20 * time.Millisecond,
		BufferSize:  DefaultBufferSize,
	}
}

// PortInfo describes one serial device visible to the host.
type PortInfo struct {
	Name    string `json:"name"`
	USB     bool   `json:"usb"`
	VID     string `json:"vid,omitempty"`
	PID     string `json:"pid,omitempty"`
	Serial  string `json:"serial,omitempty"`
	Product string `json:"product,omitempty"`
}

// IsBridge reports whether p carries the bridge USB ids.
func (p PortInfo) IsBridge() bool {
	return p.USB && strings.EqualFold(p.VID, BridgeVID) && strings.EqualFold(p.PID, BridgePID)
}

var listDetailedPorts = enumerator.GetDetailedPortsList

var openPort = func(name string, mode *serial.Mode) (serial.Port, error) {
	return serial.Open(name, mode)
}

// ListPorts returns the serial devices sorted by name.
func ListPorts() ([]PortInfo, error) {
	details, err := listDetailedPorts()
	if err != nil {
		return nil, fmt.Errorf("transport: list ports: %w", err)
	}
	out := make([]PortInfo, 0, len(details))
	for _, d := range details {
		if d == nil {
			continue
		}
		out = append(out, PortInfo{
			Name:    d.Name,
			USB:     d.IsUSB,
			VID:     d.VID,
			PID:     d.PID,
			Serial:  d.SerialNumber,
			Product: d.Product,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Discover returns the first bridge device in name order.
func Discover() (PortInfo, error) {
	ports, err := ListPorts()
	if err != nil {
		return PortInfo{}, err
	}
	for _, p := range ports {
		if p.IsBridge() {
			log.Info().Str("port", p.Name).Str("serial", p.Serial).Msg("transport.Discover found bridge")
			return p, nil
		}
	}
	return PortInfo{}, protocol.ErrNoDevice
}

// Serial is a Stream over a physical port.
type Serial struct {
	*Stream
	name string
}

func OpenSerial(cfg SerialConfig) (*Serial, error) {
	name := strings.TrimSpace(cfg.Port)
	if name == "" {
		p, err := Discover()
		if err != nil {
			return nil, err
		}
		name = p.Name
	}
	baud := cfg.Baud
	if baud <= 0 {
		baud = DefaultSerialConfig().Baud
	}
	port, err := openPort(name, serialMode(baud))
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", name, err)
	}
	// A port without a read timeout blocks Read until data arrives.
	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultSerialConfig().ReadTimeout
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("transport: set read timeout on %s: %w", name, err)
	}
	log.Info().Str("port", name).Int("baud", baud).Msg("transport.OpenSerial opened")
	return &Serial{
		Stream: NewStream(port, StreamOptions{BufferSize: cfg.BufferSize}),
		name:   name,
	}, nil
}

func (s *Serial) Name() string {
	return s.name
}

func serialMode(baud int) *serial.Mode {
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}
