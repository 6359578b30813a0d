package transport

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/danmuck/serial9/internal/protocol"
	"github.com/danmuck/serial9/internal/testutil/testlog"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

type fakePort struct {
	serial.Port
	mode    *serial.Mode
	timeout time.Duration
	rx      bytes.Buffer
	tx      bytes.Buffer
	closed  bool
}

func (p *fakePort) SetMode(m *serial.Mode) error         { p.mode = m; return nil }
func (p *fakePort) SetReadTimeout(d time.Duration) error { p.timeout = d; return nil }
func (p *fakePort) Write(b []byte) (int, error)          { return p.tx.Write(b) }
func (p *fakePort) Close() error                         { p.closed = true; return nil }

func (p *fakePort) Read(b []byte) (int, error) {
	if p.rx.Len() == 0 {
		// go.bug.st/serial reports a read timeout as (0, nil).
		return 0, nil
	}
	return p.rx.Read(b)
}

func stubPorts(t *testing.T, ports []*enumerator.PortDetails, fp *fakePort) *string {
	t.Helper()
	prevList, prevOpen := listDetailedPorts, openPort
	t.Cleanup(func() {
		listDetailedPorts, openPort = prevList, prevOpen
	})
	opened := new(string)
	listDetailedPorts = func() ([]*enumerator.PortDetails, error) {
		return ports, nil
	}
	openPort = func(name string, mode *serial.Mode) (serial.Port, error) {
		*opened = name
		fp.mode = mode
		return fp, nil
	}
	return opened
}

func TestDiscoverFindsProMicro(t *testing.T) {
	testlog.Start(t)
	stubPorts(t, []*enumerator.PortDetails{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001"},
		{Name: "/dev/ttyACM1", IsUSB: true, VID: "2341", PID: "8036", SerialNumber: "B"},
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "2341", PID: "8036", SerialNumber: "A"},
		nil,
	}, &fakePort{})

	p, err := Discover()
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if p.Name != "/dev/ttyACM0" || p.Serial != "A" {
		t.Fatalf("unexpected port %+v", p)
	}
	ports, err := ListPorts()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ports) != 4 || ports[0].Name != "/dev/ttyACM0" {
		t.Fatalf("unexpected listing %+v", ports)
	}
}

func TestDiscoverNoDevice(t *testing.T) {
	testlog.Start(t)
	stubPorts(t, []*enumerator.PortDetails{{Name: "/dev/ttyS0"}}, &fakePort{})
	if _, err := Discover(); !errors.Is(err, protocol.ErrNoDevice) {
		t.Fatalf("expected ErrNoDevice, got %v", err)
	}
	if _, err := OpenSerial(SerialConfig{}); !errors.Is(err, protocol.ErrNoDevice) {
		t.Fatalf("expected ErrNoDevice from open, got %v", err)
	}
}

func TestOpenSerialConfiguresPort(t *testing.T) {
	testlog.Start(t)
	fp := &fakePort{}
	opened := stubPorts(t, []*enumerator.PortDetails{
		{Name: "/dev/ttyACM3", IsUSB: true, VID: "2341", PID: "8036"},
	}, fp)

	s, err := OpenSerial(SerialConfig{ReadTimeout: 15 * time.Millisecond})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if *opened != "/dev/ttyACM3" || s.Name() != "/dev/ttyACM3" {
		t.Fatalf("opened=%q name=%q", *opened, s.Name())
	}
	if fp.mode.BaudRate != 115200 || fp.mode.DataBits != 8 {
		t.Fatalf("unexpected mode %+v", fp.mode)
	}
	if fp.timeout != 15*time.Millisecond {
		t.Fatalf("timeout=%v", fp.timeout)
	}

	if got, err := s.Read(); err != nil || len(got) != 0 {
		t.Fatalf("idle read got=% x err=%v", got, err)
	}
	fp.rx.Write([]byte{0xff, 0xff})
	if got, err := s.Read(); err != nil || !bytes.Equal(got, []byte{0xff, 0xff}) {
		t.Fatalf("read got=% x err=%v", got, err)
	}
	if err := s.Write([]byte{'x'}); err != nil || fp.tx.String() != "x" {
		t.Fatalf("write err=%v tx=%q", err, fp.tx.String())
	}
	if err := s.Close(); err != nil || !fp.closed {
		t.Fatalf("close err=%v closed=%v", err, fp.closed)
	}
}

func TestOpenSerialExplicitPortSkipsDiscovery(t *testing.T) {
	testlog.Start(t)
	fp := &fakePort{}
	opened := stubPorts(t, nil, fp)
	s, err := OpenSerial(SerialConfig{Port: " /dev/ttyUSB9 ", Baud: 57600})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if *opened != "/dev/ttyUSB9" || fp.mode.BaudRate != 57600 {
		t.Fatalf("opened=%q mode=%+v", *opened, fp.mode)
	}
	if fp.timeout != DefaultSerialConfig().ReadTimeout {
		t.Fatalf("zero read timeout should fall back to default, got %v", fp.timeout)
	}
}
