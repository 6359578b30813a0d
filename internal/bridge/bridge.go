package bridge

import (
	"bytes"
	"sync"

	"github.com/danmuck/serial9/internal/protocol/serial9"
	"github.com/rs/zerolog/log"
)

// Bus is the 9-bit side of a bridge. Transmit receives the words the
// bridge drove onto the bus and returns the words heard in reply.
type Bus interface {
	Transmit(words []uint16) []uint16
}

// BusFunc adapts a function to Bus.
type BusFunc func(words []uint16) []uint16

func (f BusFunc) Transmit(words []uint16) []uint16 {
	return f(words)
}

// Echo is a bus that hears every word it is sent.
type Echo struct{}

func (Echo) Transmit(words []uint16) []uint16 {
	out := make([]uint16, len(words))
	copy(out, words)
	return out
}

// Silent is a bus with nothing attached.
type Silent struct{}

func (Silent) Transmit([]uint16) []uint16 {
	return nil
}

// Stats counts bridge traffic.
type Stats struct {
	WordsOut    uint64
	WordsIn     uint64
	BaudChanges uint64
	Ignored     uint64
}

// Bridge is safe for concurrent use.
type Bridge struct {
	mu    sync.Mutex
	host  serial9.HostDecoder
	bus   Bus
	rate  serial9.Rate
	out   bytes.Buffer
	stats Stats
}

// New returns a bridge on bus running at rate. A nil bus is Silent.
func New(bus Bus, rate serial9.Rate) *Bridge {
	if bus == nil {
		bus = Silent{}
	}
	return &Bridge{bus: bus, rate: rate}
}

// Write accepts host bytes. Words are forwarded in order; a baud request
// takes effect after the words that preceded it.
func (b *Bridge) Write(p []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	pending := make([]uint16, 0, len(p))
	for _, cmd := range b.host.Decode(p) {
		switch cmd.Kind {
		case serial9.CommandWord:
			pending = append(pending, cmd.Word)
		case serial9.CommandBaud:
			b.flush(pending)
			pending = nil
			if cmd.Rate != b.rate {
				log.Debug().Stringer("from", b.rate).Stringer("to", cmd.Rate).Msg("bridge.Write baud change")
			}
			b.rate = cmd.Rate
			b.stats.BaudChanges++
		}
	}
	b.flush(pending)
	b.stats.Ignored = b.host.Ignored()
	return nil
}

func (b *Bridge) flush(words []uint16) {
	if len(words) == 0 {
		return
	}
	b.stats.WordsOut += uint64(len(words))
	b.receive(b.bus.Transmit(words))
}

func (b *Bridge) receive(words []uint16) {
	var scratch [3]byte
	for _, w := range words {
		b.out.Write(serial9.AppendWord(scratch[:0], w))
	}
	b.stats.WordsIn += uint64(len(words))
}

// Read drains the encoded host-bound stream.
func (b *Bridge) Read() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := bytes.Clone(b.out.Bytes())
	b.out.Reset()
	return out, nil
}

// Receive injects unsolicited bus traffic, as if a device had spoken.
func (b *Bridge) Receive(words ...uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.receive(words)
}

// Rate is the bus rate currently in effect.
func (b *Bridge) Rate() serial9.Rate {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rate
}

func (b *Bridge) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

func (b *Bridge) Close() error {
	return nil
}
