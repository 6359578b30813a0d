package codec

import (
	"bytes"

	"github.com/danmuck/serial9/internal/protocol"
	"github.com/danmuck/serial9/internal/protocol/serial9"
	"github.com/google/uuid"
)

// Transport is the 8-bit channel to the bridge.
// Read returns whatever is currently available, possibly nothing.
type Transport interface {
	Write(p []byte) error
	Read() ([]byte, error)
}

// Option configures a Codec.
type Option func(*Codec)

func WithObserver(o Observer) Option {
	return func(c *Codec) {
		if o != nil {
			c.observer = o
		}
	}
}

func WithID(id string) Option {
	return func(c *Codec) {
		if id != "" {
			c.id = id
		}
	}
}

// Codec is not safe for concurrent use; callers serialise access.
type Codec struct {
	id        string
	transport Transport
	decoder   *serial9.Decoder
	fallback  bytes.Buffer
	observer  Observer
}

// New returns a Codec bound to t. A nil t leaves the Codec in loopback
// through its fallback buffer.
func New(t Transport, opts ...Option) *Codec {
	c := &Codec{
		id:        uuid.NewString(),
		transport: t,
		observer:  nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.decoder = serial9.NewDecoder(serial9.Hooks{
		IllegalEscape: func(b byte) {
			c.emit(Event{Kind: EventIllegalEscape, Byte: b})
		},
		CorruptState: func(s serial9.State, b byte) {
			c.emit(Event{Kind: EventCorruptState, State: s, Byte: b})
		},
	})
	return c
}

func (c *Codec) ID() string {
	return c.id
}

// State reports the receive state machine position.
func (c *Codec) State() serial9.State {
	return c.decoder.State()
}

// Stats reports recovered receive faults.
func (c *Codec) Stats() serial9.DecoderStats {
	return c.decoder.Stats()
}

// Pending is the number of bytes parked in the fallback buffer.
func (c *Codec) Pending() int {
	return c.fallback.Len()
}

// Attached reports whether a transport is bound.
func (c *Codec) Attached() bool {
	return c.transport != nil
}

// Tx8 sends p with bit 9 low.
func (c *Codec) Tx8(p []byte) {
	c.send(8, serial9.Encode8(p))
}

// Tx9 sends p with bit 9 high.
func (c *Codec) Tx9(p []byte) {
	c.send(9, serial9.Encode9(p))
}

func (c *Codec) send(mode int, wire []byte) {
	err := protocol.ErrNoTransport
	if c.transport != nil {
		err = c.transport.Write(wire)
	}
	if err == nil {
		c.emit(Event{Kind: EventTx, Mode: mode, Bytes: len(wire)})
		return
	}
	c.fallback.Write(wire)
	c.emit(Event{Kind: EventFallbackWrite, Mode: mode, Bytes: len(wire), Err: err})
}

// Rx returns the values decoded from whatever the transport has ready.
// When the transport is missing or fails, the fallback buffer is drained
// instead.
func (c *Codec) Rx() []uint16 {
	if c.transport == nil {
		return c.Receive(nil, protocol.ErrNoTransport)
	}
	return c.Receive(c.transport.Read())
}

// Receive decodes raw, already read from the transport by the caller.
// A non-nil readErr discards raw and drains the fallback buffer instead.
func (c *Codec) Receive(raw []byte, readErr error) []uint16 {
	if readErr != nil {
		raw = bytes.Clone(c.fallback.Bytes())
		c.fallback.Reset()
		c.emit(Event{Kind: EventFallbackRead, Bytes: len(raw), Err: readErr})
	}
	values := c.decoder.Decode(raw)
	c.emit(Event{Kind: EventRx, Bytes: len(raw), Values: len(values), State: c.decoder.State()})
	return values
}

// Reset drops a partial escape sequence so decoding restarts in sync.
// Parked fallback bytes are kept.
func (c *Codec) Reset() {
	c.decoder.Reset()
	c.emit(Event{Kind: EventReset})
}

// SetBaud asks the bridge to change its bus rate. The request bypasses
// the fallback buffer; transport errors are returned as-is.
func (c *Codec) SetBaud(r serial9.Rate) error {
	wire, err := serial9.EncodeBaud(r)
	if err != nil {
		return err
	}
	if c.transport == nil {
		return protocol.ErrNoTransport
	}
	if err := c.transport.Write(wire); err != nil {
		return err
	}
	c.emit(Event{Kind: EventBaud, Rate: r, Bytes: len(wire)})
	return nil
}

func (c *Codec) emit(e Event) {
	e.CodecID = c.id
	c.observer.Observe(e)
}
