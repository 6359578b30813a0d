package codec

import "github.com/danmuck/serial9/internal/protocol/serial9"

// EventKind names a codec diagnostic.
type EventKind string

const (
	EventTx            EventKind = "tx"
	EventRx            EventKind = "rx"
	EventFallbackWrite EventKind = "fallback_write"
	EventFallbackRead  EventKind = "fallback_read"
	EventIllegalEscape EventKind = "illegal_escape"
	EventCorruptState  EventKind = "corrupt_state"
	EventBaud          EventKind = "baud"
	EventReset         EventKind = "reset"
)

// Event is one structured diagnostic emitted by a Codec.
// Bytes counts wire bytes; Values counts decoded values.
type Event struct {
	Kind    EventKind
	CodecID string
	Mode    int
	Bytes   int
	Values  int
	Byte    byte
	State   serial9.State
	Rate    serial9.Rate
	Err     error
}

// Observer receives codec events synchronously on the calling goroutine.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) {
	f(e)
}

// Observers fans one event out to several observers in order.
type Observers []Observer

func (o Observers) Observe(e Event) {
	for _, obs := range o {
		if obs != nil {
			obs.Observe(e)
		}
	}
}

type nopObserver struct{}

func (nopObserver) Observe(Event) {}
