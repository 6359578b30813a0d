package serial9

const (
	// Escape starts every multi-byte sequence.
	Escape byte = 0xFF
	// High follows Escape when the next byte carries bit 9.
	High byte = 0x01

	// Bit9 is the logical 9th bit of a decoded value.
	Bit9 uint16 = 0x100
	// MaxValue is the largest decoded value.
	MaxValue uint16 = 0x1FF
)

// State is the receive state of a decoder.
type State uint8

const (
	StateIdle State = iota
	StateEscape
	StateHigh
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEscape:
		return "escape"
	case StateHigh:
		return "escape_high"
	default:
		return "invalid"
	}
}

// Valid reports whether s is one of the defined states.
func (s State) Valid() bool {
	return s <= StateHigh
}
