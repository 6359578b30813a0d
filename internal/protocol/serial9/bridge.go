package serial9

// CommandKind distinguishes the two things a host can ask of a bridge.
type CommandKind uint8

const (
	CommandWord CommandKind = iota + 1
	CommandBaud
)

// Command is one decoded host request as seen by the bridge.
type Command struct {
	Kind CommandKind
	Word uint16
	Rate Rate
}

// HostDecoder is the bridge end of the host stream. Unlike Decoder it
// understands baud rate requests. Not safe for concurrent use.
type HostDecoder struct {
	state   State
	ignored uint64
}

func (d *HostDecoder) State() State {
	return d.state
}

// Ignored counts escape continuations that were dropped.
func (d *HostDecoder) Ignored() uint64 {
	return d.ignored
}

// Decode returns the commands carried by raw. State is kept between calls.
func (d *HostDecoder) Decode(raw []byte) []Command {
	out := make([]Command, 0, len(raw))
	for _, b := range raw {
		switch d.state {
		case StateIdle:
			if b == Escape {
				d.state = StateEscape
				continue
			}
			out = append(out, Command{Kind: CommandWord, Word: uint16(b)})
		case StateEscape:
			d.state = StateIdle
			if b == High {
				d.state = StateHigh
				continue
			}
			if b == Escape {
				out = append(out, Command{Kind: CommandWord, Word: uint16(Escape)})
				continue
			}
			if r, ok := RateFromCode(b); ok {
				out = append(out, Command{Kind: CommandBaud, Rate: r})
				continue
			}
			d.ignored++
		case StateHigh:
			d.state = StateIdle
			out = append(out, Command{Kind: CommandWord, Word: uint16(b) | Bit9})
		default:
			d.state = StateIdle
			d.ignored++
		}
	}
	return out
}

// AppendWord appends the bridge-to-host encoding of one received bus
// character. Bits above the 9th are ignored.
func AppendWord(dst []byte, w uint16) []byte {
	b := byte(w)
	switch {
	case w&Bit9 != 0:
		return append(dst, Escape, High, b)
	case b == Escape:
		return append(dst, Escape, Escape)
	default:
		return append(dst, b)
	}
}

// EncodeWords is AppendWord over a slice.
func EncodeWords(words []uint16) []byte {
	out := make([]byte, 0, len(words))
	for _, w := range words {
		out = AppendWord(out, w)
	}
	return out
}
