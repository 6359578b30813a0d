package serial9

// Hooks receive decoder diagnostics. Nil hooks are skipped.
type Hooks struct {
	// IllegalEscape sees a byte that followed Escape but was neither
	// High nor Escape. The byte has already been discarded.
	IllegalEscape func(b byte)
	// CorruptState sees the unrecognised state and the byte that was
	// emitted low while resetting to StateIdle.
	CorruptState func(s State, b byte)
}

// DecoderStats counts recovered protocol faults.
type DecoderStats struct {
	IllegalEscapes uint64
	CorruptStates  uint64
}

// Decoder turns a bridge byte stream back into 9-bit values. State is kept
// between calls so an escape sequence may be split across reads. The zero
// value is ready to use. A Decoder is not safe for concurrent use.
type Decoder struct {
	state State
	hooks Hooks
	stats DecoderStats
}

func NewDecoder(h Hooks) *Decoder {
	return &Decoder{state: StateIdle, hooks: h}
}

func (d *Decoder) State() State {
	return d.state
}

func (d *Decoder) Stats() DecoderStats {
	return d.stats
}

// Reset drops any partial escape sequence.
func (d *Decoder) Reset() {
	d.state = StateIdle
}

// Decode returns the values carried by raw.
func (d *Decoder) Decode(raw []byte) []uint16 {
	return d.AppendDecode(make([]uint16, 0, len(raw)), raw)
}

// AppendDecode appends the values carried by raw to dst, in input order.
func (d *Decoder) AppendDecode(dst []uint16, raw []byte) []uint16 {
	for _, b := range raw {
		dst = d.step(dst, b)
	}
	return dst
}

func (d *Decoder) step(dst []uint16, b byte) []uint16 {
	switch d.state {
	case StateIdle:
		if b == Escape {
			d.state = StateEscape
			return dst
		}
		return append(dst, uint16(b))
	case StateEscape:
		switch b {
		case High:
			d.state = StateHigh
			return dst
		case Escape:
			d.state = StateIdle
			return append(dst, uint16(Escape))
		default:
			// Out of sync or an unsolicited control code: drop and resync.
			d.state = StateIdle
			d.stats.IllegalEscapes++
			if d.hooks.IllegalEscape != nil {
				d.hooks.IllegalEscape(b)
			}
			return dst
		}
	case StateHigh:
		d.state = StateIdle
		return append(dst, uint16(b)|Bit9)
	default:
		bad := d.state
		d.state = StateIdle
		d.stats.CorruptStates++
		if d.hooks.CorruptState != nil {
			d.hooks.CorruptState(bad, b)
		}
		return append(dst, uint16(b))
	}
}

// SetState overwrites the receive state, e.g. to restore a snapshot.
// Unrecognised values are accepted and recovered on the next byte.
func (d *Decoder) SetState(s State) {
	d.state = s
}
