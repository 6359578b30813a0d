package serial9

import (
	"bytes"
	"fmt"

	"github.com/danmuck/serial9/internal/protocol"
)

// Encode8 returns src escaped for delivery with bit 9 low.
func Encode8(src []byte) []byte {
	return AppendEncode8(make([]byte, 0, len(src)+bytes.Count(src, []byte{Escape})), src)
}

// AppendEncode8 appends src to dst with every Escape byte doubled.
func AppendEncode8(dst, src []byte) []byte {
	for _, b := range src {
		if b == Escape {
			dst = append(dst, Escape, Escape)
			continue
		}
		dst = append(dst, b)
	}
	return dst
}

// Encode9 returns src escaped for delivery with bit 9 high.
func Encode9(src []byte) []byte {
	return AppendEncode9(make([]byte, 0, 3*len(src)), src)
}

// AppendEncode9 appends Escape, High, b to dst for every byte b of src.
// Escape bytes take the same three-byte form; no doubling applies.
func AppendEncode9(dst, src []byte) []byte {
	for _, b := range src {
		dst = append(dst, Escape, High, b)
	}
	return dst
}

// EncodeBaud returns the two-byte sequence that asks the bridge to
// switch its bus to r.
func EncodeBaud(r Rate) ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %s", protocol.ErrUnknownRate, r)
	}
	return []byte{Escape, r.Code()}, nil
}
