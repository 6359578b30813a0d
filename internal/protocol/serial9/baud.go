package serial9

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/serial9/internal/protocol"
)

// Rate identifies one of the bridge baud rates that can be requested
// in-band.
type Rate uint8

const (
	Rate300 Rate = iota
	Rate600
	Rate1200
	Rate2400
	Rate4800
	Rate9600
	Rate19200
	Rate38400
	Rate57600
	Rate115200
)

// Baud codes occupy 0x10..0x19, disjoint from High and Escape.
const baudCodeBase byte = 0x10

var rateBauds = [...]int{300, 600, 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200}

// Rates returns every defined rate in ascending baud order.
func Rates() []Rate {
	out := make([]Rate, len(rateBauds))
	for i := range rateBauds {
		out[i] = Rate(i)
	}
	return out
}

func (r Rate) Valid() bool {
	return int(r) < len(rateBauds)
}

// Baud returns the line speed in bits per second, or 0 for an invalid rate.
func (r Rate) Baud() int {
	if !r.Valid() {
		return 0
	}
	return rateBauds[r]
}

// Code returns the escape continuation byte that requests r.
func (r Rate) Code() byte {
	return baudCodeBase + byte(r)
}

func (r Rate) String() string {
	if !r.Valid() {
		return fmt.Sprintf("rate(%d)", uint8(r))
	}
	return strconv.Itoa(rateBauds[r])
}

// RateFromBaud maps a line speed to its rate.
func RateFromBaud(baud int) (Rate, error) {
	for i, b := range rateBauds {
		if b == baud {
			return Rate(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %d", protocol.ErrUnknownRate, baud)
}

// ParseRate accepts "38400", "b38400" or "baud_38400".
func ParseRate(raw string) (Rate, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "baud_")
	s = strings.TrimPrefix(s, "b")
	baud, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", protocol.ErrUnknownRate, raw)
	}
	return RateFromBaud(baud)
}

// RateFromCode maps an escape continuation byte back to its rate.
func RateFromCode(code byte) (Rate, bool) {
	if code < baudCodeBase {
		return 0, false
	}
	r := Rate(code - baudCodeBase)
	if !r.Valid() {
		return 0, false
	}
	return r, true
}
