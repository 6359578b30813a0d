package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/serial9/internal/service"
	"github.com/danmuck/serial9/internal/testutil/testlog"
)

func TestEncodeCommand(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name string
		args []string
		want string
	}{
		{name: "mode 8 doubles escape", args: []string{"-mode", "8", "41ff"}, want: "41ffff"},
		{name: "mode 9 prefixes", args: []string{"-mode", "9", "41"}, want: "ff0141"},
		{name: "split args", args: []string{"-mode", "8", "41", "42"}, want: "4142"},
		{name: "baud", args: []string{"-baud", "9600"}, want: "ff15"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := run(append([]string{"encode"}, tc.args...), &out); err != nil {
				t.Fatalf("encode: %v", err)
			}
			if got := strings.TrimSpace(out.String()); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestEncodeCommandErrors(t *testing.T) {
	testlog.Start(t)
	var out bytes.Buffer
	if err := run([]string{"encode", "-mode", "7", "41"}, &out); !errors.Is(err, service.ErrInvalidMode) {
		t.Fatalf("expected invalid mode, got %v", err)
	}
	if err := run([]string{"encode", "zz"}, &out); err == nil {
		t.Fatalf("expected hex error")
	}
	if err := run([]string{"encode"}, &out); err == nil {
		t.Fatalf("expected missing input error")
	}
	if err := run([]string{"encode", "-baud", "1234"}, &out); err == nil {
		t.Fatalf("expected unknown rate error")
	}
}

func TestDecodeCommand(t *testing.T) {
	testlog.Start(t)
	var out bytes.Buffer
	if err := run([]string{"decode", "41", "ffff", "ff0142", "ff02", "43", "ff"}, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("unexpected output: %q", out.String())
	}
	if lines[0] != "041 0ff 142 043" {
		t.Fatalf("unexpected values: %q", lines[0])
	}
	if lines[1] != "# trailing state=escape" {
		t.Fatalf("unexpected state line: %q", lines[1])
	}
	if lines[2] != "# illegal escapes=1" {
		t.Fatalf("unexpected stats line: %q", lines[2])
	}
}
