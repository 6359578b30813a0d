package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/danmuck/serial9/internal/auth"
	"github.com/danmuck/serial9/internal/observability"
	"github.com/danmuck/serial9/internal/protocol/serial9"
	"github.com/danmuck/serial9/internal/server"
	"github.com/danmuck/serial9/internal/service"
	"github.com/danmuck/serial9/internal/transport"
	"github.com/gin-gonic/gin"
)

func main() {
	observability.InitLogger("serial9ctl")
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "serial9ctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) > 0 {
		switch args[0] {
		case "ports":
			return listPorts(out)
		case "encode":
			return runEncode(args[1:], out)
		case "decode":
			return runDecode(args[1:], out)
		}
	}
	return runService(args)
}

func runService(args []string) error {
	fs := flag.NewFlagSet("serial9ctl", flag.ContinueOnError)
	path := fs.String("config", "cmd/serial9ctl/config.toml", "config path")
	transportFlag := fs.String("transport", "", "override transport: serial|tcp|loopback|emulator")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := service.DefaultConfig()
	if _, err := os.Stat(*path); err == nil {
		loaded, err := loadServiceConfig(*path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *transportFlag != "" {
		cfg.Transport = service.TransportKind(*transportFlag)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := observability.Component("serial9ctl")
	gin.SetMode(gin.ReleaseMode)
	svc := service.New(cfg)
	admin := server.New(svc, server.Options{
		Node:        cfg.ID,
		CorsOrigins: cfg.CorsOrigins,
		Auth:        auth.FromToken(cfg.AdminToken),
		Logger:      observability.Component("admin"),
	})

	errCh := make(chan error, 2)
	go func() { errCh <- svc.Run(ctx) }()
	go func() { errCh <- admin.Run(ctx, cfg.AdminAddr) }()

	logger.Info().Str("id", cfg.ID).Str("transport", string(cfg.Transport)).Str("admin", cfg.AdminAddr).Msg("serial9ctl running")

	var first error
	for i := 0; i < 2; i++ {
		err := <-errCh
		if err != nil && first == nil {
			first = err
			stop()
		}
	}
	return first
}

func listPorts(out io.Writer) error {
	ports, err := transport.ListPorts()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVID:PID\tPRODUCT\tBRIDGE")
	for _, p := range ports {
		ids := "-"
		if p.USB {
			ids = p.VID + ":" + p.PID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", p.Name, ids, p.Product, p.IsBridge())
	}
	return w.Flush()
}

func runEncode(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	mode := fs.Int("mode", 8, "bit 9 of every byte: 8 (low) or 9 (high)")
	baud := fs.String("baud", "", "encode a baud request instead of data")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *baud != "" {
		rate, err := serial9.ParseRate(*baud)
		if err != nil {
			return err
		}
		wire, err := serial9.EncodeBaud(rate)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, hex.EncodeToString(wire))
		return nil
	}

	src, err := parseHexArgs(fs.Args())
	if err != nil {
		return err
	}
	switch *mode {
	case 8:
		fmt.Fprintln(out, hex.EncodeToString(serial9.Encode8(src)))
	case 9:
		fmt.Fprintln(out, hex.EncodeToString(serial9.Encode9(src)))
	default:
		return fmt.Errorf("%w: %d", service.ErrInvalidMode, *mode)
	}
	return nil
}

func runDecode(args []string, out io.Writer) error {
	raw, err := parseHexArgs(args)
	if err != nil {
		return err
	}
	var dec serial9.Decoder
	values := dec.Decode(raw)
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%03x", v)
	}
	fmt.Fprintln(out, strings.Join(parts, " "))
	if dec.State() != serial9.StateIdle {
		fmt.Fprintf(out, "# trailing state=%s\n", dec.State())
	}
	if n := dec.Stats().IllegalEscapes; n > 0 {
		fmt.Fprintf(out, "# illegal escapes=%d\n", n)
	}
	return nil
}

func parseHexArgs(args []string) ([]byte, error) {
	joined := strings.ReplaceAll(strings.Join(args, ""), ":", "")
	if joined == "" {
		return nil, errors.New("hex input required")
	}
	b, err := hex.DecodeString(joined)
	if err != nil {
		return nil, fmt.Errorf("parse hex: %w", err)
	}
	return b, nil
}
