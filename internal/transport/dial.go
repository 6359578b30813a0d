package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"math/rand"
	"net"
	"time"

	"github.com/rs/zerolog/log"
)

// DialConfig controls connecting to a bridge exposed over TCP.
// Attempts <= 0 retries until ctx is done.
type DialConfig struct {
	Timeout     time.Duration
	Attempts    int
	Backoff     BackoffConfig
	ReadTimeout time.Duration
	BufferSize  int
	TLS         TLSConfig
}

func DefaultDialConfig() DialConfig {
	return DialConfig{
		Timeout:     5 * time.Second,
		Attempts:    5,
		Backoff:     DefaultBackoff(),
		ReadTimeout: 20 * time.Millisecond,
		BufferSize:  DefaultBufferSize,
	}
}

// Dial connects to addr, backing off between failed attempts.
func Dial(ctx context.Context, addr string, cfg DialConfig) (*Stream, error) {
	tlsCfg, err := cfg.TLS.ClientConfig()
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	dialer := &net.Dialer{Timeout: cfg.Timeout}

	for attempt := 1; ; attempt++ {
		conn, err := dialOnce(ctx, dialer, addr, tlsCfg)
		if err == nil {
			log.Info().Str("addr", addr).Int("attempt", attempt).Bool("tls", tlsCfg != nil).Msg("transport.Dial connected")
			return NewStream(conn, StreamOptions{BufferSize: cfg.BufferSize, ReadTimeout: cfg.ReadTimeout}), nil
		}
		if cfg.Attempts > 0 && attempt >= cfg.Attempts {
			return nil, fmt.Errorf("transport: dial %s failed after %d attempts: %w", addr, attempt, err)
		}
		delay := NextBackoffDelay(cfg.Backoff, attempt, rng)
		log.Warn().Str("addr", addr).Int("attempt", attempt).Dur("retry_in", delay).Err(err).Msg("transport.Dial failed")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func dialOnce(ctx context.Context, dialer *net.Dialer, addr string, tlsCfg *tls.Config) (net.Conn, error) {
	if tlsCfg == nil {
		return dialer.DialContext(ctx, "tcp", addr)
	}
	td := &tls.Dialer{NetDialer: dialer, Config: tlsCfg}
	return td.DialContext(ctx, "tcp", addr)
}
