package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/serial9/internal/bridge"
	"github.com/danmuck/serial9/internal/codec"
	"github.com/danmuck/serial9/internal/observability"
	"github.com/danmuck/serial9/internal/protocol"
	"github.com/danmuck/serial9/internal/protocol/serial9"
	"github.com/danmuck/serial9/internal/transport"
	"github.com/rs/zerolog"
)

var (
	ErrNotStarted     = errors.New("service: not started")
	ErrAlreadyStarted = errors.New("service: already started")
	ErrInvalidMode    = errors.New("service: mode must be 8 or 9")
)

// Status is a point-in-time view of the runtime.
type Status struct {
	ID             string        `json:"id"`
	CodecID        string        `json:"codec_id"`
	Transport      TransportKind `json:"transport"`
	Endpoint       string        `json:"endpoint,omitempty"`
	Attached       bool          `json:"attached"`
	State          string        `json:"state"`
	Pending        int           `json:"pending"`
	IllegalEscapes uint64        `json:"illegal_escapes"`
	CorruptStates  uint64        `json:"corrupt_states"`
	Subscribers    int           `json:"subscribers"`
	StartedAt      time.Time     `json:"started_at"`
}

type link interface {
	codec.Transport
	io.Closer
}

// Service owns a codec and serialises every call into it.
type Service struct {
	cfg    Config
	logger zerolog.Logger
	hub    *Hub

	// rx serialises link reads, which happen outside mu.
	rx sync.Mutex

	mu        sync.Mutex
	starting  bool
	codec     *codec.Codec
	link      link
	endpoint  string
	startedAt time.Time
}

func New(cfg Config) *Service {
	return &Service{
		cfg:    cfg,
		logger: observability.Component("service").With().Str("node", cfg.ID).Logger(),
		hub:    NewHub(),
	}
}

func (s *Service) Config() Config {
	return s.cfg
}

// Start opens the transport and binds a codec to it. The link is opened
// without holding the service lock, so Status stays responsive while a
// dial retries.
func (s *Service) Start(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.codec != nil || s.starting {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.starting = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.starting = false
		s.mu.Unlock()
	}()

	l, endpoint, err := s.openLink(ctx)
	if err != nil {
		return err
	}
	c := codec.New(l,
		codec.WithID(s.cfg.ID),
		codec.WithObserver(observability.CodecObserver(s.logger, s.cfg.ID)),
	)

	if raw := strings.TrimSpace(s.cfg.BridgeBaud); raw != "" {
		rate, err := serial9.ParseRate(raw)
		if err == nil {
			err = c.SetBaud(rate)
		}
		if err != nil {
			_ = l.Close()
			return fmt.Errorf("service: initial baud request: %w", err)
		}
	}

	s.mu.Lock()
	s.link = l
	s.endpoint = endpoint
	s.codec = c
	s.startedAt = time.Now()
	s.mu.Unlock()
	s.logger.Info().Str("transport", string(s.cfg.Transport)).Str("endpoint", endpoint).Msg("service.Start transport ready")
	return nil
}

func (s *Service) openLink(ctx context.Context) (link, string, error) {
	switch s.cfg.Transport {
	case TransportSerial:
		port, err := transport.OpenSerial(s.cfg.Serial)
		if err != nil {
			return nil, "", err
		}
		return port, port.Name(), nil
	case TransportTCP:
		conn, err := transport.Dial(ctx, s.cfg.Addr, s.cfg.Dial)
		if err != nil {
			return nil, "", err
		}
		return conn, s.cfg.Addr, nil
	case TransportLoopback:
		return transport.NewLoopback(), "loopback", nil
	case TransportEmulator:
		rate, err := serial9.ParseRate(s.cfg.EmulatorBaud)
		if err != nil {
			return nil, "", err
		}
		return bridge.New(bridge.Echo{}, rate), "emulator", nil
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrInvalidTransport, s.cfg.Transport)
	}
}

// Run starts the service and polls for received values until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	defer s.Close()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("service.Run stopping")
			return nil
		case <-ticker.C:
			if _, err := s.Poll(); err != nil {
				if errors.Is(err, ErrNotStarted) {
					s.logger.Info().Msg("service.Run closed underneath")
					return nil
				}
				return err
			}
		}
	}
}

// Poll drains whatever the transport has ready and publishes it. The
// link read runs outside the service lock; only decoding takes it.
func (s *Service) Poll() ([]uint16, error) {
	s.rx.Lock()
	defer s.rx.Unlock()

	s.mu.Lock()
	c, l := s.codec, s.link
	s.mu.Unlock()
	if c == nil {
		return nil, ErrNotStarted
	}

	raw, readErr := l.Read()

	s.mu.Lock()
	if s.codec != c {
		s.mu.Unlock()
		return nil, ErrNotStarted
	}
	values := c.Receive(raw, readErr)
	s.mu.Unlock()

	if len(values) > 0 {
		s.hub.Publish(Batch{At: time.Now(), Values: values})
	}
	return values, nil
}

// Resync drops any partial escape sequence held by the receive side.
func (s *Service) Resync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.codec == nil {
		return ErrNotStarted
	}
	s.codec.Reset()
	return nil
}

// Send transmits p with bit 9 low (mode 8) or high (mode 9).
func (s *Service) Send(mode int, p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.codec == nil {
		return ErrNotStarted
	}
	switch mode {
	case 8:
		s.codec.Tx8(p)
	case 9:
		s.codec.Tx9(p)
	default:
		return fmt.Errorf("%w: %d", ErrInvalidMode, mode)
	}
	return nil
}

func (s *Service) SetBaud(rate serial9.Rate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.codec == nil {
		return ErrNotStarted
	}
	return s.codec.SetBaud(rate)
}

func (s *Service) Subscribe(buffer int) *Subscription {
	return s.hub.Subscribe(buffer)
}

func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		ID:          s.cfg.ID,
		Transport:   s.cfg.Transport,
		Endpoint:    s.endpoint,
		State:       serial9.StateIdle.String(),
		Subscribers: s.hub.Len(),
		StartedAt:   s.startedAt,
	}
	if s.codec != nil {
		stats := s.codec.Stats()
		st.CodecID = s.codec.ID()
		st.Attached = s.codec.Attached()
		st.State = s.codec.State().String()
		st.Pending = s.codec.Pending()
		st.IllegalEscapes = stats.IllegalEscapes
		st.CorruptStates = stats.CorruptStates
	}
	return st
}

// Close releases the transport and ends all subscriptions.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hub.closeAll()
	if s.link == nil {
		return nil
	}
	err := s.link.Close()
	s.link = nil
	s.codec = nil
	if err != nil && !errors.Is(err, protocol.ErrTransportClosed) {
		return err
	}
	return nil
}
