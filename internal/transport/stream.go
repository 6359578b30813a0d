package transport

import (
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/serial9/internal/protocol"
)

const DefaultBufferSize = 4096

type deadlineReader interface {
	SetReadDeadline(t time.Time) error
}

// StreamOptions tunes a Stream.
// ReadTimeout only applies to readers that support read deadlines.
type StreamOptions struct {
	BufferSize  int
	ReadTimeout time.Duration
}

// Stream adapts an io.ReadWriter to codec.Transport.
// Reads and writes are serialised independently.
type Stream struct {
	rmu     sync.Mutex
	wmu     sync.Mutex
	rw      io.ReadWriter
	buf     []byte
	timeout time.Duration
	closed  atomic.Bool
}

func NewStream(rw io.ReadWriter, opts StreamOptions) *Stream {
	size := opts.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Stream{
		rw:      rw,
		buf:     make([]byte, size),
		timeout: opts.ReadTimeout,
	}
}

func (s *Stream) Write(p []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if s.closed.Load() {
		return protocol.ErrTransportClosed
	}
	if len(p) == 0 {
		return nil
	}
	_, err := s.rw.Write(p)
	return err
}

// Read performs at most one read on the underlying stream.
func (s *Stream) Read() ([]byte, error) {
	s.rmu.Lock()
	defer s.rmu.Unlock()
	if s.closed.Load() {
		return nil, protocol.ErrTransportClosed
	}
	if dr, ok := s.rw.(deadlineReader); ok && s.timeout > 0 {
		if err := dr.SetReadDeadline(time.Now().Add(s.timeout)); err != nil {
			return nil, err
		}
	}
	n, err := s.rw.Read(s.buf)
	if n > 0 {
		out := make([]byte, n)
		copy(out, s.buf[:n])
		return out, nil
	}
	if err == nil || isTimeout(err) {
		return nil, nil
	}
	return nil, err
}

func (s *Stream) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c, ok := s.rw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
