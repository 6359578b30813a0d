package transport

import (
	"bytes"
	"sync"
)

// Loopback is an in-memory transport whose writes become its reads.
type Loopback struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func NewLoopback() *Loopback {
	return &Loopback{}
}

func (l *Loopback) Write(p []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf.Write(p)
	return nil
}

func (l *Loopback) Read() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := bytes.Clone(l.buf.Bytes())
	l.buf.Reset()
	return out, nil
}

func (l *Loopback) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Len()
}

func (l *Loopback) Close() error {
	return nil
}
