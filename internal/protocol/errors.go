package protocol

import "errors"

var (
	ErrUnknownRate     = errors.New("protocol: unknown baud rate")
	ErrNoTransport     = errors.New("protocol: no transport attached")
	ErrTransportClosed = errors.New("protocol: transport closed")
	ErrNoDevice        = errors.New("protocol: no bridge device found")
)
