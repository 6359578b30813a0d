// Package transport provides the 8-bit channels a codec can drive:
// physical serial ports, TCP sockets to a remote bridge and in-memory
// loopbacks.
//
// Every transport satisfies codec.Transport. Read returns what is
// available within the configured read timeout; a timeout with no data
// is reported as an empty read, not an error.
package transport
