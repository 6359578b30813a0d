// Package codec binds the serial9 escape grammar to a transport.
//
// A Codec keeps the receive state machine and a fallback buffer for the
// lifetime of the instance. Transport failures never reach the caller of
// Tx8, Tx9 or Rx: written bytes are parked in the fallback buffer and a
// failed read drains it instead. This makes an unattached Codec a
// loopback, which is how most tests drive it.
package codec
