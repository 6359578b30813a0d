// Package service runs one codec against a configured transport.
//
// Ownership boundary:
// - transport construction from config
// - serialised access to the codec (the codec itself is single-threaded)
// - receive polling and fan-out of decoded values to subscribers
package service
