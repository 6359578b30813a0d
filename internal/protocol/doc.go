// Package protocol owns the serial9 wire contract.
//
// Ownership boundary:
// - escape grammar and receive state machines (serial9)
// - sentinel errors shared by codec, transport and bridge layers
package protocol
