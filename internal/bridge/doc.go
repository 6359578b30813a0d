// Package bridge emulates the USB to RS-485 bridge firmware in software.
//
// A Bridge is written to by the host exactly like the real device: it
// decodes the host escape stream, drives the resulting 9-bit words onto a
// Bus, applies in-band baud rate requests and encodes whatever the bus
// answers back into the host stream.
package bridge
