// Package serial9 owns the escape grammar that carries 9-bit serial
// characters over an 8-bit byte stream.
//
// Host to bridge:
//   - plain byte b (b != 0xFF)      character b, bit 9 low
//   - 0xFF 0xFF                     character 0xFF, bit 9 low
//   - 0xFF 0x01 b                   character b, bit 9 high
//   - 0xFF code (0x10..0x19)        baud rate change, never forwarded
//
// Bridge to host uses the same data grammar. Decoded characters are
// reported as uint16 values in [0, 0x1FF]; bit 8 carries the 9th bit.
package serial9
