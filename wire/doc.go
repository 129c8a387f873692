// Package wire implements the OpenRGB SDK packet format.
//
// Every packet is a 16 byte header followed by exactly Length payload bytes:
//
//	┌──────────┬──────────────┬──────────────┬────────────────┐
//	│ "ORGB"   │ device index │ packet id    │ payload length │
//	│ 4 bytes  │ u32 LE       │ u32 LE       │ u32 LE         │
//	└──────────┴──────────────┴──────────────┴────────────────┘
//
// Strings carry a u16 length that counts their NUL terminator. Lists carry
// a u16 element count. Colors are four bytes: red, green, blue and padding.
//
// Nothing in this package performs I/O beyond ReadHeader, and nothing holds
// state between calls.
package wire
