package wire

import (
	"encoding/binary"
	"io"
)

const (
	// HeaderSize is the fixed length of every packet header.
	HeaderSize = 16

	// DefaultMaxPayload caps the payload length accepted from a header.
	DefaultMaxPayload = 16 * 1024 * 1024

	// ProtocolVersion is the newest protocol revision this module speaks.
	ProtocolVersion = 5
)

// Magic opens every packet.
var Magic = [4]byte{'O', 'R', 'G', 'B'}

// Header precedes every payload.
//
//	[4B] magic "ORGB"
//	[4B] device index (LE)
//	[4B] packet id (LE)
//	[4B] payload length (LE)
type Header struct {
	DeviceIndex uint32
	Kind        Kind
	Length      uint32
}

// EncodeHeader returns the 16 header bytes for a packet.
func EncodeHeader(deviceIndex uint32, kind Kind, payloadLen uint32) []byte {
	buf := make([]byte, HeaderSize)
	putHeader(buf, deviceIndex, kind, payloadLen)
	return buf
}

func putHeader(buf []byte, deviceIndex uint32, kind Kind, payloadLen uint32) {
	copy(buf[0:4], Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], deviceIndex)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(kind))
	binary.LittleEndian.PutUint32(buf[12:16], payloadLen)
}

// DecodeHeader parses the first HeaderSize bytes of b.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, &ProtocolError{Op: "header", Err: ErrTruncated}
	}
	if b[0] != Magic[0] || b[1] != Magic[1] || b[2] != Magic[2] || b[3] != Magic[3] {
		return Header{}, Errorf("header", ErrBadMagic, "got %q", b[0:4])
	}
	return Header{
		DeviceIndex: binary.LittleEndian.Uint32(b[4:8]),
		Kind:        Kind(binary.LittleEndian.Uint32(b[8:12])),
		Length:      binary.LittleEndian.Uint32(b[12:16]),
	}, nil
}

// ReadHeader reads exactly one header from r. I/O failures are returned
// unwrapped so callers can tell a closed transport from a bad stream.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, err
	}
	return DecodeHeader(buf[:])
}

// Packet returns header and payload as one buffer, ready for a single write.
func Packet(deviceIndex uint32, kind Kind, payload []byte) []byte {
	buf := make([]byte, HeaderSize+len(payload))
	putHeader(buf, deviceIndex, kind, uint32(len(payload)))
	copy(buf[HeaderSize:], payload)
	return buf
}
