package wire

import (
	"encoding/binary"
	"math"
	"unicode/utf8"
)

// Reader decodes little-endian values from a payload. The first failure is
// kept and every later read returns a zero value, so decoders can check Err
// once per entity. A Reader never reads past the slice it was given.
type Reader struct {
	buf []byte
	pos int
	err error
}

// NewReader returns a Reader over b.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Err returns the first error encountered.
func (r *Reader) Err() error {
	return r.err
}

// Fail records err unless an earlier error is already set.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.pos
}

// Offset returns the current read position.
func (r *Reader) Offset() int {
	return r.pos
}

func (r *Reader) take(n int, what string) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > r.Remaining() {
		r.err = Errorf(what, ErrTruncated, "need %d bytes at offset %d, have %d", n, r.pos, r.Remaining())
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *Reader) ReadUint8() uint8 {
	b := r.take(1, "uint8")
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) ReadUint16() uint16 {
	b := r.take(2, "uint16")
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) ReadUint32() uint32 {
	b := r.take(4, "uint32")
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) ReadInt32() int32 {
	return int32(r.ReadUint32())
}

// ReadBytes returns a copy of the next n bytes.
func (r *Reader) ReadBytes(n int) []byte {
	b := r.take(n, "bytes")
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// Skip advances past n bytes.
func (r *Reader) Skip(n int) {
	r.take(n, "skip")
}

// ReadCount reads a u16 element count and checks that at least minSize bytes
// per element remain, so a lying count fails before any allocation.
func (r *Reader) ReadCount(minSize int) int {
	n := int(r.ReadUint16())
	if r.err != nil {
		return 0
	}
	if minSize > 0 && n > r.Remaining()/minSize {
		r.err = Errorf("count", ErrTruncated, "%d elements of at least %d bytes, %d remaining", n, minSize, r.Remaining())
		return 0
	}
	return n
}

// ReadString reads a u16 length-prefixed string whose length includes a
// trailing NUL.
func (r *Reader) ReadString() string {
	n := int(r.ReadUint16())
	if r.err != nil || n == 0 {
		return ""
	}
	b := r.take(n, "string")
	if b == nil {
		return ""
	}
	if b[n-1] != 0 {
		r.err = Errorf("string", ErrInvalidEncoding, "missing NUL terminator at offset %d", r.pos-1)
		return ""
	}
	if !utf8.Valid(b[:n-1]) {
		r.err = Errorf("string", ErrInvalidEncoding, "invalid UTF-8 before offset %d", r.pos)
		return ""
	}
	return string(b[:n-1])
}

// ReadRawString reads a NUL-terminated string filling the rest of the payload.
func (r *Reader) ReadRawString() string {
	n := r.Remaining()
	if r.err != nil || n == 0 {
		return ""
	}
	b := r.take(n, "raw string")
	if b[n-1] == 0 {
		b = b[:n-1]
	}
	if !utf8.Valid(b) {
		r.err = Errorf("raw string", ErrInvalidEncoding, "invalid UTF-8")
		return ""
	}
	return string(b)
}

// ReadColor reads one 4-byte color, dropping the padding byte.
func (r *Reader) ReadColor() Color {
	b := r.take(ColorSize, "color")
	if b == nil {
		return Color{}
	}
	return Color{R: b[0], G: b[1], B: b[2]}
}

// ReadColors reads a u16 count followed by that many colors.
func (r *Reader) ReadColors() []Color {
	n := r.ReadCount(ColorSize)
	if r.err != nil || n == 0 {
		return nil
	}
	colors := make([]Color, n)
	for i := range colors {
		colors[i] = r.ReadColor()
	}
	return colors
}

// ReadStrings reads a u16 count followed by that many strings.
func (r *Reader) ReadStrings() []string {
	n := r.ReadCount(2)
	if r.err != nil || n == 0 {
		return nil
	}
	out := make([]string, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		out = append(out, r.ReadString())
	}
	if r.err != nil {
		return nil
	}
	return out
}

// Done fails with ErrInvalidEncoding when bytes remain unread.
func (r *Reader) Done() error {
	if r.err == nil && r.Remaining() != 0 {
		r.err = Errorf("payload", ErrInvalidEncoding, "%d trailing bytes", r.Remaining())
	}
	return r.err
}

// Uint32Payload decodes a payload consisting of a single u32.
func Uint32Payload(b []byte) (uint32, error) {
	r := NewReader(b)
	v := r.ReadUint32()
	if err := r.Done(); err != nil {
		return 0, err
	}
	return v, nil
}

// fitsUint16 reports whether n can be written as a u16 count.
func fitsUint16(n int) bool {
	return n >= 0 && n <= math.MaxUint16
}
