package wire

import (
	"encoding/binary"
	"math"
)

// Writer appends little-endian values to a growing buffer. Values that do
// not fit their length prefix record an error instead of being truncated.
type Writer struct {
	buf []byte
	err error
}

// NewWriter returns a Writer with a small initial capacity.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

// Bytes returns the encoded bytes.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Err returns the first encoding error.
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) WriteUint8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteUint16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) WriteUint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

// WriteBytes appends raw bytes.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteCount writes a u16 element count.
func (w *Writer) WriteCount(n int) {
	if !fitsUint16(n) {
		w.fail(Errorf("count", ErrTooLarge, "%d elements", n))
		n = 0
	}
	w.WriteUint16(uint16(n))
}

// WriteString writes a u16 length (including the NUL) followed by s and NUL.
func (w *Writer) WriteString(s string) {
	if len(s)+1 > math.MaxUint16 {
		w.fail(Errorf("string", ErrTooLarge, "%d bytes", len(s)))
		s = ""
	}
	w.WriteUint16(uint16(len(s) + 1))
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// WriteRawString writes s and a NUL terminator without a length prefix.
func (w *Writer) WriteRawString(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// WriteStrings writes a u16 count followed by each string.
func (w *Writer) WriteStrings(ss []string) {
	w.WriteCount(len(ss))
	for _, s := range ss {
		w.WriteString(s)
	}
}

// WriteColor writes one color as R, G, B and a zero pad byte.
func (w *Writer) WriteColor(c Color) {
	w.buf = append(w.buf, c.R, c.G, c.B, 0)
}

// WriteColors writes a u16 count followed by the colors.
func (w *Writer) WriteColors(colors []Color) {
	w.WriteCount(len(colors))
	for _, c := range colors {
		w.WriteColor(c)
	}
}

// PatchUint32 overwrites four bytes at offset, used to back-fill size fields.
func (w *Writer) PatchUint32(offset int, v uint32) {
	binary.LittleEndian.PutUint32(w.buf[offset:offset+4], v)
}

func (w *Writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}
