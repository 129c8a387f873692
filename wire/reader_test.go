package wire

import (
	"errors"
	"strings"
	"testing"
)

func TestWriterReader(t *testing.T) {
	w := NewWriter()
	w.WriteUint8(0x42)
	w.WriteUint16(0x1234)
	w.WriteUint32(0xdeadbeef)
	w.WriteInt32(-1)
	w.WriteString("Thermaltake Riing")
	w.WriteString("")
	w.WriteColor(RGB(255, 128, 1))
	w.WriteColors([]Color{RGB(1, 2, 3), RGB(4, 5, 6)})
	w.WriteStrings([]string{"a", "bc"})
	if err := w.Err(); err != nil {
		t.Fatalf("Writer error: %v", err)
	}

	r := NewReader(w.Bytes())
	if v := r.ReadUint8(); v != 0x42 {
		t.Errorf("ReadUint8() = %x", v)
	}
	if v := r.ReadUint16(); v != 0x1234 {
		t.Errorf("ReadUint16() = %x", v)
	}
	if v := r.ReadUint32(); v != 0xdeadbeef {
		t.Errorf("ReadUint32() = %x", v)
	}
	if v := r.ReadInt32(); v != -1 {
		t.Errorf("ReadInt32() = %d", v)
	}
	if s := r.ReadString(); s != "Thermaltake Riing" {
		t.Errorf("ReadString() = %q", s)
	}
	if s := r.ReadString(); s != "" {
		t.Errorf("ReadString() = %q, want empty", s)
	}
	if c := r.ReadColor(); c != RGB(255, 128, 1) {
		t.Errorf("ReadColor() = %v", c)
	}
	colors := r.ReadColors()
	if len(colors) != 2 || colors[1] != RGB(4, 5, 6) {
		t.Errorf("ReadColors() = %v", colors)
	}
	ss := r.ReadStrings()
	if len(ss) != 2 || ss[0] != "a" || ss[1] != "bc" {
		t.Errorf("ReadStrings() = %q", ss)
	}
	if err := r.Done(); err != nil {
		t.Errorf("Done() = %v", err)
	}
}

func TestStringEncoding(t *testing.T) {
	w := NewWriter()
	w.WriteString("test")
	want := []byte{5, 0, 't', 'e', 's', 't', 0}
	if string(w.Bytes()) != string(want) {
		t.Errorf("WriteString() = %v, want %v", w.Bytes(), want)
	}

	w = NewWriter()
	w.WriteRawString("test")
	if string(w.Bytes()) != "test\x00" {
		t.Errorf("WriteRawString() = %q", w.Bytes())
	}
}

func TestReadStringInvalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"missing terminator", []byte{3, 0, 'a', 'b', 'c'}, ErrInvalidEncoding},
		{"invalid utf8", []byte{3, 0, 0xff, 0xfe, 0}, ErrInvalidEncoding},
		{"short body", []byte{9, 0, 'a', 'b'}, ErrTruncated},
		{"short prefix", []byte{9}, ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(tt.data)
			if s := r.ReadString(); s != "" {
				t.Errorf("ReadString() = %q, want empty", s)
			}
			if !errors.Is(r.Err(), tt.want) {
				t.Errorf("Err() = %v, want %v", r.Err(), tt.want)
			}
		})
	}
}

func TestReaderStickyError(t *testing.T) {
	r := NewReader([]byte{1, 2})
	_ = r.ReadUint32()
	first := r.Err()
	if !errors.Is(first, ErrTruncated) {
		t.Fatalf("Err() = %v, want ErrTruncated", first)
	}
	if v := r.ReadUint8(); v != 0 {
		t.Errorf("ReadUint8() after error = %d, want 0", v)
	}
	if r.Err() != first {
		t.Errorf("error changed after failure: %v", r.Err())
	}
	if r.Offset() != 0 {
		t.Errorf("Offset() = %d, want 0", r.Offset())
	}
}

func TestReadCountRejectsLyingCount(t *testing.T) {
	// 65535 colors announced, 8 bytes present.
	r := NewReader([]byte{0xff, 0xff, 1, 2, 3, 0, 4, 5, 6, 0})
	if colors := r.ReadColors(); colors != nil {
		t.Errorf("ReadColors() = %v, want nil", colors)
	}
	if !errors.Is(r.Err(), ErrTruncated) {
		t.Errorf("Err() = %v, want ErrTruncated", r.Err())
	}
}

func TestDoneTrailingBytes(t *testing.T) {
	r := NewReader([]byte{1, 0, 0, 0, 9})
	_ = r.ReadUint32()
	if err := r.Done(); !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("Done() = %v, want ErrInvalidEncoding", err)
	}
}

func TestUint32Payload(t *testing.T) {
	v, err := Uint32Payload([]byte{4, 0, 0, 0})
	if err != nil || v != 4 {
		t.Errorf("Uint32Payload() = %d, %v", v, err)
	}
	if _, err := Uint32Payload([]byte{4, 0, 0}); !errors.Is(err, ErrTruncated) {
		t.Errorf("Uint32Payload(short) = %v", err)
	}
}

func TestWriterTooLarge(t *testing.T) {
	w := NewWriter()
	w.WriteString(strings.Repeat("x", 70000))
	if !errors.Is(w.Err(), ErrTooLarge) {
		t.Errorf("Err() = %v, want ErrTooLarge", w.Err())
	}
	w = NewWriter()
	w.WriteColors(make([]Color, 70000))
	if !errors.Is(w.Err(), ErrTooLarge) {
		t.Errorf("Err() = %v, want ErrTooLarge", w.Err())
	}
}

func TestColorHex(t *testing.T) {
	if got := RGB(255, 0, 16).Hex(); got != "#ff0010" {
		t.Errorf("Hex() = %q", got)
	}
	if got := Fill(RGB(1, 1, 1), 3); len(got) != 3 || got[2] != RGB(1, 1, 1) {
		t.Errorf("Fill() = %v", got)
	}
}
