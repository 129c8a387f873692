package device

import (
	"github.com/ngerakines/rgbops/wire"
)

// Command payload encoders. Sized payloads carry a leading data_size that
// counts itself. The decoders mirror them for server-side use in tests
// and tooling.

func EncodeName(name string) []byte {
	w := wire.NewWriter()
	w.WriteRawString(name)
	return w.Bytes()
}

func DecodeName(b []byte) (string, error) {
	r := wire.NewReader(b)
	s := r.ReadRawString()
	return s, r.Done()
}

func EncodeUint32(v uint32) []byte {
	w := wire.NewWriter()
	w.WriteUint32(v)
	return w.Bytes()
}

func EncodeUpdateLEDs(colors []Color) ([]byte, error) {
	w := wire.NewWriter()
	w.WriteUint32(0)
	w.WriteColors(colors)
	w.PatchUint32(0, uint32(w.Len()))
	return w.Bytes(), w.Err()
}

func DecodeUpdateLEDs(b []byte) ([]Color, error) {
	r, err := sizedReader(b, "update leds")
	if err != nil {
		return nil, err
	}
	colors := r.ReadColors()
	return colors, r.Done()
}

func EncodeUpdateZoneLEDs(zone uint32, colors []Color) ([]byte, error) {
	w := wire.NewWriter()
	w.WriteUint32(0)
	w.WriteUint32(zone)
	w.WriteColors(colors)
	w.PatchUint32(0, uint32(w.Len()))
	return w.Bytes(), w.Err()
}

func DecodeUpdateZoneLEDs(b []byte) (uint32, []Color, error) {
	r, err := sizedReader(b, "update zone leds")
	if err != nil {
		return 0, nil, err
	}
	zone := r.ReadUint32()
	colors := r.ReadColors()
	if err := r.Done(); err != nil {
		return 0, nil, err
	}
	return zone, colors, nil
}

func EncodeUpdateSingleLED(led int32, c Color) []byte {
	w := wire.NewWriter()
	w.WriteInt32(led)
	w.WriteColor(c)
	return w.Bytes()
}

func DecodeUpdateSingleLED(b []byte) (int32, Color, error) {
	r := wire.NewReader(b)
	led := r.ReadInt32()
	c := r.ReadColor()
	if err := r.Done(); err != nil {
		return 0, Color{}, err
	}
	return led, c, nil
}

func EncodeResizeZone(zone, size int32) []byte {
	w := wire.NewWriter()
	w.WriteInt32(zone)
	w.WriteInt32(size)
	return w.Bytes()
}

func DecodeResizeZone(b []byte) (zone, size int32, err error) {
	r := wire.NewReader(b)
	zone = r.ReadInt32()
	size = r.ReadInt32()
	if err := r.Done(); err != nil {
		return 0, 0, err
	}
	return zone, size, nil
}

// EncodeUpdateMode encodes the payload shared by UpdateMode and SaveMode.
func EncodeUpdateMode(index int32, m *Mode, version uint32) ([]byte, error) {
	w := wire.NewWriter()
	w.WriteUint32(0)
	w.WriteInt32(index)
	writeMode(w, m, version)
	w.PatchUint32(0, uint32(w.Len()))
	return w.Bytes(), w.Err()
}

func DecodeUpdateMode(b []byte, version uint32) (int32, *Mode, error) {
	r, err := sizedReader(b, "update mode")
	if err != nil {
		return 0, nil, err
	}
	index := r.ReadInt32()
	m := readMode(r, int(index), version)
	if err := r.Done(); err != nil {
		return 0, nil, err
	}
	return index, m, nil
}

func EncodeClearSegments(zone uint32) []byte {
	return EncodeUint32(zone)
}

func EncodeAddSegment(zone uint32, s *Segment) ([]byte, error) {
	w := wire.NewWriter()
	w.WriteUint32(0)
	w.WriteUint32(zone)
	writeSegment(w, s)
	w.PatchUint32(0, uint32(w.Len()))
	return w.Bytes(), w.Err()
}

func DecodeAddSegment(b []byte) (uint32, *Segment, error) {
	r, err := sizedReader(b, "add segment")
	if err != nil {
		return 0, nil, err
	}
	zone := r.ReadUint32()
	s := readSegment(r, 0)
	if err := r.Done(); err != nil {
		return 0, nil, err
	}
	return zone, s, nil
}
