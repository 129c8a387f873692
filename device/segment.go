package device

import (
	"github.com/ngerakines/rgbops/wire"
)

// name(2) + type(4) + start(4) + count(4)
const segmentMinSize = 14

// Segment is a named slice of a zone. Segments exist from protocol 4.
type Segment struct {
	Index    int
	Name     string
	Type     ZoneType
	Start    uint32
	LEDCount uint32
}

func writeSegment(w *wire.Writer, s *Segment) {
	w.WriteString(s.Name)
	w.WriteInt32(int32(s.Type))
	w.WriteUint32(s.Start)
	w.WriteUint32(s.LEDCount)
}

func readSegment(r *wire.Reader, index int) *Segment {
	s := &Segment{Index: index}
	s.Name = r.ReadString()
	s.Type = ZoneType(r.ReadInt32())
	s.Start = r.ReadUint32()
	s.LEDCount = r.ReadUint32()
	if r.Err() != nil {
		return nil
	}
	return s
}

// EncodeSegment encodes a segment. The layout does not vary by version.
func EncodeSegment(s *Segment) ([]byte, error) {
	w := wire.NewWriter()
	writeSegment(w, s)
	return w.Bytes(), w.Err()
}

// DecodeSegment decodes a single segment occupying all of b.
func DecodeSegment(b []byte) (*Segment, error) {
	r := wire.NewReader(b)
	s := readSegment(r, 0)
	if err := r.Done(); err != nil {
		return nil, err
	}
	return s, nil
}
