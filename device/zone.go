package device

import (
	"github.com/ngerakines/rgbops/wire"
)

// NoLED marks a matrix cell without an LED.
const NoLED = 0xFFFFFFFF

// MatrixMap maps matrix coordinates to LED indices within a zone.
type MatrixMap struct {
	Height uint32
	Width  uint32
	// Cells is row-major, Height*Width entries.
	Cells []uint32
}

// At returns the LED index at row, col. ok is false outside the grid or
// where no LED sits.
func (m *MatrixMap) At(row, col uint32) (led uint32, ok bool) {
	if m == nil || row >= m.Height || col >= m.Width {
		return 0, false
	}
	i := uint64(row)*uint64(m.Width) + uint64(col)
	if i >= uint64(len(m.Cells)) {
		return 0, false
	}
	v := m.Cells[i]
	if v == NoLED {
		return 0, false
	}
	return v, true
}

// Zone is a resizable group of LEDs inside a controller.
type Zone struct {
	Index    int
	Name     string
	Type     ZoneType
	LEDsMin  uint32
	LEDsMax  uint32
	LEDCount uint32
	Matrix   *MatrixMap

	// Segments exist from protocol 4, Flags from protocol 5.
	Segments []*Segment
	Flags    uint32
}

// Resizable reports whether the zone accepts more than one size.
func (z *Zone) Resizable() bool {
	return z.LEDsMin != z.LEDsMax
}

func (z *Zone) validate() error {
	if !z.Type.valid() {
		return wire.Errorf("zone", wire.ErrInvalidEncoding, "%q has unknown type %d", z.Name, z.Type)
	}
	if z.LEDCount < z.LEDsMin || z.LEDCount > z.LEDsMax {
		return wire.Errorf("zone", wire.ErrInvariant, "%q has %d LEDs outside [%d, %d]", z.Name, z.LEDCount, z.LEDsMin, z.LEDsMax)
	}
	return nil
}

func writeZone(w *wire.Writer, z *Zone, version uint32) {
	w.WriteString(z.Name)
	w.WriteInt32(int32(z.Type))
	w.WriteUint32(z.LEDsMin)
	w.WriteUint32(z.LEDsMax)
	w.WriteUint32(z.LEDCount)
	if z.Matrix == nil {
		w.WriteUint16(0)
	} else {
		w.WriteCount(8 + 4*len(z.Matrix.Cells))
		w.WriteUint32(z.Matrix.Height)
		w.WriteUint32(z.Matrix.Width)
		for _, c := range z.Matrix.Cells {
			w.WriteUint32(c)
		}
	}
	if version >= 4 {
		w.WriteCount(len(z.Segments))
		for _, s := range z.Segments {
			writeSegment(w, s)
		}
	}
	if version >= 5 {
		w.WriteUint32(z.Flags)
	}
}

func readMatrix(r *wire.Reader) *MatrixMap {
	size := int(r.ReadUint16())
	if r.Err() != nil || size == 0 {
		return nil
	}
	mr := wire.NewReader(r.ReadBytes(size))
	if r.Err() != nil {
		return nil
	}
	m := &MatrixMap{}
	m.Height = mr.ReadUint32()
	m.Width = mr.ReadUint32()
	if mr.Err() != nil {
		r.Fail(mr.Err())
		return nil
	}
	cells := uint64(m.Height) * uint64(m.Width)
	rem := uint64(mr.Remaining())
	if rem%4 != 0 || cells != rem/4 {
		r.Fail(wire.Errorf("matrix", wire.ErrInvalidEncoding, "%dx%d grid in %d bytes", m.Height, m.Width, size))
		return nil
	}
	m.Cells = make([]uint32, cells)
	for i := range m.Cells {
		m.Cells[i] = mr.ReadUint32()
	}
	if mr.Err() != nil {
		r.Fail(mr.Err())
		return nil
	}
	return m
}

func readZone(r *wire.Reader, index int, version uint32) *Zone {
	z := &Zone{Index: index}
	z.Name = r.ReadString()
	z.Type = ZoneType(r.ReadInt32())
	z.LEDsMin = r.ReadUint32()
	z.LEDsMax = r.ReadUint32()
	z.LEDCount = r.ReadUint32()
	z.Matrix = readMatrix(r)
	if version >= 4 {
		n := r.ReadCount(segmentMinSize)
		for i := 0; i < n && r.Err() == nil; i++ {
			z.Segments = append(z.Segments, readSegment(r, i))
		}
	}
	if version >= 5 {
		z.Flags = r.ReadUint32()
	}
	if r.Err() != nil {
		return nil
	}
	if err := z.validate(); err != nil {
		r.Fail(err)
		return nil
	}
	return z
}

// EncodeZone encodes z for the given protocol version.
func EncodeZone(z *Zone, version uint32) ([]byte, error) {
	w := wire.NewWriter()
	writeZone(w, z, version)
	return w.Bytes(), w.Err()
}

// DecodeZone decodes a single zone occupying all of b.
func DecodeZone(b []byte, version uint32) (*Zone, error) {
	r := wire.NewReader(b)
	z := readZone(r, 0, version)
	if err := r.Done(); err != nil {
		return nil, err
	}
	return z, nil
}

// LEDAt returns the zone-relative LED index at row, col of a matrix zone.
func (z *Zone) LEDAt(row, col uint32) (uint32, bool) {
	return z.Matrix.At(row, col)
}
