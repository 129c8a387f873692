package device

import (
	"github.com/ngerakines/rgbops/wire"
)

// Mode is one operating behavior of a controller.
type Mode struct {
	// Index is the position in the controller's mode list. It is not
	// carried on the wire.
	Index int

	Name  string
	Value int32
	Flags ModeFlags

	SpeedMin uint32
	SpeedMax uint32
	Speed    uint32

	// Brightness fields exist from protocol 3.
	BrightnessMin uint32
	BrightnessMax uint32
	Brightness    uint32

	ColorsMin uint32
	ColorsMax uint32

	Direction Direction
	ColorMode ColorMode
	Colors    []Color
}

// SpeedRange returns the speed bounds when the mode has a speed setting.
func (m *Mode) SpeedRange() (min, max uint32, ok bool) {
	if !m.Flags.Has(FlagHasSpeed) {
		return 0, 0, false
	}
	return m.SpeedMin, m.SpeedMax, true
}

// BrightnessRange returns the brightness bounds when the mode has a
// brightness setting.
func (m *Mode) BrightnessRange() (min, max uint32, ok bool) {
	if !m.Flags.Has(FlagHasBrightness) {
		return 0, 0, false
	}
	return m.BrightnessMin, m.BrightnessMax, true
}

// Directions lists the directions the mode accepts.
func (m *Mode) Directions() []Direction {
	var out []Direction
	if m.Flags.Has(FlagHasDirectionLR) {
		out = append(out, DirectionLeft, DirectionRight)
	}
	if m.Flags.Has(FlagHasDirectionUD) {
		out = append(out, DirectionUp, DirectionDown)
	}
	if m.Flags.Has(FlagHasDirectionHV) {
		out = append(out, DirectionHorizontal, DirectionVertical)
	}
	return out
}

// Clone returns a deep copy, so callers can tweak a mode before sending it.
func (m *Mode) Clone() *Mode {
	c := *m
	if m.Colors != nil {
		c.Colors = append([]Color(nil), m.Colors...)
	}
	return &c
}

func (m *Mode) validate() error {
	if m.ColorMode == ColorModeNone && len(m.Colors) != 0 {
		return wire.Errorf("mode", wire.ErrInvariant, "%q has color mode none but %d colors", m.Name, len(m.Colors))
	}
	return nil
}

func writeMode(w *wire.Writer, m *Mode, version uint32) {
	w.WriteString(m.Name)
	w.WriteInt32(m.Value)
	w.WriteUint32(uint32(m.Flags))
	w.WriteUint32(m.SpeedMin)
	w.WriteUint32(m.SpeedMax)
	if version >= 3 {
		w.WriteUint32(m.BrightnessMin)
		w.WriteUint32(m.BrightnessMax)
	}
	w.WriteUint32(m.ColorsMin)
	w.WriteUint32(m.ColorsMax)
	w.WriteUint32(m.Speed)
	if version >= 3 {
		w.WriteUint32(m.Brightness)
	}
	w.WriteUint32(uint32(m.Direction))
	w.WriteUint32(uint32(m.ColorMode))
	w.WriteColors(m.Colors)
}

func readMode(r *wire.Reader, index int, version uint32) *Mode {
	m := &Mode{Index: index}
	m.Name = r.ReadString()
	m.Value = r.ReadInt32()
	m.Flags = ModeFlags(r.ReadUint32())
	m.SpeedMin = r.ReadUint32()
	m.SpeedMax = r.ReadUint32()
	if version >= 3 {
		m.BrightnessMin = r.ReadUint32()
		m.BrightnessMax = r.ReadUint32()
	}
	m.ColorsMin = r.ReadUint32()
	m.ColorsMax = r.ReadUint32()
	m.Speed = r.ReadUint32()
	if version >= 3 {
		m.Brightness = r.ReadUint32()
	}
	m.Direction = Direction(r.ReadUint32())
	m.ColorMode = ColorMode(r.ReadUint32())
	m.Colors = r.ReadColors()
	if r.Err() != nil {
		return nil
	}
	if err := m.validate(); err != nil {
		r.Fail(err)
		return nil
	}
	return m
}

// EncodeMode encodes m for the given protocol version.
func EncodeMode(m *Mode, version uint32) ([]byte, error) {
	w := wire.NewWriter()
	writeMode(w, m, version)
	return w.Bytes(), w.Err()
}

// DecodeMode decodes a single mode occupying all of b.
func DecodeMode(b []byte, version uint32) (*Mode, error) {
	r := wire.NewReader(b)
	m := readMode(r, 0, version)
	if err := r.Done(); err != nil {
		return nil, err
	}
	return m, nil
}
