package device

import (
	"strings"

	"github.com/ngerakines/rgbops/wire"
)

const (
	modeMinSize = 40
	zoneMinSize = 20
	ledMinSize  = 6
)

// Controller is an immutable snapshot of one device as reported by the
// server. Index is the device index the snapshot was requested with and is
// stable only for the lifetime of a connection.
type Controller struct {
	Index       uint32
	Type        Type
	Name        string
	Vendor      string // protocol 1+
	Description string
	Version     string
	Serial      string
	Location    string
	ActiveMode  int32
	Modes       []*Mode
	Zones       []*Zone
	LEDs        []LED
	Colors      []Color
	LEDAltNames []string // protocol 5+
	Flags       uint32   // protocol 5+
}

// Zone returns zone i or nil.
func (c *Controller) Zone(i int) *Zone {
	if i < 0 || i >= len(c.Zones) {
		return nil
	}
	return c.Zones[i]
}

// ZoneOffset returns the index of the first LED of zone i within the
// controller's LED list.
func (c *Controller) ZoneOffset(i int) (int, bool) {
	if i < 0 || i >= len(c.Zones) {
		return 0, false
	}
	off := 0
	for _, z := range c.Zones[:i] {
		off += int(z.LEDCount)
	}
	return off, true
}

// ZoneColors returns the current colors of zone i.
func (c *Controller) ZoneColors(i int) []Color {
	off, ok := c.ZoneOffset(i)
	if !ok {
		return nil
	}
	end := off + int(c.Zones[i].LEDCount)
	if end > len(c.Colors) {
		return nil
	}
	return c.Colors[off:end]
}

// Mode returns mode i or nil.
func (c *Controller) Mode(i int) *Mode {
	if i < 0 || i >= len(c.Modes) {
		return nil
	}
	return c.Modes[i]
}

// Active returns the active mode, if the index points at one.
func (c *Controller) Active() *Mode {
	return c.Mode(int(c.ActiveMode))
}

// FindMode returns the first mode matching one of names, trying names in
// order. Matching ignores case.
func (c *Controller) FindMode(names ...string) *Mode {
	for _, name := range names {
		for _, m := range c.Modes {
			if strings.EqualFold(m.Name, name) {
				return m
			}
		}
	}
	return nil
}

// FindZone returns the first zone with the given name, ignoring case.
func (c *Controller) FindZone(name string) *Zone {
	for _, z := range c.Zones {
		if strings.EqualFold(z.Name, name) {
			return z
		}
	}
	return nil
}

// Validate checks the structural invariants of a snapshot.
func (c *Controller) Validate() error {
	for _, m := range c.Modes {
		if err := m.validate(); err != nil {
			return err
		}
	}
	var total uint64
	for _, z := range c.Zones {
		if err := z.validate(); err != nil {
			return err
		}
		total += uint64(z.LEDCount)
	}
	if total != uint64(len(c.LEDs)) {
		return wire.Errorf("controller", wire.ErrInvariant, "%q has %d LEDs, zones account for %d", c.Name, len(c.LEDs), total)
	}
	return nil
}

// EncodeController encodes a controller data block, including its leading
// data_size, for the given protocol version.
func EncodeController(c *Controller, version uint32) ([]byte, error) {
	w := wire.NewWriter()
	w.WriteUint32(0)
	w.WriteInt32(int32(c.Type))
	w.WriteString(c.Name)
	if version >= 1 {
		w.WriteString(c.Vendor)
	}
	w.WriteString(c.Description)
	w.WriteString(c.Version)
	w.WriteString(c.Serial)
	w.WriteString(c.Location)

	w.WriteCount(len(c.Modes))
	w.WriteInt32(c.ActiveMode)
	for _, m := range c.Modes {
		writeMode(w, m, version)
	}

	w.WriteCount(len(c.Zones))
	for _, z := range c.Zones {
		writeZone(w, z, version)
	}

	w.WriteCount(len(c.LEDs))
	for _, l := range c.LEDs {
		writeLED(w, l)
	}
	w.WriteColors(c.Colors)

	if version >= 5 {
		w.WriteStrings(c.LEDAltNames)
		w.WriteUint32(c.Flags)
	}
	w.PatchUint32(0, uint32(w.Len()))
	return w.Bytes(), w.Err()
}

// DecodeController decodes a controller data block. The leading data_size
// must cover exactly the payload. Index is left zero for the caller to set.
func DecodeController(b []byte, version uint32) (*Controller, error) {
	r, err := sizedReader(b, "controller")
	if err != nil {
		return nil, err
	}

	c := &Controller{}
	c.Type = Type(r.ReadInt32())
	c.Name = r.ReadString()
	if version >= 1 {
		c.Vendor = r.ReadString()
	}
	c.Description = r.ReadString()
	c.Version = r.ReadString()
	c.Serial = r.ReadString()
	c.Location = r.ReadString()

	numModes := int(r.ReadUint16())
	c.ActiveMode = r.ReadInt32()
	if r.Err() == nil && numModes > r.Remaining()/modeMinSize {
		r.Fail(wire.Errorf("controller", wire.ErrTruncated, "%d modes in %d bytes", numModes, r.Remaining()))
	}
	for i := 0; i < numModes && r.Err() == nil; i++ {
		c.Modes = append(c.Modes, readMode(r, i, version))
	}

	n := r.ReadCount(zoneMinSize)
	for i := 0; i < n && r.Err() == nil; i++ {
		c.Zones = append(c.Zones, readZone(r, i, version))
	}

	n = r.ReadCount(ledMinSize)
	for i := 0; i < n && r.Err() == nil; i++ {
		c.LEDs = append(c.LEDs, readLED(r))
	}
	c.Colors = r.ReadColors()

	if version >= 5 {
		c.LEDAltNames = r.ReadStrings()
		c.Flags = r.ReadUint32()
	}
	if err := r.Done(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
