package client

import (
	"github.com/ngerakines/rgbops/device"
)

// ControllerInfo is a JSON friendly summary of a controller snapshot.
type ControllerInfo struct {
	Index       uint32     `json:"index"`
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	Vendor      string     `json:"vendor,omitempty"`
	Description string     `json:"description,omitempty"`
	Version     string     `json:"version,omitempty"`
	Serial      string     `json:"serial,omitempty"`
	Location    string     `json:"location,omitempty"`
	ActiveMode  string     `json:"activeMode,omitempty"`
	Modes       []ModeInfo `json:"modes"`
	Zones       []ZoneInfo `json:"zones"`
	LEDCount    int        `json:"ledCount"`
}

type ModeInfo struct {
	Index     int      `json:"index"`
	Name      string   `json:"name"`
	Flags     string   `json:"flags,omitempty"`
	ColorMode string   `json:"colorMode"`
	Colors    []string `json:"colors,omitempty"`
}

type ZoneInfo struct {
	Index    int      `json:"index"`
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	LEDsMin  uint32   `json:"ledsMin"`
	LEDsMax  uint32   `json:"ledsMax"`
	LEDCount uint32   `json:"ledCount"`
	Matrix   []int    `json:"matrix,omitempty"`
	Colors   []string `json:"colors,omitempty"`
}

// Summarize flattens a controller for display.
func Summarize(c *device.Controller) ControllerInfo {
	info := ControllerInfo{
		Index:       c.Index,
		Name:        c.Name,
		Type:        c.Type.String(),
		Vendor:      c.Vendor,
		Description: c.Description,
		Version:     c.Version,
		Serial:      c.Serial,
		Location:    c.Location,
		Modes:       []ModeInfo{},
		Zones:       []ZoneInfo{},
		LEDCount:    len(c.LEDs),
	}
	if active := c.Active(); active != nil {
		info.ActiveMode = active.Name
	}
	for _, m := range c.Modes {
		info.Modes = append(info.Modes, ModeInfo{
			Index:     m.Index,
			Name:      m.Name,
			Flags:     m.Flags.String(),
			ColorMode: m.ColorMode.String(),
			Colors:    hexColors(m.Colors),
		})
	}
	for _, z := range c.Zones {
		zi := ZoneInfo{
			Index:    z.Index,
			Name:     z.Name,
			Type:     z.Type.String(),
			LEDsMin:  z.LEDsMin,
			LEDsMax:  z.LEDsMax,
			LEDCount: z.LEDCount,
			Colors:   hexColors(c.ZoneColors(z.Index)),
		}
		if z.Matrix != nil {
			zi.Matrix = []int{int(z.Matrix.Height), int(z.Matrix.Width)}
		}
		info.Zones = append(info.Zones, zi)
	}
	return info
}

func hexColors(colors []device.Color) []string {
	if len(colors) == 0 {
		return nil
	}
	out := make([]string, len(colors))
	for i, c := range colors {
		out[i] = c.Hex()
	}
	return out
}
