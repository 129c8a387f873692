package orgbtest

import (
	"fmt"

	"github.com/ngerakines/rgbops/device"
	"github.com/ngerakines/rgbops/wire"
)

// LedStrip returns a controller with one linear zone of n LEDs that may be
// resized between 1 and n. It offers Direct, Static and Off modes.
func LedStrip(name string, n int) *device.Controller {
	c := &device.Controller{
		Type:        device.TypeLEDStrip,
		Name:        name,
		Vendor:      "Generic",
		Description: name + " addressable strip",
		Location:    "HID: /dev/hidraw0",
		Modes: []*device.Mode{
			{Index: 0, Name: "Direct", Flags: device.FlagHasPerLEDColor, ColorMode: device.ColorModePerLED},
			{
				Index:     1,
				Name:      "Static",
				Value:     1,
				Flags:     device.FlagHasModeSpecificColor | device.FlagManualSave,
				ColorsMin: 1,
				ColorsMax: 1,
				ColorMode: device.ColorModeSpecific,
				Colors:    []device.Color{wire.RGB(255, 255, 255)},
			},
			{Index: 2, Name: "Off", Value: 2},
		},
		Zones: []*device.Zone{
			{Name: "Strip", Type: device.ZoneLinear, LEDsMin: 1, LEDsMax: uint32(n), LEDCount: uint32(n)},
		},
	}
	for i := 0; i < n; i++ {
		c.LEDs = append(c.LEDs, device.LED{Name: fmt.Sprintf("LED %d", i+1)})
		c.Colors = append(c.Colors, device.Color{})
	}
	return c
}

// Keyboard returns a controller with a fixed 2x2 matrix zone and a
// resizable linear underglow zone, and one breathing mode with speed,
// brightness and a direction.
func Keyboard(name string) *device.Controller {
	c := &device.Controller{
		Type:       device.TypeKeyboard,
		Name:       name,
		Vendor:     "Keychron",
		Serial:     "KB-0001",
		Location:   "HID: /dev/hidraw3",
		ActiveMode: 0,
		Modes: []*device.Mode{
			{Index: 0, Name: "Direct", Flags: device.FlagHasPerLEDColor, ColorMode: device.ColorModePerLED},
			{
				Index:         1,
				Name:          "Breathing",
				Value:         3,
				Flags:         device.FlagHasSpeed | device.FlagHasBrightness | device.FlagHasDirectionLR | device.FlagHasModeSpecificColor | device.FlagManualSave,
				SpeedMin:      1,
				SpeedMax:      5,
				Speed:         3,
				BrightnessMax: 100,
				Brightness:    100,
				ColorsMin:     1,
				ColorsMax:     2,
				ColorMode:     device.ColorModeSpecific,
				Colors:        []device.Color{wire.RGB(0, 0, 255)},
			},
		},
		Zones: []*device.Zone{
			{
				Name:     "Keys",
				Type:     device.ZoneMatrix,
				LEDsMin:  4,
				LEDsMax:  4,
				LEDCount: 4,
				Matrix:   &device.MatrixMap{Height: 2, Width: 2, Cells: []uint32{0, 1, 2, 3}},
			},
			{Index: 1, Name: "Underglow", Type: device.ZoneLinear, LEDsMin: 0, LEDsMax: 8, LEDCount: 2},
		},
	}
	for _, n := range []string{"Key: Q", "Key: W", "Key: A", "Key: S", "Glow 1", "Glow 2"} {
		c.LEDs = append(c.LEDs, device.LED{Name: n})
		c.Colors = append(c.Colors, device.Color{})
	}
	return c
}
