package device

import (
	"fmt"
	"strings"

	"github.com/ngerakines/rgbops/wire"
)

// Color is re-exported so model users need not import wire.
type Color = wire.Color

// Type is the kind of hardware a controller drives.
type Type int32

const (
	TypeMotherboard Type = iota
	TypeDRAM
	TypeGPU
	TypeCooler
	TypeLEDStrip
	TypeKeyboard
	TypeMouse
	TypeMouseMat
	TypeHeadset
	TypeHeadsetStand
	TypeGamepad
	TypeLight
	TypeSpeaker
	TypeVirtual
	TypeStorage
	TypeCase
	TypeMicrophone
	TypeAccessory
	TypeKeypad
	TypeUnknown
)

var typeNames = [...]string{
	"motherboard", "dram", "gpu", "cooler", "ledstrip", "keyboard", "mouse",
	"mousemat", "headset", "headset stand", "gamepad", "light", "speaker",
	"virtual", "storage", "case", "microphone", "accessory", "keypad", "unknown",
}

func (t Type) String() string {
	if t >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", int32(t))
}

// ZoneType describes the physical arrangement of a zone.
type ZoneType int32

const (
	ZoneSingle ZoneType = iota
	ZoneLinear
	ZoneMatrix
)

func (z ZoneType) String() string {
	switch z {
	case ZoneSingle:
		return "single"
	case ZoneLinear:
		return "linear"
	case ZoneMatrix:
		return "matrix"
	default:
		return fmt.Sprintf("zonetype(%d)", int32(z))
	}
}

func (z ZoneType) valid() bool {
	return z >= ZoneSingle && z <= ZoneMatrix
}

// ColorMode tells how a mode takes its colors.
type ColorMode uint32

const (
	ColorModeNone ColorMode = iota
	ColorModePerLED
	ColorModeSpecific
	ColorModeRandom
)

func (c ColorMode) String() string {
	switch c {
	case ColorModeNone:
		return "none"
	case ColorModePerLED:
		return "per-led"
	case ColorModeSpecific:
		return "mode-specific"
	case ColorModeRandom:
		return "random"
	default:
		return fmt.Sprintf("colormode(%d)", uint32(c))
	}
}

// Direction of an animated mode.
type Direction uint32

const (
	DirectionLeft Direction = iota
	DirectionRight
	DirectionUp
	DirectionDown
	DirectionHorizontal
	DirectionVertical
)

func (d Direction) String() string {
	switch d {
	case DirectionLeft:
		return "left"
	case DirectionRight:
		return "right"
	case DirectionUp:
		return "up"
	case DirectionDown:
		return "down"
	case DirectionHorizontal:
		return "horizontal"
	case DirectionVertical:
		return "vertical"
	default:
		return fmt.Sprintf("direction(%d)", uint32(d))
	}
}

// ModeFlags is the capability bitset of a mode.
type ModeFlags uint32

const (
	FlagHasSpeed ModeFlags = 1 << iota
	FlagHasDirectionLR
	FlagHasDirectionUD
	FlagHasDirectionHV
	FlagHasBrightness
	FlagHasPerLEDColor
	FlagHasModeSpecificColor
	FlagHasRandomColor
	FlagManualSave
	FlagAutomaticSave

	FlagHasDirection = FlagHasDirectionLR | FlagHasDirectionUD | FlagHasDirectionHV
)

var flagNames = []struct {
	flag ModeFlags
	name string
}{
	{FlagHasSpeed, "speed"},
	{FlagHasDirectionLR, "direction-lr"},
	{FlagHasDirectionUD, "direction-ud"},
	{FlagHasDirectionHV, "direction-hv"},
	{FlagHasBrightness, "brightness"},
	{FlagHasPerLEDColor, "per-led-color"},
	{FlagHasModeSpecificColor, "mode-specific-color"},
	{FlagHasRandomColor, "random-color"},
	{FlagManualSave, "manual-save"},
	{FlagAutomaticSave, "automatic-save"},
}

// Has reports whether any bit of flag is set.
func (f ModeFlags) Has(flag ModeFlags) bool {
	return f&flag != 0
}

func (f ModeFlags) String() string {
	var parts []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			parts = append(parts, fn.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}
