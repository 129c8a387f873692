package wire

import "fmt"

// ColorSize is the encoded size of one color.
const ColorSize = 4

// Color is a 24-bit RGB value.
type Color struct {
	R, G, B uint8
}

// RGB builds a Color.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}

// Hex returns the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c Color) String() string {
	return c.Hex()
}

// Fill returns n copies of c.
func Fill(c Color, n int) []Color {
	colors := make([]Color, n)
	for i := range colors {
		colors[i] = c
	}
	return colors
}
