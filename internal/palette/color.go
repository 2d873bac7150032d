package palette

import (
	"cmp"
	"slices"

	"github.com/lucasb-eyer/go-colorful"
)

// RGB is an 8-bit color.
type RGB struct {
	R, G, B uint8
}

// Luminance returns 0.299R + 0.587G + 0.114B scaled to [0, 1].
func (c RGB) Luminance() float64 {
	return (0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)) / 255
}

// Color converts c to a [colorful.Color].
func (c RGB) Color() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

// Hex renders c as #rrggbb.
func (c RGB) Hex() string {
	return c.Color().Hex()
}

func fromColorful(c colorful.Color) RGB {
	r, g, b := c.Clamped().RGB255()
	return RGB{R: r, G: g, B: b}
}

// Darkest drops colors whose luminance is at or above threshold and sorts the rest darkest first.
//
// When fewer than minCount colors survive, every color is kept instead. The input is not modified.
func Darkest(colors []RGB, threshold float64, minCount int) []RGB {
	kept := make([]RGB, 0, len(colors))
	for _, c := range colors {
		if c.Luminance() < threshold {
			kept = append(kept, c)
		}
	}

	if len(kept) < minCount {
		kept = append(kept[:0], colors...)
	}

	slices.SortStableFunc(kept, func(a, b RGB) int {
		return cmp.Compare(a.Luminance(), b.Luminance())
	})
	return kept
}
