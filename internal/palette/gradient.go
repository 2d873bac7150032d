package palette

import (
	"fmt"
	"strings"
)

// DefaultAngle draws the gradient top to bottom.
const DefaultAngle = 180

// Stop is a color at a position in [0, 1].
type Stop struct {
	Color    RGB     `json:"color"`
	Position float64 `json:"position"`
}

// Gradient is a linear gradient descriptor.
type Gradient struct {
	Angle int    `json:"angle"`
	Stops []Stop `json:"stops"`
}

// NewGradient lays colors out in order. The first color is held solid over the first 1/n of the gradient
// before fading, so it covers the widest band; the others are spaced evenly over the remainder.
//
// Returns nil for an empty palette.
func NewGradient(colors []RGB) *Gradient {
	if len(colors) == 0 {
		return nil
	}

	g := &Gradient{Angle: DefaultAngle}
	if len(colors) == 1 {
		g.Stops = []Stop{{Color: colors[0], Position: 0}, {Color: colors[0], Position: 1}}
		return g
	}

	n := len(colors)
	hold := 1 / float64(n)
	g.Stops = append(g.Stops, Stop{Color: colors[0], Position: 0}, Stop{Color: colors[0], Position: hold})
	for i := 1; i < n; i++ {
		pos := hold + (1-hold)*float64(i)/float64(n-1)
		if i == n-1 {
			pos = 1
		}
		g.Stops = append(g.Stops, Stop{Color: colors[i], Position: pos})
	}
	return g
}

// Colors returns the distinct palette colors in gradient order.
func (g *Gradient) Colors() []RGB {
	var out []RGB
	for i, s := range g.Stops {
		if i > 0 && g.Stops[i-1].Color == s.Color {
			continue
		}
		out = append(out, s.Color)
	}
	return out
}

// CSS renders the gradient as a CSS linear-gradient value.
func (g *Gradient) CSS() string {
	parts := make([]string, 0, len(g.Stops)+1)
	parts = append(parts, fmt.Sprintf("%ddeg", g.Angle))
	for _, s := range g.Stops {
		parts = append(parts, fmt.Sprintf("%s %s%%", s.Color.Hex(), trimFloat(s.Position*100)))
	}
	return "linear-gradient(" + strings.Join(parts, ", ") + ")"
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// At samples the gradient at t in [0, 1], blending neighboring stops in Lab space.
func (g *Gradient) At(t float64) RGB {
	t = min(1, max(0, t))
	for i := 1; i < len(g.Stops); i++ {
		a, b := g.Stops[i-1], g.Stops[i]
		if t > b.Position {
			continue
		}
		span := b.Position - a.Position
		if span <= 0 {
			return b.Color
		}
		return fromColorful(a.Color.Color().BlendLab(b.Color.Color(), (t-a.Position)/span))
	}
	return g.Stops[len(g.Stops)-1].Color
}

// Blend samples n evenly spaced colors from start to end.
func (g *Gradient) Blend(n int) []RGB {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []RGB{g.At(0)}
	}

	out := make([]RGB, n)
	for i := range out {
		out[i] = g.At(float64(i) / float64(n-1))
	}
	return out
}
