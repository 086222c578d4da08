package model

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// Color is a non-premultiplied RGBA color with components in [0,1].
type Color struct {
	R, G, B, A float64
}

// Clamped returns c with every component forced into [0,1].
func (c Color) Clamped() Color {
	return Color{
		R: clamp(c.R, 0, 1),
		G: clamp(c.G, 0, 1),
		B: clamp(c.B, 0, 1),
		A: clamp(c.A, 0, 1),
	}
}

// WithAlpha returns c with its alpha replaced.
func (c Color) WithAlpha(a float64) Color {
	c.A = a
	return c
}

// NRGBA converts to an 8-bit non-premultiplied color.
func (c Color) NRGBA() color.NRGBA {
	c = c.Clamped()
	return color.NRGBA{
		R: to8(c.R),
		G: to8(c.G),
		B: to8(c.B),
		A: to8(c.A),
	}
}

// FormatHex renders c as #RRGGBBAA.
func FormatHex(c Color) string {
	n := c.NRGBA()
	return fmt.Sprintf("#%02X%02X%02X%02X", n.R, n.G, n.B, n.A)
}

// ParseHex parses #RGB, #RGBA, #RRGGBB or #RRGGBBAA (the # is optional).
// Six- and three-digit forms are fully opaque.
func ParseHex(s string) (Color, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(s), "#")

	switch len(raw) {
	case 3, 4:
		var b strings.Builder
		for _, r := range raw {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		raw = b.String()
	case 6, 8:
	default:
		return Color{}, fmt.Errorf("invalid hex color %q: want 3, 4, 6 or 8 digits", s)
	}
	if len(raw) == 6 {
		raw += "ff"
	}

	v, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}

	return Color{
		R: float64(v>>24&0xff) / 255,
		G: float64(v>>16&0xff) / 255,
		B: float64(v>>8&0xff) / 255,
		A: float64(v&0xff) / 255,
	}, nil
}

func to8(v float64) uint8 {
	return uint8(math.Round(v * 255))
}
