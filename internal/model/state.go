// Package model holds the overlay state and its validation rules.
package model

import "sync/atomic"

// Value ranges enforced by Validate.
const (
	MinRadius       = 5.0
	MaxRadius       = 200.0
	MinBorderWidth  = 1.0
	MaxBorderWidth  = 20.0
	MinTransparency = 0.0
	MaxTransparency = 100.0
)

// Defaults for a fresh install.
const (
	DefaultRadius       = 38.5 / 2
	DefaultBorderWidth  = 3.0
	DefaultTransparency = 100.0
)

// DefaultStroke is opaque white.
var DefaultStroke = Color{R: 1, G: 1, B: 1, A: 1}

// DisplayMode selects what the renderer draws at the cursor.
type DisplayMode int32

const (
	ModeRing DisplayMode = iota
	ModeLeftPressed
	ModeRightPressed
)

// String returns the mode name.
func (m DisplayMode) String() string {
	switch m {
	case ModeRing:
		return "ring"
	case ModeLeftPressed:
		return "left"
	case ModeRightPressed:
		return "right"
	default:
		return "unknown"
	}
}

// Language selects UI strings and the pressed-button glyphs.
type Language int

const (
	LangEN Language = iota
	LangES
)

// String returns the two-letter language code.
func (l Language) String() string {
	if l == LangES {
		return "es"
	}
	return "en"
}

// OverlayState is the complete visual configuration of the highlight.
// It is a plain value: copies are independent and == compares all fields.
type OverlayState struct {
	Radius              float64
	BorderWidth         float64
	Stroke              Color
	FillTransparencyPct float64
	Language            Language
	OverlayEnabled      bool
	DisplayMode         DisplayMode
}

// Default returns the state used when no preferences exist.
func Default() OverlayState {
	return OverlayState{
		Radius:              DefaultRadius,
		BorderWidth:         DefaultBorderWidth,
		Stroke:              DefaultStroke,
		FillTransparencyPct: DefaultTransparency,
		Language:            LangEN,
		OverlayEnabled:      true,
		DisplayMode:         ModeRing,
	}
}

// Validate clamps every numeric field into its allowed range and resets
// unknown enum values.
func (s *OverlayState) Validate() {
	s.Radius = clamp(s.Radius, MinRadius, MaxRadius)
	s.BorderWidth = clamp(s.BorderWidth, MinBorderWidth, MaxBorderWidth)
	s.FillTransparencyPct = clamp(s.FillTransparencyPct, MinTransparency, MaxTransparency)
	s.Stroke = s.Stroke.Clamped()
	if s.Language != LangEN && s.Language != LangES {
		s.Language = LangEN
	}
	if s.DisplayMode < ModeRing || s.DisplayMode > ModeRightPressed {
		s.DisplayMode = ModeRing
	}
}

// FillAlpha is the alpha used for the disc fill under the stroke.
func (s OverlayState) FillAlpha() float64 {
	return s.Stroke.A * (1 - s.FillTransparencyPct/100)
}

// Glyph returns the letter drawn for the current display mode, or 0 in
// ring mode.
func (s OverlayState) Glyph() rune {
	switch s.DisplayMode {
	case ModeLeftPressed:
		if s.Language == LangES {
			return 'I'
		}
		return 'L'
	case ModeRightPressed:
		if s.Language == LangES {
			return 'D'
		}
		return 'R'
	default:
		return 0
	}
}

// ModeCell holds the display mode written by the mouse observer from its
// own goroutine and read by the render loop.
type ModeCell struct {
	v atomic.Int32
}

// Load returns the current mode.
func (c *ModeCell) Load() DisplayMode {
	return DisplayMode(c.v.Load())
}

// Store sets the mode and reports whether it changed.
func (c *ModeCell) Store(m DisplayMode) bool {
	return DisplayMode(c.v.Swap(int32(m))) != m
}

func clamp(v, lo, hi float64) float64 {
	if v != v { // NaN
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
