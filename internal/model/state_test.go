package model

import (
	"math"
	"testing"
)

func TestDefault(t *testing.T) {
	s := Default()

	if s.Radius != 19.25 {
		t.Errorf("expected radius 19.25, got %f", s.Radius)
	}
	if s.BorderWidth != 3 {
		t.Errorf("expected border width 3, got %f", s.BorderWidth)
	}
	if s.Stroke != (Color{1, 1, 1, 1}) {
		t.Errorf("expected opaque white stroke, got %+v", s.Stroke)
	}
	if s.FillTransparencyPct != 100 {
		t.Errorf("expected ring-only fill, got %f", s.FillTransparencyPct)
	}
	if !s.OverlayEnabled {
		t.Error("expected overlay enabled by default")
	}
	if s.DisplayMode != ModeRing {
		t.Errorf("expected ring mode, got %v", s.DisplayMode)
	}

	before := s
	s.Validate()
	if s != before {
		t.Errorf("defaults changed under Validate: %+v -> %+v", before, s)
	}
}

func TestValidateClamps(t *testing.T) {
	tests := []struct {
		name string
		in   OverlayState
		want OverlayState
	}{
		{
			name: "below minimum",
			in: OverlayState{
				Radius: 0, BorderWidth: -4, FillTransparencyPct: -10,
				Stroke: Color{-1, -0.5, 0, -2},
			},
			want: OverlayState{
				Radius: MinRadius, BorderWidth: MinBorderWidth, FillTransparencyPct: 0,
				Stroke: Color{0, 0, 0, 0},
			},
		},
		{
			name: "above maximum",
			in: OverlayState{
				Radius: 1000, BorderWidth: 99, FillTransparencyPct: 250,
				Stroke: Color{2, 1.5, 1, 7},
			},
			want: OverlayState{
				Radius: MaxRadius, BorderWidth: MaxBorderWidth, FillTransparencyPct: 100,
				Stroke: Color{1, 1, 1, 1},
			},
		},
		{
			name: "NaN goes to the lower bound",
			in: OverlayState{
				Radius: math.NaN(), BorderWidth: math.NaN(), FillTransparencyPct: math.NaN(),
				Stroke: Color{math.NaN(), 0.5, 0.5, 0.5},
			},
			want: OverlayState{
				Radius: MinRadius, BorderWidth: MinBorderWidth, FillTransparencyPct: 0,
				Stroke: Color{0, 0.5, 0.5, 0.5},
			},
		},
		{
			name: "unknown enums reset",
			in: OverlayState{
				Radius: 50, BorderWidth: 2, FillTransparencyPct: 40,
				Language: Language(7), DisplayMode: DisplayMode(9),
			},
			want: OverlayState{
				Radius: 50, BorderWidth: 2, FillTransparencyPct: 40,
				Language: LangEN, DisplayMode: ModeRing,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in
			got.Validate()
			if got != tt.want {
				t.Errorf("Validate() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFillAlpha(t *testing.T) {
	tests := []struct {
		strokeA, transparency, want float64
	}{
		{1, 0, 1},
		{1, 100, 0},
		{1, 50, 0.5},
		{0.5, 50, 0.25},
		{128.0 / 255, 25, 128.0 / 255 * 0.75},
	}

	for _, tt := range tests {
		s := Default()
		s.Stroke.A = tt.strokeA
		s.FillTransparencyPct = tt.transparency
		if got := s.FillAlpha(); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("FillAlpha(a=%v, t=%v) = %v, want %v", tt.strokeA, tt.transparency, got, tt.want)
		}
	}
}

func TestGlyph(t *testing.T) {
	tests := []struct {
		lang Language
		mode DisplayMode
		want rune
	}{
		{LangEN, ModeRing, 0},
		{LangEN, ModeLeftPressed, 'L'},
		{LangEN, ModeRightPressed, 'R'},
		{LangES, ModeLeftPressed, 'I'},
		{LangES, ModeRightPressed, 'D'},
		{LangES, ModeRing, 0},
	}

	for _, tt := range tests {
		s := Default()
		s.Language = tt.lang
		s.DisplayMode = tt.mode
		if got := s.Glyph(); got != tt.want {
			t.Errorf("Glyph(%v, %v) = %q, want %q", tt.lang, tt.mode, got, tt.want)
		}
	}
}

func TestModeCell(t *testing.T) {
	var c ModeCell

	if c.Load() != ModeRing {
		t.Fatalf("zero cell should be ring, got %v", c.Load())
	}
	if !c.Store(ModeLeftPressed) {
		t.Error("expected change reported for ring -> left")
	}
	if c.Store(ModeLeftPressed) {
		t.Error("expected no change reported for left -> left")
	}
	if c.Load() != ModeLeftPressed {
		t.Errorf("expected left, got %v", c.Load())
	}
}
