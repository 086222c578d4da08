package model

import (
	"math"
	"testing"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		in   string
		want Color
	}{
		{"#33669980", Color{51.0 / 255, 102.0 / 255, 153.0 / 255, 128.0 / 255}},
		{"33669980", Color{51.0 / 255, 102.0 / 255, 153.0 / 255, 128.0 / 255}},
		{"#336699", Color{51.0 / 255, 102.0 / 255, 153.0 / 255, 1}},
		{"  #ffFFff  ", Color{1, 1, 1, 1}},
		{"#f00", Color{1, 0, 0, 1}},
		{"#f008", Color{1, 0, 0, 136.0 / 255}},
	}

	for _, tt := range tests {
		got, err := ParseHex(tt.in)
		if err != nil {
			t.Errorf("ParseHex(%q) error: %v", tt.in, err)
			continue
		}
		if !closeColor(got, tt.want, 1e-9) {
			t.Errorf("ParseHex(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseHexRejects(t *testing.T) {
	for _, in := range []string{"", "#", "#12345", "#1234567", "#GGGGGG", "#123456789", "#+12345"} {
		if _, err := ParseHex(in); err == nil {
			t.Errorf("ParseHex(%q) expected error", in)
		}
	}
}

func TestFormatHex(t *testing.T) {
	c := Color{0.2, 0.4, 0.6, 128.0 / 255}
	if got := FormatHex(c); got != "#33669980" {
		t.Errorf("FormatHex = %q, want #33669980", got)
	}
	if got := FormatHex(Color{2, -1, 1, 1}); got != "#FF00FFFF" {
		t.Errorf("FormatHex clamps out of range, got %q", got)
	}
}

func TestHexRoundTrip(t *testing.T) {
	steps := []float64{0, 0.1, 0.2, 1.0 / 3, 0.5, 0.5019, 0.77, 0.999, 1}
	for _, r := range steps {
		for _, a := range steps {
			c := Color{R: r, G: 1 - r, B: a, A: a}
			back, err := ParseHex(FormatHex(c))
			if err != nil {
				t.Fatalf("round trip of %+v failed: %v", c, err)
			}
			if !closeColor(back, c, 1.0/255) {
				t.Errorf("round trip %+v -> %+v exceeds 1/255", c, back)
			}
		}
	}
}

func closeColor(a, b Color, eps float64) bool {
	return math.Abs(a.R-b.R) <= eps &&
		math.Abs(a.G-b.G) <= eps &&
		math.Abs(a.B-b.B) <= eps &&
		math.Abs(a.A-b.A) <= eps
}
