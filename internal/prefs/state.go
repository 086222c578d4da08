package prefs

import "github.com/phinze/halo/internal/model"

// Load reads the persisted appearance into a validated state. Missing keys
// fall back to defaults. The overlay starts enabled in ring mode.
func Load(s Store) model.OverlayState {
	d := model.Default()
	st := model.OverlayState{
		Radius:      s.GetReal(KeyRadius, d.Radius),
		BorderWidth: s.GetReal(KeyBorderWidth, d.BorderWidth),
		Stroke: model.Color{
			R: s.GetReal(KeyStrokeR, d.Stroke.R),
			G: s.GetReal(KeyStrokeG, d.Stroke.G),
			B: s.GetReal(KeyStrokeB, d.Stroke.B),
			A: s.GetReal(KeyStrokeA, d.Stroke.A),
		},
		FillTransparencyPct: s.GetReal(KeyTransparency, d.FillTransparencyPct),
		Language:            model.Language(s.GetInt(KeyLang, int(d.Language))),
		OverlayEnabled:      true,
		DisplayMode:         model.ModeRing,
	}
	st.Validate()
	return st
}

// Save writes the persisted fields of st. It does not flush.
func Save(s Store, st model.OverlayState) {
	s.SetReal(KeyRadius, st.Radius)
	s.SetReal(KeyBorderWidth, st.BorderWidth)
	s.SetReal(KeyStrokeR, st.Stroke.R)
	s.SetReal(KeyStrokeG, st.Stroke.G)
	s.SetReal(KeyStrokeB, st.Stroke.B)
	s.SetReal(KeyStrokeA, st.Stroke.A)
	s.SetReal(KeyTransparency, st.FillTransparencyPct)
	s.SetInt(KeyLang, int(st.Language))
}

// Apply copies the persisted fields of src onto dst, keeping dst's runtime
// fields (overlay enablement and display mode).
func Apply(dst *model.OverlayState, src model.OverlayState) {
	dst.Radius = src.Radius
	dst.BorderWidth = src.BorderWidth
	dst.Stroke = src.Stroke
	dst.FillTransparencyPct = src.FillTransparencyPct
	dst.Language = src.Language
	dst.Validate()
}
