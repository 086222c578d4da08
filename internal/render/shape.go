package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/phinze/halo/internal/model"
)

// aaPad is the margin around a shape for anti-aliased edges.
const aaPad = 2

// Style is the resolved paint for one highlight.
type Style struct {
	Radius float64
	Border float64
	Stroke color.NRGBA
	Fill   color.NRGBA
	Glyph  rune
}

// StyleFor resolves st at the given DPI scale.
func StyleFor(st model.OverlayState, scale float64) Style {
	if scale <= 0 {
		scale = 1
	}
	return Style{
		Radius: st.Radius * scale,
		Border: st.BorderWidth * scale,
		Stroke: st.Stroke.NRGBA(),
		Fill:   st.Stroke.WithAlpha(st.FillAlpha()).NRGBA(),
		Glyph:  st.Glyph(),
	}
}

// Extent returns the half-width and half-height of the box the shape
// occupies around its center.
func (s Style) Extent() (hx, hy int, err error) {
	pad := s.Border/2 + aaPad
	if s.Glyph == 0 {
		e := int(math.Ceil(s.Radius + pad))
		return e, e, nil
	}
	g, err := loadGlyph(s.Glyph)
	if err != nil {
		return 0, 0, err
	}
	k := s.glyphScale(g)
	hx = int(math.Ceil(g.width*k/2 + pad))
	hy = int(math.Ceil(g.height*k/2 + pad))
	return hx, hy, nil
}

// glyphHeight is the target outline height: one and a half diameters.
func (s Style) glyphHeight() float64 {
	return 3 * s.Radius
}

func (s Style) glyphScale(g *glyph) float64 {
	return s.glyphHeight() / g.height
}

// Draw paints the shape centered at c into dst: the fill first, then the
// stroke over it. dst is expected to be transparent where it will draw.
func (s Style) Draw(dst *image.RGBA, c image.Point) error {
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	scanner := rasterx.NewScannerGV(w, h, dst, b)
	cx, cy := float64(c.X-b.Min.X), float64(c.Y-b.Min.Y)

	path := func(a rasterx.Adder) {
		rasterx.AddCircle(cx, cy, s.Radius, a)
	}
	if s.Glyph != 0 {
		g, err := loadGlyph(s.Glyph)
		if err != nil {
			return err
		}
		k := s.glyphScale(g)
		path = func(a rasterx.Adder) {
			g.addTo(a, k, cx, cy)
		}
	}

	if s.Fill.A > 0 {
		filler := rasterx.NewFiller(w, h, scanner)
		filler.SetWinding(true)
		filler.SetColor(s.Fill)
		path(filler)
		filler.Draw()
		filler.Clear()
	}

	if s.Stroke.A > 0 && s.Border > 0 {
		stroker := rasterx.NewStroker(w, h, scanner)
		stroker.SetStroke(toFixed(s.Border), fixed.I(4), rasterx.RoundCap, rasterx.RoundCap, rasterx.RoundGap, rasterx.Round)
		stroker.SetColor(s.Stroke)
		path(stroker)
		stroker.Draw()
	}
	return nil
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}

func toPoint(x, y float64) fixed.Point26_6 {
	return fixed.Point26_6{X: toFixed(x), Y: toFixed(y)}
}

// glyph is an outline in font units, Y down, centered on its bounding box.
type glyph struct {
	segs   sfnt.Segments
	midX   float64
	midY   float64
	width  float64
	height float64
}

// addTo emits the outline scaled by k and centered at (cx, cy).
func (g *glyph) addTo(a rasterx.Adder, k, cx, cy float64) {
	pt := func(p fixed.Point26_6) fixed.Point26_6 {
		x := (float64(p.X)/64-g.midX)*k + cx
		y := (float64(p.Y)/64-g.midY)*k + cy
		return toPoint(x, y)
	}

	open := false
	for _, seg := range g.segs {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			if open {
				a.Stop(true)
			}
			a.Start(pt(seg.Args[0]))
			open = true
		case sfnt.SegmentOpLineTo:
			a.Line(pt(seg.Args[0]))
		case sfnt.SegmentOpQuadTo:
			a.QuadBezier(pt(seg.Args[0]), pt(seg.Args[1]))
		case sfnt.SegmentOpCubeTo:
			a.CubeBezier(pt(seg.Args[0]), pt(seg.Args[1]), pt(seg.Args[2]))
		}
	}
	if open {
		a.Stop(true)
	}
}

var (
	fontOnce sync.Once
	boldFont *sfnt.Font
	fontErr  error

	glyphMu    sync.Mutex
	glyphCache = map[rune]*glyph{}
)

func loadGlyph(r rune) (*glyph, error) {
	fontOnce.Do(func() {
		boldFont, fontErr = sfnt.Parse(gobold.TTF)
	})
	if fontErr != nil {
		return nil, fmt.Errorf("parse bold font: %w", fontErr)
	}

	glyphMu.Lock()
	defer glyphMu.Unlock()
	if g, ok := glyphCache[r]; ok {
		return g, nil
	}

	var buf sfnt.Buffer
	idx, err := boldFont.GlyphIndex(&buf, r)
	if err != nil {
		return nil, fmt.Errorf("glyph index for %q: %w", r, err)
	}
	if idx == 0 {
		return nil, fmt.Errorf("font has no glyph for %q", r)
	}

	ppem := fixed.Int26_6(boldFont.UnitsPerEm()) << 6
	segs, err := boldFont.LoadGlyph(&buf, idx, ppem, nil)
	if err != nil {
		return nil, fmt.Errorf("load glyph %q: %w", r, err)
	}

	// LoadGlyph reuses buf for the returned slice.
	own := make(sfnt.Segments, len(segs))
	copy(own, segs)

	bounds := own.Bounds()
	minX, minY := float64(bounds.Min.X)/64, float64(bounds.Min.Y)/64
	maxX, maxY := float64(bounds.Max.X)/64, float64(bounds.Max.Y)/64
	if maxY <= minY {
		return nil, fmt.Errorf("glyph %q has no outline", r)
	}

	g := &glyph{
		segs:   own,
		midX:   (minX + maxX) / 2,
		midY:   (minY + maxY) / 2,
		width:  maxX - minX,
		height: maxY - minY,
	}
	glyphCache[r] = g
	return g, nil
}
