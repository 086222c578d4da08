// Package render draws the cursor highlight into per-surface canvases.
package render

import (
	"image"
	"log"

	"golang.org/x/image/draw"

	"github.com/phinze/halo/internal/model"
	"github.com/phinze/halo/internal/platform"
)

// Target is a surface and its visibility for one frame.
type Target struct {
	Surface platform.Surface
	Visible bool
}

type canvas struct {
	img     *image.RGBA
	scratch *image.RGBA
	last    image.Rectangle
	key     frameKey
	drawn   bool
}

// frameKey captures everything that determines a canvas's content.
type frameKey struct {
	state  model.OverlayState
	local  image.Point
	active bool
}

// Renderer owns one canvas per display.
type Renderer struct {
	canvases map[uint32]*canvas
	failing  map[uint32]bool
}

// New creates an empty renderer.
func New() *Renderer {
	return &Renderer{
		canvases: make(map[uint32]*canvas),
		failing:  make(map[uint32]bool),
	}
}

// Forget drops the canvas for a display that no longer has a surface.
func (r *Renderer) Forget(id uint32) {
	delete(r.canvases, id)
	delete(r.failing, id)
}

// Invalidate forces every canvas to redraw and present on the next frame.
func (r *Renderer) Invalidate() {
	for _, c := range r.canvases {
		c.drawn = false
	}
}

// Frame draws one tick. Each canvas is cleared where the highlight was and,
// if the surface is visible, the overlay is enabled and the cursor lies on
// the surface, the highlight is drawn at the cursor in surface-local
// coordinates. Only the changed region is presented. Every surface is
// re-raised.
func (r *Renderer) Frame(st model.OverlayState, cursor image.Point, haveCursor bool, targets []Target) {
	for _, t := range targets {
		s := t.Surface
		if err := r.frameOne(st, cursor, haveCursor, t); err != nil {
			if !r.failing[s.DisplayID()] {
				log.Printf("Render on display %d failed: %v", s.DisplayID(), err)
				r.failing[s.DisplayID()] = true
			}
		} else if r.failing[s.DisplayID()] {
			delete(r.failing, s.DisplayID())
		}
		if err := s.RaiseTopmost(); err != nil && !r.failing[s.DisplayID()] {
			log.Printf("Raise on display %d failed: %v", s.DisplayID(), err)
		}
	}
}

func (r *Renderer) frameOne(st model.OverlayState, cursor image.Point, haveCursor bool, t Target) error {
	s := t.Surface
	bounds := s.Bounds()
	c := r.canvasFor(s.DisplayID(), bounds)

	active := t.Visible && st.OverlayEnabled && haveCursor && cursor.In(bounds)
	key := frameKey{state: st, active: active}
	if active {
		key.local = cursor.Sub(bounds.Min)
	}
	if c.drawn && key == c.key {
		return nil
	}

	dirty := c.last
	if !c.last.Empty() {
		draw.Draw(c.img, c.last, image.Transparent, image.Point{}, draw.Src)
		c.last = image.Rectangle{}
	}

	if active {
		box, err := r.paint(c, StyleFor(st, s.Scale()), key.local)
		if err != nil {
			c.key, c.drawn = key, false
			if !dirty.Empty() {
				if perr := s.Present(c.img, dirty); perr != nil {
					return perr
				}
			}
			return err
		}
		c.last = box
		dirty = dirty.Union(box)
	}

	c.key, c.drawn = key, true
	if dirty.Empty() {
		return nil
	}
	return s.Present(c.img, dirty)
}

// paint draws style centered at p on the canvas through the scratch
// buffer and returns the canvas region it touched.
func (r *Renderer) paint(c *canvas, style Style, p image.Point) (image.Rectangle, error) {
	hx, hy, err := style.Extent()
	if err != nil {
		return image.Rectangle{}, err
	}
	size := image.Rect(0, 0, 2*hx, 2*hy)
	if c.scratch == nil || c.scratch.Bounds() != size {
		c.scratch = image.NewRGBA(size)
	} else {
		clear(c.scratch.Pix)
	}

	if err := style.Draw(c.scratch, image.Pt(hx, hy)); err != nil {
		return image.Rectangle{}, err
	}

	box := image.Rect(p.X-hx, p.Y-hy, p.X+hx, p.Y+hy)
	draw.Draw(c.img, box, c.scratch, image.Point{}, draw.Src)
	return box.Intersect(c.img.Bounds()), nil
}

func (r *Renderer) canvasFor(id uint32, bounds image.Rectangle) *canvas {
	size := image.Rect(0, 0, bounds.Dx(), bounds.Dy())
	c, ok := r.canvases[id]
	if !ok || c.img.Bounds() != size {
		c = &canvas{img: image.NewRGBA(size)}
		r.canvases[id] = c
	}
	return c
}
