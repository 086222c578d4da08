// Package platformtest provides an in-memory platform.Backend for tests.
package platformtest

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/phinze/halo/internal/hotkey"
	"github.com/phinze/halo/internal/platform"
)

// Backend is a scriptable platform.Backend.
type Backend struct {
	mu        sync.Mutex
	displays  []platform.Display
	cursor    image.Point
	cursorErr error
	buttons   platform.Buttons
	grabbed   map[int]hotkey.Chord
	sink      func(hotkey.KeyEvent)
	surfaces  map[uint32]*Surface
	failOn    map[uint32]bool
	accessErr error
	pumps     int
	closed    bool

	events chan platform.Event
}

// NewBackend returns a backend with the given displays.
func NewBackend(displays ...platform.Display) *Backend {
	return &Backend{
		displays: displays,
		grabbed:  make(map[int]hotkey.Chord),
		surfaces: make(map[uint32]*Surface),
		failOn:   make(map[uint32]bool),
		events:   make(chan platform.Event, 16),
	}
}

// SetDisplays replaces the enumerated displays.
func (b *Backend) SetDisplays(ds ...platform.Display) {
	b.mu.Lock()
	b.displays = ds
	b.mu.Unlock()
}

// SetCursor moves the pointer. A non-nil err makes CursorPosition fail.
func (b *Backend) SetCursor(p image.Point, err error) {
	b.mu.Lock()
	b.cursor, b.cursorErr = p, err
	b.mu.Unlock()
}

// SetButtons sets the pointer button state.
func (b *Backend) SetButtons(btn platform.Buttons) {
	b.mu.Lock()
	b.buttons = btn
	b.mu.Unlock()
}

// FailSurface makes CreateSurface fail for display id.
func (b *Backend) FailSurface(id uint32) {
	b.mu.Lock()
	b.failOn[id] = true
	b.mu.Unlock()
}

// DenyInputAccess makes RequestInputAccess return ErrPermissionNotGranted.
func (b *Backend) DenyInputAccess() {
	b.mu.Lock()
	b.accessErr = platform.ErrPermissionNotGranted
	b.mu.Unlock()
}

// Send delivers a system event.
func (b *Backend) Send(kind platform.EventKind) {
	b.events <- platform.Event{Kind: kind}
}

// Press simulates a press and release of the chord grabbed under id.
func (b *Backend) Press(id int, ts uint32) {
	b.mu.Lock()
	sink := b.sink
	_, ok := b.grabbed[id]
	b.mu.Unlock()
	if !ok || sink == nil {
		return
	}
	sink(hotkey.KeyEvent{ID: id, Down: true, Time: ts})
	sink(hotkey.KeyEvent{ID: id, Down: false, Time: ts + 1})
}

// PressChord presses whichever id currently holds c.
func (b *Backend) PressChord(c hotkey.Chord, ts uint32) bool {
	b.mu.Lock()
	id := 0
	for gid, gc := range b.grabbed {
		if gc == c {
			id = gid
		}
	}
	b.mu.Unlock()
	if id == 0 {
		return false
	}
	b.Press(id, ts)
	return true
}

// Grabbed returns a copy of the current grabs.
func (b *Backend) Grabbed() map[int]hotkey.Chord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[int]hotkey.Chord, len(b.grabbed))
	for k, v := range b.grabbed {
		out[k] = v
	}
	return out
}

// Surface returns the live surface for display id.
func (b *Backend) Surface(id uint32) *Surface {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surfaces[id]
}

// Pumps returns how many times Pump ran.
func (b *Backend) Pumps() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pumps
}

// HasSink reports whether a key sink is installed.
func (b *Backend) HasSink() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sink != nil
}

// Closed reports whether Close ran.
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Backend) Displays() ([]platform.Display, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]platform.Display, len(b.displays))
	copy(out, b.displays)
	return out, nil
}

func (b *Backend) CreateSurface(d platform.Display) (platform.Surface, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failOn[d.ID] {
		return nil, fmt.Errorf("%w: display %d", platform.ErrSurfaceCreation, d.ID)
	}
	s := &Surface{display: d, backend: b}
	b.surfaces[d.ID] = s
	return s, nil
}

func (b *Backend) CursorPosition() (image.Point, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursor, b.cursorErr
}

func (b *Backend) Buttons() (platform.Buttons, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buttons, nil
}

func (b *Backend) Events() <-chan platform.Event {
	return b.events
}

func (b *Backend) RequestInputAccess() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accessErr
}

func (b *Backend) SetKeySink(fn func(hotkey.KeyEvent)) {
	b.mu.Lock()
	b.sink = fn
	b.mu.Unlock()
}

func (b *Backend) Grab(id int, c hotkey.Chord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.grabbed[id]; ok {
		return errors.New("id already grabbed")
	}
	b.grabbed[id] = c
	return nil
}

func (b *Backend) Ungrab(id int) error {
	b.mu.Lock()
	delete(b.grabbed, id)
	b.mu.Unlock()
	return nil
}

func (b *Backend) Pump() {
	b.mu.Lock()
	b.pumps++
	b.mu.Unlock()
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		b.sink = nil
		close(b.events)
	}
	return nil
}

// Surface records what was presented.
type Surface struct {
	display platform.Display
	backend *Backend

	mu       sync.Mutex
	frame    *image.RGBA
	presents int
	raises   int
	joins    int
	closed   bool
}

func (s *Surface) DisplayID() uint32 { return s.display.ID }

func (s *Surface) Bounds() image.Rectangle { return s.display.Bounds }

func (s *Surface) Scale() float64 { return s.display.Scale }

func (s *Surface) Present(img *image.RGBA, dirty image.Rectangle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame == nil || s.frame.Bounds() != img.Bounds() {
		s.frame = image.NewRGBA(img.Bounds())
	}
	dirty = dirty.Intersect(img.Bounds())
	for y := dirty.Min.Y; y < dirty.Max.Y; y++ {
		i := img.PixOffset(dirty.Min.X, y)
		copy(s.frame.Pix[i:i+dirty.Dx()*4], img.Pix[i:i+dirty.Dx()*4])
	}
	s.presents++
	return nil
}

func (s *Surface) RaiseTopmost() error {
	s.mu.Lock()
	s.raises++
	s.mu.Unlock()
	return nil
}

func (s *Surface) JoinAllWorkspaces() error {
	s.mu.Lock()
	s.joins++
	s.mu.Unlock()
	return nil
}

func (s *Surface) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.backend.mu.Lock()
	if s.backend.surfaces[s.display.ID] == s {
		delete(s.backend.surfaces, s.display.ID)
	}
	s.backend.mu.Unlock()
	return nil
}

// Frame returns a copy of what is on screen.
func (s *Surface) Frame() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame == nil {
		return image.NewRGBA(image.Rect(0, 0, s.display.Bounds.Dx(), s.display.Bounds.Dy()))
	}
	out := image.NewRGBA(s.frame.Bounds())
	copy(out.Pix, s.frame.Pix)
	return out
}

// Counts returns the number of Present, RaiseTopmost and JoinAllWorkspaces
// calls.
func (s *Surface) Counts() (presents, raises, joins int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presents, s.raises, s.joins
}

// IsClosed reports whether Close ran.
func (s *Surface) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
