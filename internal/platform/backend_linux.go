//go:build linux

package platform

import (
	"fmt"
	"image"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/phinze/halo/internal/hotkey"
)

const (
	modMask       = xproto.ModMaskShift | xproto.ModMaskControl | xproto.ModMask1 | xproto.ModMask4
	putImageExtra = 28
	allDesktops   = 0xFFFFFFFF
)

var overlayStates = []string{
	"_NET_WM_STATE_ABOVE",
	"_NET_WM_STATE_STICKY",
	"_NET_WM_STATE_SKIP_TASKBAR",
	"_NET_WM_STATE_SKIP_PAGER",
}

type x11Grab struct {
	mods  uint16
	codes []xproto.Keycode
}

type x11Backend struct {
	xu       *xgbutil.XUtil
	conn     *xgb.Conn
	root     xproto.Window
	visual   xproto.Visualid
	maxReq   int
	hasRandr bool
	scale    float64
	events   chan Event

	mu      sync.Mutex
	sink    func(hotkey.KeyEvent)
	grabs   map[int]x11Grab
	pressed map[xproto.Keycode]int
	closed  bool
}

// Open connects to the X server named by $DISPLAY.
func Open() (Backend, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect to X server: %w", err)
	}

	b := &x11Backend{
		xu:     xu,
		conn:   xu.Conn(),
		root:   xu.RootWin(),
		maxReq: int(xu.Setup().MaximumRequestLength) * 4,
		events: make(chan Event, 16),
		grabs:   make(map[int]x11Grab),
		pressed: make(map[xproto.Keycode]int),
	}

	if err := shape.Init(b.conn); err != nil {
		b.conn.Close()
		return nil, fmt.Errorf("%w: SHAPE extension unavailable: %v", ErrSurfaceCreation, err)
	}

	visual, ok := argbVisual(xu.Screen())
	if !ok {
		b.conn.Close()
		return nil, fmt.Errorf("%w: no 32-bit TrueColor visual", ErrSurfaceCreation)
	}
	b.visual = visual

	if err := randr.Init(b.conn); err != nil {
		log.Printf("RandR unavailable, using root geometry: %v", err)
	} else {
		b.hasRandr = true
		if err := randr.SelectInputChecked(b.conn, b.root, randr.NotifyMaskScreenChange).Check(); err != nil {
			log.Printf("RandR change notifications unavailable: %v", err)
		}
	}

	b.scale = xftScale(xu)
	keybind.Initialize(xu)

	if err := b.watchRoot(); err != nil {
		log.Printf("Workspace notifications unavailable: %v", err)
	}

	go xevent.Main(xu)
	return b, nil
}

func argbVisual(screen *xproto.ScreenInfo) (xproto.Visualid, bool) {
	for _, depth := range screen.AllowedDepths {
		if depth.Depth != 32 {
			continue
		}
		for _, v := range depth.Visuals {
			if v.Class == xproto.VisualClassTrueColor {
				return v.VisualId, true
			}
		}
	}
	return 0, false
}

// xftScale derives the UI scale from the Xft.dpi resource, defaulting to 1.
func xftScale(xu *xgbutil.XUtil) float64 {
	reply, err := xprop.GetProperty(xu, xu.RootWin(), "RESOURCE_MANAGER")
	if err != nil || reply == nil {
		return 1
	}
	for _, line := range strings.Split(string(reply.Value), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(key) != "Xft.dpi" {
			continue
		}
		dpi, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err == nil && dpi > 0 {
			return dpi / 96
		}
	}
	return 1
}

func (b *x11Backend) watchRoot() error {
	if err := xwindow.New(b.xu, b.root).Listen(xproto.EventMaskPropertyChange); err != nil {
		return err
	}

	xevent.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		b.dispatchKey(ev.Detail, ev.State, uint32(ev.Time), true)
	}).Connect(b.xu, b.root)
	xevent.KeyReleaseFun(func(xu *xgbutil.XUtil, ev xevent.KeyReleaseEvent) {
		b.dispatchKey(ev.Detail, ev.State, uint32(ev.Time), false)
	}).Connect(b.xu, b.root)

	var watched []xproto.Atom
	for _, name := range []string{"_NET_CURRENT_DESKTOP", "_NET_ACTIVE_WINDOW"} {
		atom, err := xprop.Atm(b.xu, name)
		if err != nil {
			return err
		}
		watched = append(watched, atom)
	}
	xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		for _, atom := range watched {
			if ev.Atom == atom {
				b.emit(WorkspaceChanged)
				return
			}
		}
	}).Connect(b.xu, b.root)

	xevent.HookFun(func(xu *xgbutil.XUtil, ev interface{}) bool {
		switch ev.(type) {
		case randr.ScreenChangeNotifyEvent, *randr.ScreenChangeNotifyEvent:
			b.emit(DisplaysChanged)
		}
		return true
	}).Connect(b.xu)

	return nil
}

func (b *x11Backend) emit(kind EventKind) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.events <- Event{Kind: kind}:
	default:
	}
}

// dispatchKey maps a root key event to a grab id. A release goes to the
// grab its key's press went to, whatever modifiers are still down.
func (b *x11Backend) dispatchKey(code xproto.Keycode, state uint16, ts uint32, down bool) {
	mods := state & modMask

	b.mu.Lock()
	sink := b.sink
	var id int
	if down {
		id = b.grabFor(code, mods, true)
		if id != 0 {
			if b.pressed == nil {
				b.pressed = make(map[xproto.Keycode]int)
			}
			b.pressed[code] = id
		}
	} else if pid, ok := b.pressed[code]; ok {
		id = pid
		delete(b.pressed, code)
	} else if id = b.grabFor(code, mods, true); id == 0 {
		id = b.grabFor(code, mods, false)
	}
	b.mu.Unlock()

	if id != 0 && sink != nil {
		sink(hotkey.KeyEvent{ID: id, Down: down, Time: ts})
	}
}

// dropGrab removes grab id along with any press still routed to it.
func (b *x11Backend) dropGrab(id int) (x11Grab, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	g, ok := b.grabs[id]
	delete(b.grabs, id)
	for code, pid := range b.pressed {
		if pid == id {
			delete(b.pressed, code)
		}
	}
	return g, ok
}

// grabFor returns the lowest grab id holding code, requiring equal
// modifiers when exact is set. Callers hold b.mu.
func (b *x11Backend) grabFor(code xproto.Keycode, mods uint16, exact bool) int {
	best := 0
	for gid, g := range b.grabs {
		if exact && g.mods != mods {
			continue
		}
		if best != 0 && gid > best {
			continue
		}
		for _, c := range g.codes {
			if c == code {
				best = gid
				break
			}
		}
	}
	return best
}

func (b *x11Backend) Displays() ([]Display, error) {
	if b.hasRandr {
		ds, err := b.randrDisplays()
		if err == nil && len(ds) > 0 {
			return ds, nil
		}
		if err != nil {
			log.Printf("RandR enumeration failed, using root geometry: %v", err)
		}
	}

	s := b.xu.Screen()
	return []Display{{
		ID:     uint32(b.root),
		Name:   "screen",
		Bounds: image.Rect(0, 0, int(s.WidthInPixels), int(s.HeightInPixels)),
		Scale:  b.scale,
	}}, nil
}

func (b *x11Backend) randrDisplays() ([]Display, error) {
	res, err := randr.GetScreenResourcesCurrent(b.conn, b.root).Reply()
	if err != nil {
		return nil, err
	}

	var ds []Display
	seen := make(map[randr.Crtc]bool)
	for _, out := range res.Outputs {
		info, err := randr.GetOutputInfo(b.conn, out, res.ConfigTimestamp).Reply()
		if err != nil {
			return nil, err
		}
		if info.Connection != randr.ConnectionConnected || info.Crtc == 0 || seen[info.Crtc] {
			continue
		}
		crtc, err := randr.GetCrtcInfo(b.conn, info.Crtc, res.ConfigTimestamp).Reply()
		if err != nil {
			return nil, err
		}
		if crtc.Width == 0 || crtc.Height == 0 {
			continue
		}
		seen[info.Crtc] = true

		x, y := int(crtc.X), int(crtc.Y)
		ds = append(ds, Display{
			ID:     uint32(out),
			Name:   string(info.Name),
			Bounds: image.Rect(x, y, x+int(crtc.Width), y+int(crtc.Height)),
			Scale:  b.scale,
		})
	}

	sort.Slice(ds, func(i, j int) bool {
		if ds[i].Bounds.Min.X != ds[j].Bounds.Min.X {
			return ds[i].Bounds.Min.X < ds[j].Bounds.Min.X
		}
		return ds[i].Bounds.Min.Y < ds[j].Bounds.Min.Y
	})
	return ds, nil
}

func (b *x11Backend) CreateSurface(d Display) (Surface, error) {
	r := d.Bounds
	if r.Empty() {
		return nil, fmt.Errorf("%w: display %d has no area", ErrSurfaceCreation, d.ID)
	}

	cmap, err := xproto.NewColormapId(b.conn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSurfaceCreation, err)
	}
	if err := xproto.CreateColormapChecked(b.conn, xproto.ColormapAllocNone, cmap, b.root, b.visual).Check(); err != nil {
		return nil, fmt.Errorf("%w: colormap: %v", ErrSurfaceCreation, err)
	}

	wid, err := xproto.NewWindowId(b.conn)
	if err != nil {
		xproto.FreeColormap(b.conn, cmap)
		return nil, fmt.Errorf("%w: %v", ErrSurfaceCreation, err)
	}
	err = xproto.CreateWindowChecked(b.conn, 32, wid, b.root,
		int16(r.Min.X), int16(r.Min.Y), uint16(r.Dx()), uint16(r.Dy()), 0,
		xproto.WindowClassInputOutput, b.visual,
		xproto.CwBackPixel|xproto.CwBorderPixel|xproto.CwOverrideRedirect|xproto.CwColormap,
		[]uint32{0, 0, 1, uint32(cmap)}).Check()
	if err != nil {
		xproto.FreeColormap(b.conn, cmap)
		return nil, fmt.Errorf("%w: window: %v", ErrSurfaceCreation, err)
	}

	s := &x11Surface{b: b, display: d, win: wid, cmap: cmap}

	// An empty input region lets every pointer event fall through.
	if err := shape.RectanglesChecked(b.conn, shape.SoSet, shape.SkInput,
		xproto.ClipOrderingUnsorted, wid, 0, 0, nil).Check(); err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: input shape: %v", ErrSurfaceCreation, err)
	}

	if err := ewmh.WmWindowTypeSet(b.xu, wid, []string{"_NET_WM_WINDOW_TYPE_NOTIFICATION"}); err != nil {
		log.Printf("Surface %d: window type hint failed: %v", d.ID, err)
	}
	if err := s.JoinAllWorkspaces(); err != nil {
		log.Printf("Surface %d: workspace hints failed: %v", d.ID, err)
	}

	gc, err := xproto.NewGcontextId(b.conn)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: %v", ErrSurfaceCreation, err)
	}
	if err := xproto.CreateGCChecked(b.conn, gc, xproto.Drawable(wid), 0, nil).Check(); err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: gc: %v", ErrSurfaceCreation, err)
	}
	s.gc = gc

	if err := xproto.MapWindowChecked(b.conn, wid).Check(); err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: map: %v", ErrSurfaceCreation, err)
	}
	s.RaiseTopmost()

	return s, nil
}

func (b *x11Backend) CursorPosition() (image.Point, error) {
	reply, err := xproto.QueryPointer(b.conn, b.root).Reply()
	if err != nil {
		return image.Point{}, err
	}
	return image.Pt(int(reply.RootX), int(reply.RootY)), nil
}

func (b *x11Backend) Buttons() (Buttons, error) {
	reply, err := xproto.QueryPointer(b.conn, b.root).Reply()
	if err != nil {
		return Buttons{}, err
	}
	return Buttons{
		Primary:   reply.Mask&xproto.KeyButMaskButton1 != 0,
		Secondary: reply.Mask&xproto.KeyButMaskButton3 != 0,
	}, nil
}

func (b *x11Backend) Events() <-chan Event {
	return b.events
}

// RequestInputAccess is a no-op: X11 does not gate pointer queries.
func (b *x11Backend) RequestInputAccess() error {
	return nil
}

func (b *x11Backend) SetKeySink(fn func(hotkey.KeyEvent)) {
	b.mu.Lock()
	b.sink = fn
	b.mu.Unlock()
}

func (b *x11Backend) Grab(id int, c hotkey.Chord) error {
	name, ok := x11KeyName(c.Key)
	if !ok {
		return fmt.Errorf("no X keysym for %q", c.Key)
	}
	codes := keybind.StrToKeycodes(b.xu, name)
	if len(codes) == 0 {
		return fmt.Errorf("no keycode for %q", name)
	}

	mods := x11Mods(c.Mods)
	for i, code := range codes {
		if err := keybind.GrabChecked(b.xu, b.root, mods, code); err != nil {
			for _, done := range codes[:i] {
				keybind.Ungrab(b.xu, b.root, mods, done)
			}
			return err
		}
	}

	b.mu.Lock()
	b.grabs[id] = x11Grab{mods: mods, codes: codes}
	b.mu.Unlock()
	return nil
}

func (b *x11Backend) Ungrab(id int) error {
	g, ok := b.dropGrab(id)
	if !ok {
		return nil
	}
	for _, code := range g.codes {
		keybind.Ungrab(b.xu, b.root, g.mods, code)
	}
	return nil
}

// Pump is a no-op: X events are read by the xevent loop.
func (b *x11Backend) Pump() {}

func (b *x11Backend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.sink = nil
	close(b.events)
	b.mu.Unlock()

	xevent.Quit(b.xu)
	b.conn.Close()
	return nil
}

func x11Mods(m hotkey.Modifier) uint16 {
	var out uint16
	if m&hotkey.ModCtrl != 0 {
		out |= xproto.ModMaskControl
	}
	if m&hotkey.ModShift != 0 {
		out |= xproto.ModMaskShift
	}
	if m&hotkey.ModAlt != 0 {
		out |= xproto.ModMask1
	}
	if m&hotkey.ModSuper != 0 {
		out |= xproto.ModMask4
	}
	return out
}

var x11Keysyms = map[string]string{
	"Space":     "space",
	"Tab":       "Tab",
	"Enter":     "Return",
	"Escape":    "Escape",
	"Delete":    "Delete",
	"Backspace": "BackSpace",
	"Home":      "Home",
	"End":       "End",
	"Left":      "Left",
	"Right":     "Right",
	"Up":        "Up",
	"Down":      "Down",
	",":         "comma",
	".":         "period",
	"/":         "slash",
	";":         "semicolon",
	"-":         "minus",
	"=":         "equal",
	"`":         "grave",
}

func x11KeyName(key string) (string, bool) {
	if name, ok := x11Keysyms[key]; ok {
		return name, true
	}
	if len(key) == 1 {
		ch := key[0]
		if ch >= 'A' && ch <= 'Z' {
			return strings.ToLower(key), true
		}
		if ch >= '0' && ch <= '9' {
			return key, true
		}
	}
	if len(key) > 1 && key[0] == 'F' {
		return key, true
	}
	return "", false
}

type x11Surface struct {
	b       *x11Backend
	display Display
	win     xproto.Window
	cmap    xproto.Colormap
	gc      xproto.Gcontext
	buf     []byte
}

func (s *x11Surface) DisplayID() uint32 { return s.display.ID }

func (s *x11Surface) Bounds() image.Rectangle { return s.display.Bounds }

func (s *x11Surface) Scale() float64 { return s.display.Scale }

// Present uploads the dirty rows as 32-bit BGRA, split so that each
// PutImage stays under the server's request size limit.
func (s *x11Surface) Present(img *image.RGBA, dirty image.Rectangle) error {
	dirty = dirty.Intersect(img.Bounds())
	if dirty.Empty() {
		return nil
	}

	w := dirty.Dx()
	rowBytes := w * 4
	rows := (s.b.maxReq - putImageExtra) / rowBytes
	if rows < 1 {
		return fmt.Errorf("row of %d pixels exceeds X request limit", w)
	}

	for y := dirty.Min.Y; y < dirty.Max.Y; y += rows {
		h := min(rows, dirty.Max.Y-y)
		need := rowBytes * h
		if cap(s.buf) < need {
			s.buf = make([]byte, need)
		}
		buf := s.buf[:need]

		for row := 0; row < h; row++ {
			src := img.Pix[img.PixOffset(dirty.Min.X, y+row):][:rowBytes]
			dst := buf[row*rowBytes:][:rowBytes]
			for i := 0; i < rowBytes; i += 4 {
				dst[i+0] = src[i+2]
				dst[i+1] = src[i+1]
				dst[i+2] = src[i+0]
				dst[i+3] = src[i+3]
			}
		}

		xproto.PutImage(s.b.conn, xproto.ImageFormatZPixmap, xproto.Drawable(s.win), s.gc,
			uint16(w), uint16(h), int16(dirty.Min.X-img.Rect.Min.X), int16(y-img.Rect.Min.Y), 0, 32, buf)
	}
	return nil
}

func (s *x11Surface) RaiseTopmost() error {
	xproto.ConfigureWindow(s.b.conn, s.win, xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove})
	return nil
}

func (s *x11Surface) JoinAllWorkspaces() error {
	if err := ewmh.WmStateSet(s.b.xu, s.win, overlayStates); err != nil {
		return err
	}
	return ewmh.WmDesktopSet(s.b.xu, s.win, allDesktops)
}

func (s *x11Surface) Close() error {
	if s.gc != 0 {
		xproto.FreeGC(s.b.conn, s.gc)
	}
	xproto.DestroyWindow(s.b.conn, s.win)
	xproto.FreeColormap(s.b.conn, s.cmap)
	return nil
}
