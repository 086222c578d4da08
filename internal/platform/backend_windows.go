//go:build windows

package platform

import (
	"fmt"
	"hash/fnv"
	"image"
	"log"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/phinze/halo/internal/hotkey"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	gdi32    = windows.NewLazySystemDLL("gdi32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")
	shcore   = windows.NewLazySystemDLL("shcore.dll")
	wtsapi32 = windows.NewLazySystemDLL("wtsapi32.dll")

	procRegisterClassExW                 = user32.NewProc("RegisterClassExW")
	procCreateWindowExW                  = user32.NewProc("CreateWindowExW")
	procDestroyWindow                    = user32.NewProc("DestroyWindow")
	procDefWindowProcW                   = user32.NewProc("DefWindowProcW")
	procPeekMessageW                     = user32.NewProc("PeekMessageW")
	procTranslateMessage                 = user32.NewProc("TranslateMessage")
	procDispatchMessageW                 = user32.NewProc("DispatchMessageW")
	procGetMessageTime                   = user32.NewProc("GetMessageTime")
	procShowWindow                       = user32.NewProc("ShowWindow")
	procSetWindowPos                     = user32.NewProc("SetWindowPos")
	procUpdateLayeredWindowIndirect      = user32.NewProc("UpdateLayeredWindowIndirect")
	procEnumDisplayMonitors              = user32.NewProc("EnumDisplayMonitors")
	procGetMonitorInfoW                  = user32.NewProc("GetMonitorInfoW")
	procGetCursorPos                     = user32.NewProc("GetCursorPos")
	procGetAsyncKeyState                 = user32.NewProc("GetAsyncKeyState")
	procGetSystemMetrics                 = user32.NewProc("GetSystemMetrics")
	procRegisterHotKey                   = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey                 = user32.NewProc("UnregisterHotKey")
	procSetWinEventHook                  = user32.NewProc("SetWinEventHook")
	procUnhookWinEvent                   = user32.NewProc("UnhookWinEvent")
	procSetProcessDpiAwarenessContext    = user32.NewProc("SetProcessDpiAwarenessContext")
	procCreateCompatibleDC               = gdi32.NewProc("CreateCompatibleDC")
	procCreateDIBSection                 = gdi32.NewProc("CreateDIBSection")
	procSelectObject                     = gdi32.NewProc("SelectObject")
	procDeleteObject                     = gdi32.NewProc("DeleteObject")
	procDeleteDC                         = gdi32.NewProc("DeleteDC")
	procGetModuleHandleW                 = kernel32.NewProc("GetModuleHandleW")
	procGetDpiForMonitor                 = shcore.NewProc("GetDpiForMonitor")
	procWTSRegisterSessionNotification   = wtsapi32.NewProc("WTSRegisterSessionNotification")
	procWTSUnRegisterSessionNotification = wtsapi32.NewProc("WTSUnRegisterSessionNotification")
)

const (
	wsPopup      = 0x80000000
	wsExLayered  = 0x00080000
	wsExTransp   = 0x00000020
	wsExTopmost  = 0x00000008
	wsExToolWin  = 0x00000080
	wsExNoActive = 0x08000000

	swShowNoActivate = 4

	swpNoSize     = 0x0001
	swpNoMove     = 0x0002
	swpNoActivate = 0x0010
	swpShowWindow = 0x0040

	ulwAlpha   = 0x02
	acSrcAlpha = 0x01

	wmDisplayChange    = 0x007E
	wmMouseActivate    = 0x0021
	wmHotkey           = 0x0312
	wmPowerBroadcast   = 0x0218
	wmWTSSessionChange = 0x02B1
	maNoActivate       = 3

	pbtResumeSuspend   = 0x0007
	pbtResumeAutomatic = 0x0012
	wtsSessionLogon    = 0x5
	wtsSessionUnlock   = 0x8

	eventSystemForeground = 0x0003
	winEventOutOfContext  = 0x0000

	pmRemove = 0x0001

	modAlt      = 0x0001
	modControl  = 0x0002
	modShift    = 0x0004
	modWin      = 0x0008
	modNoRepeat = 0x4000

	vkLButton    = 0x01
	vkRButton    = 0x02
	smSwapButton = 23

	mdtEffectiveDPI = 0
	biRGB           = 0
	dibRGBColors    = 0
)

var hwndTopmost = ^uintptr(0)

// DPI_AWARENESS_CONTEXT_PER_MONITOR_AWARE_V2 is (HANDLE)-4.
var dpiPerMonitorV2 = ^uintptr(3)

type point struct{ X, Y int32 }

type size struct{ CX, CY int32 }

type rect struct{ Left, Top, Right, Bottom int32 }

type winMsg struct {
	hwnd     uintptr
	message  uint32
	wParam   uintptr
	lParam   uintptr
	time     uint32
	pt       point
	lPrivate uint32
}

type wndClassEx struct {
	cbSize        uint32
	style         uint32
	lpfnWndProc   uintptr
	cbClsExtra    int32
	cbWndExtra    int32
	hInstance     uintptr
	hIcon         uintptr
	hCursor       uintptr
	hbrBackground uintptr
	lpszMenuName  *uint16
	lpszClassName *uint16
	hIconSm       uintptr
}

type monitorInfoEx struct {
	cbSize    uint32
	rcMonitor rect
	rcWork    rect
	dwFlags   uint32
	szDevice  [32]uint16
}

type blendFunction struct {
	BlendOp             byte
	BlendFlags          byte
	SourceConstantAlpha byte
	AlphaFormat         byte
}

type updateLayeredWindowInfo struct {
	cbSize   uint32
	hdcDst   uintptr
	pptDst   *point
	psize    *size
	hdcSrc   uintptr
	pptSrc   *point
	crKey    uint32
	pblend   *blendFunction
	dwFlags  uint32
	prcDirty *rect
}

type bitmapInfoHeader struct {
	biSize          uint32
	biWidth         int32
	biHeight        int32
	biPlanes        uint16
	biBitCount      uint16
	biCompression   uint32
	biSizeImage     uint32
	biXPelsPerMeter int32
	biYPelsPerMeter int32
	biClrUsed       uint32
	biClrImportant  uint32
}

type bitmapInfo struct {
	header bitmapInfoHeader
	colors [1]uint32
}

// Native callbacks are a limited resource; they are created once per process.
var (
	callbacksOnce   sync.Once
	wndProcCB       uintptr
	enumMonitorsCB  uintptr
	winEventCB      uintptr
	classNamePtr    *uint16
	classRegistered bool

	current atomic.Pointer[win32Backend]

	enumMu  sync.Mutex
	enumOut []Display
)

type win32Backend struct {
	instance  uintptr
	msgWindow uintptr
	eventHook uintptr
	events    chan Event

	mu     sync.Mutex
	sink   func(hotkey.KeyEvent)
	hotkey map[int]bool
	closed bool
}

// Open creates the message window and registers for power, session and
// display notifications. It must be called on the thread that will call
// Pump.
func Open() (Backend, error) {
	if err := user32.Load(); err != nil {
		return nil, fmt.Errorf("user32.dll is unavailable: %w", err)
	}
	if err := gdi32.Load(); err != nil {
		return nil, fmt.Errorf("gdi32.dll is unavailable: %w", err)
	}

	if procSetProcessDpiAwarenessContext.Find() == nil {
		procSetProcessDpiAwarenessContext.Call(dpiPerMonitorV2)
	}

	instance, _, _ := procGetModuleHandleW.Call(0)

	var regErr error
	callbacksOnce.Do(func() {
		wndProcCB = windows.NewCallback(wndProc)
		enumMonitorsCB = windows.NewCallback(enumMonitorsProc)
		winEventCB = windows.NewCallback(winEventProc)
		classNamePtr, regErr = windows.UTF16PtrFromString("HaloOverlay")
		if regErr != nil {
			return
		}
		wc := wndClassEx{
			lpfnWndProc:   wndProcCB,
			hInstance:     instance,
			lpszClassName: classNamePtr,
		}
		wc.cbSize = uint32(unsafe.Sizeof(wc))
		if r, _, err := procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc))); r == 0 {
			regErr = fmt.Errorf("RegisterClassExW: %w", err)
			return
		}
		classRegistered = true
	})
	if regErr != nil {
		return nil, regErr
	}
	if !classRegistered {
		return nil, fmt.Errorf("window class registration failed earlier")
	}

	b := &win32Backend{
		instance: instance,
		events:   make(chan Event, 16),
		hotkey:   make(map[int]bool),
	}
	if !current.CompareAndSwap(nil, b) {
		return nil, fmt.Errorf("platform backend already open")
	}

	// A hidden top-level window rather than a message-only one, so that
	// broadcast messages such as WM_POWERBROADCAST arrive.
	hwnd, _, err := procCreateWindowExW.Call(0, uintptr(unsafe.Pointer(classNamePtr)), 0, 0,
		0, 0, 0, 0, 0, 0, instance, 0)
	if hwnd == 0 {
		current.Store(nil)
		return nil, fmt.Errorf("create message window: %w", err)
	}
	b.msgWindow = hwnd

	if procWTSRegisterSessionNotification.Find() == nil {
		if r, _, err := procWTSRegisterSessionNotification.Call(hwnd, 0); r == 0 {
			log.Printf("Session notifications unavailable: %v", err)
		}
	}

	hook, _, _ := procSetWinEventHook.Call(eventSystemForeground, eventSystemForeground,
		0, winEventCB, 0, 0, winEventOutOfContext)
	if hook == 0 {
		log.Printf("Foreground notifications unavailable")
	}
	b.eventHook = hook

	return b, nil
}

func wndProc(hwnd, msg, wParam, lParam uintptr) uintptr {
	b := current.Load()
	if b != nil {
		switch msg {
		case wmHotkey:
			ts, _, _ := procGetMessageTime.Call()
			b.key(int(wParam), uint32(ts))
			return 0
		case wmPowerBroadcast:
			if wParam == pbtResumeAutomatic || wParam == pbtResumeSuspend {
				b.emit(Wake)
			}
		case wmWTSSessionChange:
			if wParam == wtsSessionUnlock || wParam == wtsSessionLogon {
				b.emit(SessionActive)
			}
		case wmDisplayChange:
			b.emit(DisplaysChanged)
		case wmMouseActivate:
			if hwnd != b.msgWindow {
				return maNoActivate
			}
		}
	}
	r, _, _ := procDefWindowProcW.Call(hwnd, msg, wParam, lParam)
	return r
}

func winEventProc(hook, ev, hwnd, idObject, idChild, thread, ts uintptr) uintptr {
	if b := current.Load(); b != nil && ev == eventSystemForeground {
		b.emit(WorkspaceChanged)
	}
	return 0
}

func enumMonitorsProc(hMonitor, hdc, lprc, lParam uintptr) uintptr {
	var info monitorInfoEx
	info.cbSize = uint32(unsafe.Sizeof(info))
	if r, _, _ := procGetMonitorInfoW.Call(hMonitor, uintptr(unsafe.Pointer(&info))); r == 0 {
		return 1
	}

	name := windows.UTF16ToString(info.szDevice[:])
	h := fnv.New32a()
	h.Write([]byte(name))

	scale := 1.0
	if procGetDpiForMonitor.Find() == nil {
		var dpiX, dpiY uint32
		r, _, _ := procGetDpiForMonitor.Call(hMonitor, mdtEffectiveDPI,
			uintptr(unsafe.Pointer(&dpiX)), uintptr(unsafe.Pointer(&dpiY)))
		if r == 0 && dpiX > 0 {
			scale = float64(dpiX) / 96
		}
	}

	rc := info.rcMonitor
	enumOut = append(enumOut, Display{
		ID:     h.Sum32(),
		Name:   name,
		Bounds: image.Rect(int(rc.Left), int(rc.Top), int(rc.Right), int(rc.Bottom)),
		Scale:  scale,
	})
	return 1
}

func (b *win32Backend) emit(kind EventKind) {
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

// key reports a WM_HOTKEY. Windows sends no release for registered
// hotkeys and MOD_NOREPEAT suppresses repeats, so each message is a full
// press and release.
func (b *win32Backend) key(id int, ts uint32) {
	b.mu.Lock()
	sink := b.sink
	b.mu.Unlock()
	if sink == nil {
		return
	}
	sink(hotkey.KeyEvent{ID: id, Down: true, Time: ts})
	sink(hotkey.KeyEvent{ID: id, Down: false, Time: ts})
}

func (b *win32Backend) Displays() ([]Display, error) {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumOut = nil
	if r, _, err := procEnumDisplayMonitors.Call(0, 0, enumMonitorsCB, 0); r == 0 {
		return nil, fmt.Errorf("EnumDisplayMonitors: %w", err)
	}
	ds := enumOut
	enumOut = nil

	sort.Slice(ds, func(i, j int) bool {
		if ds[i].Bounds.Min.X != ds[j].Bounds.Min.X {
			return ds[i].Bounds.Min.X < ds[j].Bounds.Min.X
		}
		return ds[i].Bounds.Min.Y < ds[j].Bounds.Min.Y
	})
	return ds, nil
}

func (b *win32Backend) CreateSurface(d Display) (Surface, error) {
	r := d.Bounds
	if r.Empty() {
		return nil, fmt.Errorf("%w: display %d has no area", ErrSurfaceCreation, d.ID)
	}

	title, _ := windows.UTF16PtrFromString("halo overlay " + strconv.FormatUint(uint64(d.ID), 10))
	hwnd, _, err := procCreateWindowExW.Call(
		wsExLayered|wsExTransp|wsExTopmost|wsExToolWin|wsExNoActive,
		uintptr(unsafe.Pointer(classNamePtr)),
		uintptr(unsafe.Pointer(title)),
		wsPopup,
		uintptr(int32(r.Min.X)), uintptr(int32(r.Min.Y)), uintptr(r.Dx()), uintptr(r.Dy()),
		0, 0, b.instance, 0)
	if hwnd == 0 {
		return nil, fmt.Errorf("%w: CreateWindowExW: %v", ErrSurfaceCreation, err)
	}

	s := &win32Surface{display: d, hwnd: hwnd}

	memDC, _, err := procCreateCompatibleDC.Call(0)
	if memDC == 0 {
		s.Close()
		return nil, fmt.Errorf("%w: CreateCompatibleDC: %v", ErrSurfaceCreation, err)
	}
	s.memDC = memDC

	bmi := bitmapInfo{header: bitmapInfoHeader{
		biWidth:       int32(r.Dx()),
		biHeight:      -int32(r.Dy()),
		biPlanes:      1,
		biBitCount:    32,
		biCompression: biRGB,
	}}
	bmi.header.biSize = uint32(unsafe.Sizeof(bmi.header))

	var bits unsafe.Pointer
	bmp, _, err := procCreateDIBSection.Call(memDC, uintptr(unsafe.Pointer(&bmi)), dibRGBColors,
		uintptr(unsafe.Pointer(&bits)), 0, 0)
	if bmp == 0 || bits == nil {
		s.Close()
		return nil, fmt.Errorf("%w: CreateDIBSection: %v", ErrSurfaceCreation, err)
	}
	s.bitmap = bmp
	s.old, _, _ = procSelectObject.Call(memDC, bmp)
	s.pixels = unsafe.Slice((*byte)(bits), r.Dx()*r.Dy()*4)

	procShowWindow.Call(hwnd, swShowNoActivate)
	s.RaiseTopmost()
	return s, nil
}

func (b *win32Backend) CursorPosition() (image.Point, error) {
	var p point
	if r, _, err := procGetCursorPos.Call(uintptr(unsafe.Pointer(&p))); r == 0 {
		return image.Point{}, fmt.Errorf("GetCursorPos: %w", err)
	}
	return image.Pt(int(p.X), int(p.Y)), nil
}

// Buttons reads the physical buttons and maps them to primary and
// secondary according to the swap setting.
func (b *win32Backend) Buttons() (Buttons, error) {
	left := asyncDown(vkLButton)
	right := asyncDown(vkRButton)
	if swapped, _, _ := procGetSystemMetrics.Call(smSwapButton); swapped != 0 {
		left, right = right, left
	}
	return Buttons{Primary: left, Secondary: right}, nil
}

func asyncDown(vk uintptr) bool {
	r, _, _ := procGetAsyncKeyState.Call(vk)
	return r&0x8000 != 0
}

func (b *win32Backend) Events() <-chan Event {
	return b.events
}

// RequestInputAccess is a no-op: Windows does not gate button polling.
func (b *win32Backend) RequestInputAccess() error {
	return nil
}

func (b *win32Backend) SetKeySink(fn func(hotkey.KeyEvent)) {
	b.mu.Lock()
	b.sink = fn
	b.mu.Unlock()
}

func (b *win32Backend) Grab(id int, c hotkey.Chord) error {
	vk, ok := virtualKey(c.Key)
	if !ok {
		return fmt.Errorf("no virtual key for %q", c.Key)
	}
	mods := uintptr(modNoRepeat)
	if c.Mods&hotkey.ModCtrl != 0 {
		mods |= modControl
	}
	if c.Mods&hotkey.ModShift != 0 {
		mods |= modShift
	}
	if c.Mods&hotkey.ModAlt != 0 {
		mods |= modAlt
	}
	if c.Mods&hotkey.ModSuper != 0 {
		mods |= modWin
	}

	if r, _, err := procRegisterHotKey.Call(b.msgWindow, uintptr(id), mods, vk); r == 0 {
		return fmt.Errorf("RegisterHotKey: %w", err)
	}
	b.mu.Lock()
	b.hotkey[id] = true
	b.mu.Unlock()
	return nil
}

func (b *win32Backend) Ungrab(id int) error {
	b.mu.Lock()
	registered := b.hotkey[id]
	delete(b.hotkey, id)
	b.mu.Unlock()
	if !registered {
		return nil
	}
	if r, _, err := procUnregisterHotKey.Call(b.msgWindow, uintptr(id)); r == 0 {
		return fmt.Errorf("UnregisterHotKey: %w", err)
	}
	return nil
}

func (b *win32Backend) Pump() {
	var msg winMsg
	for {
		r, _, _ := procPeekMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0, pmRemove)
		if r == 0 {
			return
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
	}
}

func (b *win32Backend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.sink = nil
	ids := make([]int, 0, len(b.hotkey))
	for id := range b.hotkey {
		ids = append(ids, id)
	}
	b.hotkey = make(map[int]bool)
	close(b.events)
	b.mu.Unlock()

	for _, id := range ids {
		procUnregisterHotKey.Call(b.msgWindow, uintptr(id))
	}
	if b.eventHook != 0 {
		procUnhookWinEvent.Call(b.eventHook)
	}
	if procWTSUnRegisterSessionNotification.Find() == nil {
		procWTSUnRegisterSessionNotification.Call(b.msgWindow)
	}
	procDestroyWindow.Call(b.msgWindow)
	current.Store(nil)
	return nil
}

var virtualKeys = map[string]uintptr{
	"Space":     0x20,
	"Tab":       0x09,
	"Enter":     0x0D,
	"Escape":    0x1B,
	"Delete":    0x2E,
	"Backspace": 0x08,
	"Home":      0x24,
	"End":       0x23,
	"Left":      0x25,
	"Up":        0x26,
	"Right":     0x27,
	"Down":      0x28,
	";":         0xBA,
	"=":         0xBB,
	",":         0xBC,
	"-":         0xBD,
	".":         0xBE,
	"/":         0xBF,
	"`":         0xC0,
}

func virtualKey(key string) (uintptr, bool) {
	if vk, ok := virtualKeys[key]; ok {
		return vk, true
	}
	if len(key) == 1 {
		ch := key[0]
		if (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			return uintptr(ch), true
		}
	}
	if len(key) > 1 && key[0] == 'F' {
		if n, err := strconv.Atoi(key[1:]); err == nil && n >= 1 && n <= 24 {
			return uintptr(0x70 + n - 1), true
		}
	}
	return 0, false
}

type win32Surface struct {
	display Display
	hwnd    uintptr
	memDC   uintptr
	bitmap  uintptr
	old     uintptr
	pixels  []byte
}

func (s *win32Surface) DisplayID() uint32 { return s.display.ID }

func (s *win32Surface) Bounds() image.Rectangle { return s.display.Bounds }

func (s *win32Surface) Scale() float64 { return s.display.Scale }

// Present copies the dirty rows into the DIB as BGRA and pushes them with
// UpdateLayeredWindowIndirect.
func (s *win32Surface) Present(img *image.RGBA, dirty image.Rectangle) error {
	dirty = dirty.Intersect(img.Bounds())
	if dirty.Empty() {
		return nil
	}

	w, h := s.display.Bounds.Dx(), s.display.Bounds.Dy()
	dirty = dirty.Intersect(image.Rect(0, 0, w, h))
	stride := w * 4
	for y := dirty.Min.Y; y < dirty.Max.Y; y++ {
		src := img.Pix[img.PixOffset(dirty.Min.X, y):][:dirty.Dx()*4]
		dst := s.pixels[y*stride+dirty.Min.X*4:][:dirty.Dx()*4]
		for i := 0; i < len(src); i += 4 {
			dst[i+0] = src[i+2]
			dst[i+1] = src[i+1]
			dst[i+2] = src[i+0]
			dst[i+3] = src[i+3]
		}
	}

	dst := point{int32(s.display.Bounds.Min.X), int32(s.display.Bounds.Min.Y)}
	sz := size{int32(w), int32(h)}
	src := point{}
	blend := blendFunction{SourceConstantAlpha: 255, AlphaFormat: acSrcAlpha}
	rc := rect{int32(dirty.Min.X), int32(dirty.Min.Y), int32(dirty.Max.X), int32(dirty.Max.Y)}
	info := updateLayeredWindowInfo{
		pptDst:   &dst,
		psize:    &sz,
		hdcSrc:   s.memDC,
		pptSrc:   &src,
		pblend:   &blend,
		dwFlags:  ulwAlpha,
		prcDirty: &rc,
	}
	info.cbSize = uint32(unsafe.Sizeof(info))

	if r, _, err := procUpdateLayeredWindowIndirect.Call(s.hwnd, uintptr(unsafe.Pointer(&info))); r == 0 {
		return fmt.Errorf("UpdateLayeredWindowIndirect: %w", err)
	}
	return nil
}

func (s *win32Surface) RaiseTopmost() error {
	r, _, err := procSetWindowPos.Call(s.hwnd, hwndTopmost, 0, 0, 0, 0,
		swpNoMove|swpNoSize|swpNoActivate|swpShowWindow)
	if r == 0 {
		return fmt.Errorf("SetWindowPos: %w", err)
	}
	return nil
}

// JoinAllWorkspaces re-asserts the topmost level. Tool windows are already
// shown on every virtual desktop.
func (s *win32Surface) JoinAllWorkspaces() error {
	return s.RaiseTopmost()
}

func (s *win32Surface) Close() error {
	if s.memDC != 0 {
		if s.old != 0 {
			procSelectObject.Call(s.memDC, s.old)
		}
		procDeleteDC.Call(s.memDC)
	}
	if s.bitmap != 0 {
		procDeleteObject.Call(s.bitmap)
	}
	if s.hwnd != 0 {
		procDestroyWindow.Call(s.hwnd)
	}
	return nil
}
