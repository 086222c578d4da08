// Package platform abstracts the native windowing system: display
// enumeration, overlay surfaces, pointer state, global key grabs and
// system notifications.
package platform

import (
	"errors"
	"image"

	"github.com/phinze/halo/internal/hotkey"
)

var (
	// ErrUnsupported is returned by Open on platforms without a backend.
	ErrUnsupported = errors.New("platform not supported")
	// ErrSurfaceCreation is returned when an overlay surface cannot be created.
	ErrSurfaceCreation = errors.New("surface creation failed")
	// ErrPermissionNotGranted is returned when global input observation is
	// refused by the OS.
	ErrPermissionNotGranted = errors.New("input access not granted")
)

// Display is one monitor in virtual-screen coordinates.
type Display struct {
	// ID is stable across workspace switches and across re-enumeration
	// while the monitor stays connected.
	ID     uint32
	Name   string
	Bounds image.Rectangle
	Scale  float64
}

// Buttons is the state of the primary and secondary pointer buttons.
type Buttons struct {
	Primary   bool
	Secondary bool
}

// EventKind identifies a system notification.
type EventKind int

const (
	// Wake is delivered after the machine resumes from sleep.
	Wake EventKind = iota + 1
	// SessionActive is delivered when the session is unlocked or logged in.
	SessionActive
	// WorkspaceChanged is delivered on virtual desktop or fullscreen changes.
	WorkspaceChanged
	// DisplaysChanged is delivered when monitors are added, removed or resized.
	DisplaysChanged
)

func (k EventKind) String() string {
	switch k {
	case Wake:
		return "wake"
	case SessionActive:
		return "session-active"
	case WorkspaceChanged:
		return "workspace-changed"
	case DisplaysChanged:
		return "displays-changed"
	}
	return "unknown"
}

// Event is a system notification.
type Event struct {
	Kind EventKind
}

// Surface is a transparent, click-through, always-on-top window covering
// one display.
type Surface interface {
	DisplayID() uint32
	Bounds() image.Rectangle
	Scale() float64
	// Present copies the dirty part of img to the screen. img has the
	// surface's size and premultiplied alpha.
	Present(img *image.RGBA, dirty image.Rectangle) error
	// RaiseTopmost re-asserts the stacking level.
	RaiseTopmost() error
	// JoinAllWorkspaces re-applies the all-desktops membership.
	JoinAllWorkspaces() error
	Close() error
}

// Backend is the native windowing system.
type Backend interface {
	hotkey.Grabber

	Displays() ([]Display, error)
	CreateSurface(d Display) (Surface, error)
	CursorPosition() (image.Point, error)
	Buttons() (Buttons, error)
	// Events delivers system notifications. The channel is closed by Close.
	Events() <-chan Event
	// RequestInputAccess prompts for global input permission where the OS
	// requires one.
	RequestInputAccess() error
	// SetKeySink installs the receiver for grabbed chord presses. nil
	// removes it.
	SetKeySink(func(hotkey.KeyEvent))
	// Pump processes pending native messages on the calling thread.
	Pump()
	Close() error
}
