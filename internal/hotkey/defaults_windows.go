//go:build windows

package hotkey

import "github.com/phinze/halo/internal/event"

// Ctrl+A is select-all everywhere on Windows.
var defaultChords = map[event.AppEvent]string{
	event.ToggleOverlay: "Ctrl+Shift+A",
	event.OpenSettings:  "Ctrl+,",
	event.ShowHelp:      "Ctrl+Shift+H",
	event.RequestQuit:   "Ctrl+Shift+X",
}
