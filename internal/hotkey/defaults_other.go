//go:build !windows && !darwin

package hotkey

import "github.com/phinze/halo/internal/event"

// A root grab on Ctrl+A would take select-all away from every X client.
var defaultChords = map[event.AppEvent]string{
	event.ToggleOverlay: "Ctrl+Shift+A",
	event.OpenSettings:  "Ctrl+,",
	event.ShowHelp:      "Ctrl+Shift+H",
	event.RequestQuit:   "Ctrl+Shift+X",
}
