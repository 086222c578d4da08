//go:build darwin

package hotkey

import "github.com/phinze/halo/internal/event"

var defaultChords = map[event.AppEvent]string{
	event.ToggleOverlay: "Ctrl+A",
	event.OpenSettings:  "Ctrl+,",
	event.ShowHelp:      "Cmd+Shift+H",
	event.RequestQuit:   "Ctrl+Shift+X",
}
