// Package event defines application events and the bus that carries them
// from input callbacks to the main loop.
package event

// AppEvent is a high-level application action.
type AppEvent int

const (
	ToggleOverlay AppEvent = iota + 1
	OpenSettings
	RequestQuit
	ShowAbout
	ShowHelp
	SettingsClosed
	QuitCancelled
	HelpClosed
	ReinstallHotkeys
)

// All lists every event in declaration order.
var All = []AppEvent{
	ToggleOverlay,
	OpenSettings,
	RequestQuit,
	ShowAbout,
	ShowHelp,
	SettingsClosed,
	QuitCancelled,
	HelpClosed,
	ReinstallHotkeys,
}

var names = map[AppEvent]string{
	ToggleOverlay:    "ToggleOverlay",
	OpenSettings:     "OpenSettings",
	RequestQuit:      "RequestQuit",
	ShowAbout:        "ShowAbout",
	ShowHelp:         "ShowHelp",
	SettingsClosed:   "SettingsClosed",
	QuitCancelled:    "QuitCancelled",
	HelpClosed:       "HelpClosed",
	ReinstallHotkeys: "ReinstallHotkeys",
}

// String returns the event name.
func (e AppEvent) String() string {
	if n, ok := names[e]; ok {
		return n
	}
	return "AppEvent(?)"
}

// IsModal reports whether handling e blocks the main loop in a modal.
func (e AppEvent) IsModal() bool {
	switch e {
	case OpenSettings, RequestQuit, ShowHelp:
		return true
	}
	return false
}

// IsFollowUp reports whether e is published by a modal as it closes.
func (e AppEvent) IsFollowUp() bool {
	switch e {
	case SettingsClosed, QuitCancelled, HelpClosed:
		return true
	}
	return false
}

// RequiresHotkeyReinstall reports whether handling e re-installs hotkeys.
func (e AppEvent) RequiresHotkeyReinstall() bool {
	return e.IsFollowUp() || e == ReinstallHotkeys
}
