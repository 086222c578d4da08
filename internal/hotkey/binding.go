package hotkey

import (
	"fmt"
	"sort"

	"github.com/phinze/halo/internal/event"
)

// Binding ties a chord to the event it publishes.
type Binding struct {
	Action event.AppEvent
	Chord  Chord
}

func (b Binding) String() string {
	return b.Action.String() + "=" + b.Chord.String()
}

// Actions that may be bound, in registration order. Config files refer to
// them by name.
var Actions = []struct {
	Name  string
	Event event.AppEvent
}{
	{"toggle_overlay", event.ToggleOverlay},
	{"open_settings", event.OpenSettings},
	{"show_help", event.ShowHelp},
	{"request_quit", event.RequestQuit},
}

// DefaultBindings returns the platform's default chords in registration
// order.
func DefaultBindings() []Binding {
	out := make([]Binding, 0, len(Actions))
	for _, a := range Actions {
		out = append(out, Binding{Action: a.Event, Chord: MustParseChord(defaultChords[a.Event])})
	}
	return out
}

// Bindings returns the default bindings with overrides applied. Overrides
// are keyed by action name; unknown names and unparsable chords are errors.
func Bindings(overrides map[string]string) ([]Binding, error) {
	out := DefaultBindings()

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		idx := -1
		for i, a := range Actions {
			if a.Name == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("unknown hotkey action %q", name)
		}
		chord, err := ParseChord(overrides[name])
		if err != nil {
			return nil, fmt.Errorf("hotkey %s: %w", name, err)
		}
		out[idx].Chord = chord
	}
	return out, nil
}
