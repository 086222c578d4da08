// Package hotkey registers global chords and turns their presses into
// application events.
package hotkey

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/phinze/halo/internal/event"
)

var (
	// ErrRegistration is returned when the OS refuses a chord.
	ErrRegistration = errors.New("hotkey registration failed")
	// ErrChordInUse is returned when an earlier binding already holds the chord.
	ErrChordInUse = errors.New("chord already bound")
)

// DefaultKeepAlive is the interval between forced re-installs.
const DefaultKeepAlive = 60 * time.Second

// Grabber performs the native registration of a chord under an id.
type Grabber interface {
	Grab(id int, c Chord) error
	Ungrab(id int) error
}

// KeyEvent is a press or release of a registered chord as reported by the
// platform. Time is the platform's event timestamp; zero means unknown.
type KeyEvent struct {
	ID   int
	Down bool
	Time uint32
}

// Manager owns the set of registered chords.
type Manager struct {
	grabber  Grabber
	pub      event.Publisher
	bindings []Binding

	mu          sync.Mutex
	installed   map[int]Binding
	held        map[int]bool
	lastRelease map[int]uint32
}

// NewManager creates a manager for bindings. Nothing is registered until
// Install.
func NewManager(g Grabber, pub event.Publisher, bindings []Binding) *Manager {
	b := make([]Binding, len(bindings))
	copy(b, bindings)
	return &Manager{
		grabber:     g,
		pub:         pub,
		bindings:    b,
		installed:   make(map[int]Binding),
		held:        make(map[int]bool),
		lastRelease: make(map[int]uint32),
	}
}

// Install registers every binding in order. A binding whose chord is
// already taken by an earlier one is skipped. Failures are logged and
// returned joined; the bindings that succeeded stay registered. Install on
// an installed manager does nothing.
func (m *Manager) Install() error {
	m.mu.Lock()
	if len(m.installed) > 0 {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	var errs []error
	taken := make(map[Chord]event.AppEvent)
	ok := make(map[int]Binding)

	for i, b := range m.bindings {
		id := i + 1
		if owner, dup := taken[b.Chord]; dup {
			err := fmt.Errorf("%s for %s: %w by %s", b.Chord, b.Action, ErrChordInUse, owner)
			log.Printf("Hotkey registration failed: %v", err)
			errs = append(errs, err)
			continue
		}
		if err := m.grabber.Grab(id, b.Chord); err != nil {
			err = fmt.Errorf("%w: %s for %s: %v", ErrRegistration, b.Chord, b.Action, err)
			log.Printf("Hotkey registration failed: %v", err)
			errs = append(errs, err)
			continue
		}
		taken[b.Chord] = b.Action
		ok[id] = b
	}

	m.mu.Lock()
	m.installed = ok
	m.mu.Unlock()

	return errors.Join(errs...)
}

// Uninstall releases every registered chord.
func (m *Manager) Uninstall() {
	m.mu.Lock()
	ids := make([]int, 0, len(m.installed))
	for id := range m.installed {
		ids = append(ids, id)
	}
	m.installed = make(map[int]Binding)
	m.held = make(map[int]bool)
	m.mu.Unlock()

	sort.Ints(ids)
	for _, id := range ids {
		if err := m.grabber.Ungrab(id); err != nil {
			log.Printf("Hotkey unregister %d failed: %v", id, err)
		}
	}
}

// Reinstall is Uninstall followed by Install.
func (m *Manager) Reinstall() error {
	m.Uninstall()
	return m.Install()
}

// Registered returns the currently registered bindings in registration
// order.
func (m *Manager) Registered() []Binding {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int, 0, len(m.installed))
	for id := range m.installed {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]Binding, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.installed[id])
	}
	return out
}

// HandleKey is called from the platform's callback thread. A press
// publishes the bound event once; releases and auto-repeat publish nothing.
// X11 reports auto-repeat as a release immediately followed by a press
// with the same timestamp.
func (m *Manager) HandleKey(k KeyEvent) {
	m.mu.Lock()
	b, ok := m.installed[k.ID]
	if !ok {
		m.mu.Unlock()
		return
	}

	if !k.Down {
		m.held[k.ID] = false
		m.lastRelease[k.ID] = k.Time
		m.mu.Unlock()
		return
	}

	if m.held[k.ID] {
		m.mu.Unlock()
		return
	}
	m.held[k.ID] = true
	if last, seen := m.lastRelease[k.ID]; seen && k.Time != 0 && last == k.Time {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.pub.Publish(b.Action)
}

// KeepAlive publishes ReinstallHotkeys every interval until ctx is done.
func KeepAlive(ctx context.Context, interval time.Duration, pub event.Publisher) {
	if interval <= 0 {
		interval = DefaultKeepAlive
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pub.Publish(event.ReinstallHotkeys)
		}
	}
}
