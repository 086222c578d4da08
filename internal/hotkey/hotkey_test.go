package hotkey

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/phinze/halo/internal/event"
)

type fakeGrabber struct {
	mu      sync.Mutex
	grabbed map[int]Chord
	grabs   int
	ungrabs int
	refuse  map[Chord]bool
}

func newFakeGrabber() *fakeGrabber {
	return &fakeGrabber{grabbed: map[int]Chord{}, refuse: map[Chord]bool{}}
}

func (g *fakeGrabber) Grab(id int, c Chord) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refuse[c] {
		return errors.New("BadAccess")
	}
	if _, ok := g.grabbed[id]; ok {
		return errors.New("id registered twice")
	}
	g.grabbed[id] = c
	g.grabs++
	return nil
}

func (g *fakeGrabber) Ungrab(id int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.grabbed, id)
	g.ungrabs++
	return nil
}

func (g *fakeGrabber) snapshot() map[int]Chord {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[int]Chord, len(g.grabbed))
	for k, v := range g.grabbed {
		out[k] = v
	}
	return out
}

func TestParseChord(t *testing.T) {
	tests := []struct {
		in   string
		want Chord
		str  string
	}{
		{"Ctrl+A", Chord{ModCtrl, "A"}, "Ctrl+A"},
		{"ctrl+shift+x", Chord{ModCtrl | ModShift, "X"}, "Ctrl+Shift+X"},
		{"Ctrl+,", Chord{ModCtrl, ","}, "Ctrl+,"},
		{"Cmd+Shift+H", Chord{ModSuper | ModShift, "H"}, "Shift+Super+H"},
		{" Alt + F12 ", Chord{ModAlt, "F12"}, "Alt+F12"},
		{"Shift+Ctrl+comma", Chord{ModCtrl | ModShift, ","}, "Ctrl+Shift+,"},
		{"Win+space", Chord{ModSuper, "Space"}, "Super+Space"},
		{"Ctrl+Ctrl+1", Chord{ModCtrl, "1"}, "Ctrl+1"},
	}

	for _, tt := range tests {
		got, err := ParseChord(tt.in)
		if err != nil {
			t.Errorf("ParseChord(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseChord(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
		if got.String() != tt.str {
			t.Errorf("ParseChord(%q).String() = %q, want %q", tt.in, got.String(), tt.str)
		}
	}
}

func TestParseChordRejects(t *testing.T) {
	for _, in := range []string{"", "A", "Ctrl+", "Hyper+A", "Ctrl+F25", "Ctrl+Fx", "Ctrl+ß", "Ctrl+AB"} {
		if _, err := ParseChord(in); err == nil {
			t.Errorf("ParseChord(%q) expected error", in)
		}
	}
}

func TestDefaultBindings(t *testing.T) {
	bindings := DefaultBindings()
	want := []event.AppEvent{event.ToggleOverlay, event.OpenSettings, event.ShowHelp, event.RequestQuit}
	if len(bindings) != len(want) {
		t.Fatalf("got %d default bindings, want %d", len(bindings), len(want))
	}
	seen := map[Chord]bool{}
	for i, b := range bindings {
		if b.Action != want[i] {
			t.Errorf("binding %d action = %v, want %v", i, b.Action, want[i])
		}
		if seen[b.Chord] {
			t.Errorf("default chord %s is used twice", b.Chord)
		}
		seen[b.Chord] = true
	}
	if bindings[1].Chord != (Chord{ModCtrl, ","}) {
		t.Errorf("open settings default = %s, want Ctrl+,", bindings[1].Chord)
	}
	if bindings[3].Chord != (Chord{ModCtrl | ModShift, "X"}) {
		t.Errorf("quit default = %s, want Ctrl+Shift+X", bindings[3].Chord)
	}
}

func TestBindingsOverrides(t *testing.T) {
	got, err := Bindings(map[string]string{"request_quit": "Alt+Q"})
	if err != nil {
		t.Fatalf("Bindings: %v", err)
	}
	if got[3].Chord != (Chord{ModAlt, "Q"}) {
		t.Errorf("override not applied: %s", got[3].Chord)
	}

	if _, err := Bindings(map[string]string{"launch_rockets": "Ctrl+R"}); err == nil {
		t.Error("unknown action should be rejected")
	}
	if _, err := Bindings(map[string]string{"show_help": "Ctrl+"}); err == nil {
		t.Error("bad chord should be rejected")
	}
}

func testBindings() []Binding {
	return []Binding{
		{event.ToggleOverlay, MustParseChord("Ctrl+Shift+A")},
		{event.OpenSettings, MustParseChord("Ctrl+,")},
		{event.ShowHelp, MustParseChord("Ctrl+Shift+H")},
		{event.RequestQuit, MustParseChord("Ctrl+Shift+X")},
	}
}

func TestInstallRegistersAll(t *testing.T) {
	g := newFakeGrabber()
	m := NewManager(g, event.NewBus().Publisher(), testBindings())

	if err := m.Install(); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if got := m.Registered(); !reflect.DeepEqual(got, testBindings()) {
		t.Errorf("Registered() = %v", got)
	}
	if len(g.snapshot()) != 4 {
		t.Errorf("grabber holds %d chords, want 4", len(g.snapshot()))
	}

	// A second Install must not double-register.
	if err := m.Install(); err != nil {
		t.Fatalf("second Install: %v", err)
	}
	if g.grabs != 4 {
		t.Errorf("grabs = %d after repeated Install, want 4", g.grabs)
	}
}

func TestReinstallIdempotent(t *testing.T) {
	g := newFakeGrabber()
	m := NewManager(g, event.NewBus().Publisher(), testBindings())
	if err := m.Reinstall(); err != nil {
		t.Fatalf("Reinstall: %v", err)
	}
	once := g.snapshot()
	onceReg := m.Registered()

	for i := 0; i < 10; i++ {
		if err := m.Reinstall(); err != nil {
			t.Fatalf("Reinstall %d: %v", i, err)
		}
	}
	if !reflect.DeepEqual(g.snapshot(), once) {
		t.Errorf("grabbed set changed after repeated Reinstall: %v vs %v", g.snapshot(), once)
	}
	if !reflect.DeepEqual(m.Registered(), onceReg) {
		t.Errorf("registered set changed after repeated Reinstall")
	}
}

func TestUninstall(t *testing.T) {
	g := newFakeGrabber()
	m := NewManager(g, event.NewBus().Publisher(), testBindings())
	if err := m.Install(); err != nil {
		t.Fatal(err)
	}
	m.Uninstall()
	if len(g.snapshot()) != 0 {
		t.Errorf("grabber still holds %v", g.snapshot())
	}
	if len(m.Registered()) != 0 {
		t.Errorf("Registered() not empty after Uninstall")
	}
}

func TestCollisionRegistrationOrderWins(t *testing.T) {
	g := newFakeGrabber()
	bindings := testBindings()
	bindings[2].Chord = bindings[0].Chord

	m := NewManager(g, event.NewBus().Publisher(), bindings)
	err := m.Install()
	if !errors.Is(err, ErrChordInUse) {
		t.Fatalf("expected ErrChordInUse, got %v", err)
	}

	reg := m.Registered()
	if len(reg) != 3 {
		t.Fatalf("expected 3 registered, got %v", reg)
	}
	for _, b := range reg {
		if b.Action == event.ShowHelp {
			t.Errorf("later colliding binding should not register")
		}
	}
	if reg[0].Action != event.ToggleOverlay {
		t.Errorf("earlier binding should keep the chord, got %v", reg[0])
	}
}

func TestRegistrationFailureKeepsOthers(t *testing.T) {
	g := newFakeGrabber()
	g.refuse[MustParseChord("Ctrl+,")] = true

	m := NewManager(g, event.NewBus().Publisher(), testBindings())
	err := m.Install()
	if !errors.Is(err, ErrRegistration) {
		t.Fatalf("expected ErrRegistration, got %v", err)
	}
	if got := len(m.Registered()); got != 3 {
		t.Errorf("registered = %d, want 3", got)
	}
}

func TestPressPublishesOnce(t *testing.T) {
	bus := event.NewBus()
	m := NewManager(newFakeGrabber(), bus.Publisher(), testBindings())
	if err := m.Install(); err != nil {
		t.Fatal(err)
	}

	m.HandleKey(KeyEvent{ID: 1, Down: true, Time: 100})
	if got := bus.Drain(); !reflect.DeepEqual(got, []event.AppEvent{event.ToggleOverlay}) {
		t.Fatalf("press published %v", got)
	}

	m.HandleKey(KeyEvent{ID: 1, Down: false, Time: 180})
	if got := bus.Drain(); len(got) != 0 {
		t.Errorf("release published %v", got)
	}

	m.HandleKey(KeyEvent{ID: 1, Down: true, Time: 400})
	m.HandleKey(KeyEvent{ID: 1, Down: true, Time: 430})
	m.HandleKey(KeyEvent{ID: 1, Down: false, Time: 500})
	if got := bus.Drain(); !reflect.DeepEqual(got, []event.AppEvent{event.ToggleOverlay}) {
		t.Errorf("held press published %v", got)
	}
}

func TestAutoRepeatSuppressed(t *testing.T) {
	bus := event.NewBus()
	m := NewManager(newFakeGrabber(), bus.Publisher(), testBindings())
	if err := m.Install(); err != nil {
		t.Fatal(err)
	}

	m.HandleKey(KeyEvent{ID: 4, Down: true, Time: 1000})
	for ts := uint32(1500); ts < 2000; ts += 33 {
		m.HandleKey(KeyEvent{ID: 4, Down: false, Time: ts})
		m.HandleKey(KeyEvent{ID: 4, Down: true, Time: ts})
	}
	m.HandleKey(KeyEvent{ID: 4, Down: false, Time: 2100})

	if got := bus.Drain(); !reflect.DeepEqual(got, []event.AppEvent{event.RequestQuit}) {
		t.Errorf("auto-repeat published %v", got)
	}
}

func TestUnknownIDIgnored(t *testing.T) {
	bus := event.NewBus()
	m := NewManager(newFakeGrabber(), bus.Publisher(), testBindings())

	m.HandleKey(KeyEvent{ID: 1, Down: true})
	if got := bus.Drain(); len(got) != 0 {
		t.Errorf("uninstalled manager published %v", got)
	}

	if err := m.Install(); err != nil {
		t.Fatal(err)
	}
	m.HandleKey(KeyEvent{ID: 99, Down: true})
	if got := bus.Drain(); len(got) != 0 {
		t.Errorf("unknown id published %v", got)
	}
}

func TestKeepAlive(t *testing.T) {
	bus := event.NewBus()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		KeepAlive(ctx, 10*time.Millisecond, bus.Publisher())
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		if got := bus.Drain(); len(got) > 0 {
			for _, e := range got {
				if e != event.ReinstallHotkeys {
					t.Errorf("keep-alive published %v", e)
				}
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("keep-alive never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("KeepAlive did not stop on cancel")
	}
}
