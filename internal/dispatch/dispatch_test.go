package dispatch

import (
	"reflect"
	"testing"

	"github.com/phinze/halo/internal/event"
)

// recorder logs every action. onModal runs inside RunModal so a test can
// publish events or re-enter the dispatcher while the modal is open.
type recorder struct {
	calls   []string
	modals  []event.AppEvent
	onModal func(kind event.AppEvent)
}

func (r *recorder) ToggleOverlay() { r.calls = append(r.calls, "toggle") }

func (r *recorder) ShowAbout() { r.calls = append(r.calls, "about") }

func (r *recorder) ReinstallHotkeys() { r.calls = append(r.calls, "reinstall") }

func (r *recorder) RunModal(kind event.AppEvent) {
	r.calls = append(r.calls, "modal:"+kind.String())
	r.modals = append(r.modals, kind)
	if r.onModal != nil {
		r.onModal(kind)
	}
}

func TestNonModalEvents(t *testing.T) {
	bus := event.NewBus()
	rec := &recorder{}
	d := New(bus, rec)

	pub := bus.Publisher()
	pub.Publish(event.ToggleOverlay)
	pub.Publish(event.ShowAbout)
	pub.Publish(event.ReinstallHotkeys)
	pub.Publish(event.HelpClosed)
	d.Dispatch()

	want := []string{"toggle", "about", "reinstall", "reinstall"}
	if !reflect.DeepEqual(rec.calls, want) {
		t.Errorf("calls = %v, want %v", rec.calls, want)
	}
	if p := d.Pending(); len(p) != 0 {
		t.Errorf("pending = %v, want none", p)
	}
}

func TestModalSpamOpensOnce(t *testing.T) {
	bus := event.NewBus()
	pub := bus.Publisher()
	rec := &recorder{}
	rec.onModal = func(kind event.AppEvent) {
		// Key spam while the modal is up, then the close follow-up.
		for i := 0; i < 3; i++ {
			pub.Publish(event.OpenSettings)
		}
		pub.Publish(event.SettingsClosed)
	}
	d := New(bus, rec)

	for i := 0; i < 5; i++ {
		pub.Publish(event.OpenSettings)
	}
	for tick := 0; tick < 4; tick++ {
		d.Dispatch()
	}

	if len(rec.modals) != 1 {
		t.Fatalf("modals opened = %d, want 1", len(rec.modals))
	}
	want := []string{"modal:OpenSettings", "reinstall"}
	if !reflect.DeepEqual(rec.calls, want) {
		t.Errorf("calls = %v, want %v", rec.calls, want)
	}
}

func TestNestedDispatchReturns(t *testing.T) {
	bus := event.NewBus()
	pub := bus.Publisher()
	rec := &recorder{}
	var d *Dispatcher
	rec.onModal = func(kind event.AppEvent) {
		pub.Publish(event.ToggleOverlay)
		// A tick nested in the modal must not apply anything.
		d.Dispatch()
		d.Dispatch()
		pub.Publish(event.QuitCancelled)
	}
	d = New(bus, rec)

	pub.Publish(event.RequestQuit)
	d.Dispatch()

	if want := []string{"modal:RequestQuit"}; !reflect.DeepEqual(rec.calls, want) {
		t.Fatalf("calls during modal = %v, want %v", rec.calls, want)
	}

	wantPending := []event.AppEvent{event.QuitCancelled, event.ToggleOverlay}
	if got := d.Pending(); !reflect.DeepEqual(got, wantPending) {
		t.Errorf("pending = %v, want %v", got, wantPending)
	}

	d.Dispatch()
	want := []string{"modal:RequestQuit", "reinstall", "toggle"}
	if !reflect.DeepEqual(rec.calls, want) {
		t.Errorf("calls = %v, want %v", rec.calls, want)
	}
}

func TestEventsAfterModalInSameBatch(t *testing.T) {
	bus := event.NewBus()
	pub := bus.Publisher()
	rec := &recorder{}
	rec.onModal = func(kind event.AppEvent) {
		pub.Publish(event.HelpClosed)
	}
	d := New(bus, rec)

	pub.Publish(event.ToggleOverlay)
	pub.Publish(event.ShowHelp)
	pub.Publish(event.ShowAbout)
	pub.Publish(event.RequestQuit)
	pub.Publish(event.ToggleOverlay)

	d.Dispatch()
	if want := []string{"toggle", "modal:ShowHelp"}; !reflect.DeepEqual(rec.calls, want) {
		t.Fatalf("first pass = %v, want %v", rec.calls, want)
	}

	d.Dispatch()
	want := []string{"toggle", "modal:ShowHelp", "reinstall", "about", "toggle"}
	if !reflect.DeepEqual(rec.calls, want) {
		t.Errorf("calls = %v, want %v", rec.calls, want)
	}
}

func TestSecondModalAfterClose(t *testing.T) {
	bus := event.NewBus()
	pub := bus.Publisher()
	rec := &recorder{}
	rec.onModal = func(kind event.AppEvent) {
		pub.Publish(event.SettingsClosed)
	}
	d := New(bus, rec)

	pub.Publish(event.OpenSettings)
	d.Dispatch()
	d.Dispatch()

	// A fresh request after the modal closed is honored.
	pub.Publish(event.ShowHelp)
	d.Dispatch()

	want := []event.AppEvent{event.OpenSettings, event.ShowHelp}
	if !reflect.DeepEqual(rec.modals, want) {
		t.Errorf("modals = %v, want %v", rec.modals, want)
	}
}

func TestSettle(t *testing.T) {
	got := settle(
		[]event.AppEvent{event.ToggleOverlay, event.OpenSettings},
		[]event.AppEvent{event.ShowHelp, event.ReinstallHotkeys, event.HelpClosed, event.SettingsClosed},
	)
	want := []event.AppEvent{event.HelpClosed, event.SettingsClosed, event.ToggleOverlay, event.ReinstallHotkeys}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("settle = %v, want %v", got, want)
	}
}
