// Package dispatch applies queued application events on the main loop and
// keeps at most one modal open at a time.
package dispatch

import (
	"log"
	"sync/atomic"

	"github.com/phinze/halo/internal/event"
)

// Actions carries out dispatched events. All methods run on the main loop.
type Actions interface {
	ToggleOverlay()
	// RunModal blocks until the modal for kind (OpenSettings, RequestQuit
	// or ShowHelp) is dismissed.
	RunModal(kind event.AppEvent)
	ShowAbout()
	ReinstallHotkeys()
}

// Dispatcher drains a bus into Actions.
type Dispatcher struct {
	bus     *event.Bus
	actions Actions

	// Debug logs every applied event.
	Debug bool

	busy  atomic.Bool
	carry []event.AppEvent
}

// New creates a dispatcher consuming bus.
func New(bus *event.Bus, actions Actions) *Dispatcher {
	return &Dispatcher{bus: bus, actions: actions}
}

// Dispatch runs one pass. A call made while another pass is in progress,
// such as from a tick nested inside a modal, returns immediately.
//
// A pass stops after the first modal. Events queued while the modal was
// open are then split: modal-opening events are discarded and the rest
// are held for the next pass with the modal's follow-up events first.
func (d *Dispatcher) Dispatch() {
	if !d.busy.CompareAndSwap(false, true) {
		return
	}
	defer d.busy.Store(false)

	events := append(d.carry, d.bus.Drain()...)
	d.carry = nil

	for i, e := range events {
		if d.Debug {
			log.Printf("Dispatch %v", e)
		}
		if e.IsModal() {
			d.actions.RunModal(e)
			d.carry = settle(events[i+1:], d.bus.Drain())
			return
		}
		d.apply(e)
	}
}

// Pending returns the events held over for the next pass.
func (d *Dispatcher) Pending() []event.AppEvent {
	return append([]event.AppEvent(nil), d.carry...)
}

func (d *Dispatcher) apply(e event.AppEvent) {
	switch {
	case e == event.ToggleOverlay:
		d.actions.ToggleOverlay()
	case e == event.ShowAbout:
		d.actions.ShowAbout()
	case e.RequiresHotkeyReinstall():
		d.actions.ReinstallHotkeys()
	default:
		log.Printf("Ignoring unexpected event %v", e)
	}
}

// settle drops modal-opening events and moves follow-ups to the front,
// keeping relative order within each group.
func settle(batches ...[]event.AppEvent) []event.AppEvent {
	var follow, rest []event.AppEvent
	for _, batch := range batches {
		for _, e := range batch {
			switch {
			case e.IsModal():
			case e.IsFollowUp():
				follow = append(follow, e)
			default:
				rest = append(rest, e)
			}
		}
	}
	return append(follow, rest...)
}
