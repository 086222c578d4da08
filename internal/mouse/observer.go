// Package mouse turns global pointer button transitions into display modes.
package mouse

import (
	"context"
	"log"
	"time"

	"github.com/phinze/halo/internal/model"
	"github.com/phinze/halo/internal/platform"
)

// Source reports the current pointer button state.
type Source interface {
	Buttons() (platform.Buttons, error)
}

// Observer polls a Source and writes the resulting display mode into a
// ModeCell. It never consumes or alters pointer events.
type Observer struct {
	src    Source
	cell   *model.ModeCell
	notify func()

	prev   platform.Buttons
	failed bool
}

// NewObserver creates an observer. notify is called from the polling
// goroutine whenever the mode changes and must not block.
func NewObserver(src Source, cell *model.ModeCell, notify func()) *Observer {
	return &Observer{src: src, cell: cell, notify: notify}
}

// Run polls every interval until ctx is done.
func (o *Observer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.poll()
		}
	}
}

func (o *Observer) poll() {
	b, err := o.src.Buttons()
	if err != nil {
		if !o.failed {
			log.Printf("Pointer button query failed: %v", err)
			o.failed = true
		}
		return
	}
	o.failed = false
	o.Observe(b)
}

// Observe applies one button sample. Releases are handled before presses,
// so a release of one button together with a press of the other ends on
// the pressed button's mode.
func (o *Observer) Observe(b platform.Buttons) {
	prev := o.prev
	o.prev = b

	mode, changed := o.cell.Load(), false
	if (prev.Primary && !b.Primary) || (prev.Secondary && !b.Secondary) {
		mode, changed = model.ModeRing, true
	}
	if b.Primary && !prev.Primary {
		mode, changed = model.ModeLeftPressed, true
	}
	if b.Secondary && !prev.Secondary {
		mode, changed = model.ModeRightPressed, true
	}
	if !changed {
		return
	}
	if o.cell.Store(mode) && o.notify != nil {
		o.notify()
	}
}
