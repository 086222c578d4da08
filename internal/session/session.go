// Package session observes system events that can silently revoke global
// input registrations: resume from sleep and session unlock.
package session

import (
	"context"
	"sync"

	"github.com/phinze/halo/internal/platform"
)

// Watcher delivers Wake and SessionActive events.
type Watcher struct {
	events chan platform.Event
	cancel context.CancelFunc
	stop   func()
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// Watch starts the platform observers. Sends are non-blocking; a burst
// that overflows the channel collapses into the events already queued.
func Watch(ctx context.Context) (*Watcher, error) {
	ctx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		events: make(chan platform.Event, 8),
		cancel: cancel,
	}

	stop, err := start(ctx, &w.wg, w.emit)
	if err != nil {
		cancel()
		return nil, err
	}
	w.stop = stop
	return w, nil
}

// Events returns the event channel. It is never closed.
func (w *Watcher) Events() <-chan platform.Event {
	return w.events
}

// Close stops all observers and waits for them to exit.
func (w *Watcher) Close() {
	w.closeOnce.Do(func() {
		w.cancel()
		if w.stop != nil {
			w.stop()
		}
		w.wg.Wait()
	})
}

func (w *Watcher) emit(kind platform.EventKind) {
	select {
	case w.events <- platform.Event{Kind: kind}:
	default:
	}
}
