package session

import (
	"context"
	"testing"

	"github.com/phinze/halo/internal/platform"
)

func TestEmitDoesNotBlock(t *testing.T) {
	_, cancel := context.WithCancel(context.Background())
	w := &Watcher{events: make(chan platform.Event, 2), cancel: cancel}

	for i := 0; i < 5; i++ {
		w.emit(platform.Wake)
	}
	if got := len(w.events); got != 2 {
		t.Errorf("queued = %d, want 2", got)
	}

	w.Close()
	w.Close()
}
