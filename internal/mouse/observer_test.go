package mouse

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phinze/halo/internal/model"
	"github.com/phinze/halo/internal/platform"
)

func TestObserveTransitions(t *testing.T) {
	var (
		none  = platform.Buttons{}
		left  = platform.Buttons{Primary: true}
		right = platform.Buttons{Secondary: true}
		both  = platform.Buttons{Primary: true, Secondary: true}
	)

	tests := []struct {
		name    string
		samples []platform.Buttons
		want    model.DisplayMode
		notifs  int
	}{
		{"idle", []platform.Buttons{none, none}, model.ModeRing, 0},
		{"primary press", []platform.Buttons{left}, model.ModeLeftPressed, 1},
		{"primary held", []platform.Buttons{left, left, left}, model.ModeLeftPressed, 1},
		{"primary release", []platform.Buttons{left, none}, model.ModeRing, 2},
		{"secondary press", []platform.Buttons{right}, model.ModeRightPressed, 1},
		{"secondary release", []platform.Buttons{right, none}, model.ModeRing, 2},
		{"secondary during primary", []platform.Buttons{left, both}, model.ModeRightPressed, 2},
		{"release one of two", []platform.Buttons{left, both, right}, model.ModeRing, 3},
		{"swap in one sample", []platform.Buttons{left, right}, model.ModeRightPressed, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cell model.ModeCell
			n := 0
			o := NewObserver(nil, &cell, func() { n++ })
			for _, b := range tt.samples {
				o.Observe(b)
			}
			if got := cell.Load(); got != tt.want {
				t.Errorf("mode = %v, want %v", got, tt.want)
			}
			if n != tt.notifs {
				t.Errorf("notifications = %d, want %d", n, tt.notifs)
			}
		})
	}
}

type buttonSource struct {
	mu sync.Mutex
	b  platform.Buttons
}

func (s *buttonSource) set(b platform.Buttons) {
	s.mu.Lock()
	s.b = b
	s.mu.Unlock()
}

func (s *buttonSource) Buttons() (platform.Buttons, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b, nil
}

func TestRunPolls(t *testing.T) {
	src := &buttonSource{}
	var cell model.ModeCell
	var notified atomic.Int32
	o := NewObserver(src, &cell, func() { notified.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		o.Run(ctx, time.Millisecond)
		close(done)
	}()

	src.set(platform.Buttons{Primary: true})
	deadline := time.Now().Add(2 * time.Second)
	for cell.Load() != model.ModeLeftPressed && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	if got := cell.Load(); got != model.ModeLeftPressed {
		t.Errorf("mode = %v, want %v", got, model.ModeLeftPressed)
	}
	if notified.Load() == 0 {
		t.Error("no redraw requested")
	}
}
