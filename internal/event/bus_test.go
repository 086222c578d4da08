package event

import (
	"sync"
	"testing"
)

func TestDrainEmpty(t *testing.T) {
	bus := NewBus()
	if got := bus.Drain(); len(got) != 0 {
		t.Errorf("expected no events, got %v", got)
	}
}

func TestDrainFIFO(t *testing.T) {
	bus := NewBus()
	pub := bus.Publisher()

	pub.Publish(ToggleOverlay)
	pub.Publish(OpenSettings)
	pub.Publish(ToggleOverlay)

	got := bus.Drain()
	want := []AppEvent{ToggleOverlay, OpenSettings, ToggleOverlay}
	if !equal(got, want) {
		t.Fatalf("Drain() = %v, want %v", got, want)
	}
	if again := bus.Drain(); len(again) != 0 {
		t.Errorf("second drain should be empty, got %v", again)
	}
}

func TestCopiedPublishersShareBus(t *testing.T) {
	bus := NewBus()
	a := bus.Publisher()
	b := a

	a.Publish(ShowHelp)
	b.Publish(HelpClosed)

	if got := bus.Drain(); !equal(got, []AppEvent{ShowHelp, HelpClosed}) {
		t.Errorf("unexpected events %v", got)
	}
}

func TestPublishAfterCloseIsNoop(t *testing.T) {
	bus := NewBus()
	pub := bus.Publisher()
	pub.Publish(ToggleOverlay)

	bus.Close()
	pub.Publish(RequestQuit)

	if got := bus.Drain(); len(got) != 0 {
		t.Errorf("closed bus should drop events, got %v", got)
	}

	var zero Publisher
	zero.Publish(ToggleOverlay)
}

// Events from concurrent producers are neither lost nor duplicated while the
// consumer drains.
func TestConcurrentPublishers(t *testing.T) {
	const producers = 4
	const perProducer = 500

	bus := NewBus()
	var wg sync.WaitGroup

	for p := 0; p < producers; p++ {
		pub := bus.Publisher()
		kind := All[p]
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				pub.Publish(kind)
			}
		}()
	}

	var seen []AppEvent
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for {
		seen = append(seen, bus.Drain()...)
		select {
		case <-done:
			seen = append(seen, bus.Drain()...)
			counts := map[AppEvent]int{}
			for _, e := range seen {
				counts[e]++
			}
			for p := 0; p < producers; p++ {
				if counts[All[p]] != perProducer {
					t.Errorf("producer %d: got %d events, want %d", p, counts[All[p]], perProducer)
				}
			}
			return
		default:
		}
	}
}

func TestSequencedSingleProducerOrder(t *testing.T) {
	bus := NewBus()
	pub := bus.Publisher()

	var want []AppEvent
	var got []AppEvent
	for i := 0; i < 100; i++ {
		e := All[i%len(All)]
		want = append(want, e)
		pub.Publish(e)
		if i%7 == 0 {
			got = append(got, bus.Drain()...)
			if !equal(got, want[:len(got)]) {
				t.Fatalf("drained sequence is not a prefix of publish order at %d", i)
			}
		}
	}
	got = append(got, bus.Drain()...)
	if !equal(got, want) {
		t.Errorf("final sequence mismatch")
	}
}

func equal(a, b []AppEvent) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
