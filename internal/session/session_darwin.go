//go:build darwin

package session

import (
	"context"
	"sync"

	"github.com/prashantgupta24/mac-sleep-notifier/notifier"

	"github.com/phinze/halo/internal/platform"
)

func start(ctx context.Context, wg *sync.WaitGroup, emit func(platform.EventKind)) (func(), error) {
	// The notifier is a process-wide singleton that runs until exit.
	activity := notifier.GetInstance().Start()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case a, ok := <-activity:
				if !ok {
					return
				}
				if a.Type == notifier.Awake {
					emit(platform.Wake)
				}
			}
		}
	}()

	return func() {}, nil
}
