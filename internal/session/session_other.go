//go:build !linux && !darwin

package session

import (
	"context"
	"sync"

	"github.com/phinze/halo/internal/platform"
)

// The Windows backend reports power and session messages through its own
// event channel, so there is nothing to start here.
func start(context.Context, *sync.WaitGroup, func(platform.EventKind)) (func(), error) {
	return func() {}, nil
}
