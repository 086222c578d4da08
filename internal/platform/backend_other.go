//go:build !linux && !windows

package platform

import (
	"fmt"
	"runtime"
)

// Open reports that no native backend exists for this OS.
//
// TODO: add a Cocoa backend (NSPanel at screen-saver level with
// canJoinAllSpaces) so darwin builds can draw.
func Open() (Backend, error) {
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, runtime.GOOS)
}
