// Package cursor samples the global pointer position once per frame.
package cursor

import (
	"image"
	"log"
)

// Source reports the pointer position in virtual-screen coordinates.
type Source interface {
	CursorPosition() (image.Point, error)
}

// Tracker keeps the last good sample so a failed query does not make the
// highlight jump.
type Tracker struct {
	src     Source
	last    image.Point
	valid   bool
	failing bool
}

// NewTracker creates a tracker reading from src.
func NewTracker(src Source) *Tracker {
	return &Tracker{src: src}
}

// Sample queries the pointer. On failure it returns the last known
// position; ok is false only if no position has ever been read. The first
// failure in a run is logged.
func (t *Tracker) Sample() (p image.Point, ok bool) {
	pos, err := t.src.CursorPosition()
	if err != nil {
		if !t.failing {
			log.Printf("Cursor query failed, holding last position: %v", err)
			t.failing = true
		}
		return t.last, t.valid
	}
	if t.failing {
		log.Printf("Cursor query recovered")
		t.failing = false
	}
	t.last, t.valid = pos, true
	return pos, true
}
