// Package prefs persists the overlay appearance in a small key/value store.
package prefs

import (
	"errors"
	"math"
	"sync"
)

// Keys recognized in the store.
const (
	KeyRadius       = "radius"
	KeyBorderWidth  = "borderWidth"
	KeyStrokeR      = "strokeR"
	KeyStrokeG      = "strokeG"
	KeyStrokeB      = "strokeB"
	KeyStrokeA      = "strokeA"
	KeyTransparency = "fillTransparencyPct"
	KeyLang         = "lang"
)

// ErrIO is returned when the backing file cannot be read or written.
// Callers keep running on defaults or in-memory values.
var ErrIO = errors.New("preferences I/O failed")

// Store is a key/value preference store.
type Store interface {
	GetReal(key string, def float64) float64
	SetReal(key string, v float64)
	GetInt(key string, def int) int
	SetInt(key string, v int)
	Flush() error
}

// MemoryStore keeps preferences in memory only.
type MemoryStore struct {
	mu      sync.Mutex
	values  map[string]float64
	flushes int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]float64)}
}

func (m *MemoryStore) GetReal(key string, def float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.values[key]; ok {
		return v
	}
	return def
}

func (m *MemoryStore) SetReal(key string, v float64) {
	m.mu.Lock()
	m.values[key] = v
	m.mu.Unlock()
}

func (m *MemoryStore) GetInt(key string, def int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.values[key]; ok {
		return int(math.Round(v))
	}
	return def
}

func (m *MemoryStore) SetInt(key string, v int) {
	m.SetReal(key, float64(v))
}

// Flush counts calls so tests can assert when state was persisted.
func (m *MemoryStore) Flush() error {
	m.mu.Lock()
	m.flushes++
	m.mu.Unlock()
	return nil
}

// Flushes returns how many times Flush was called.
func (m *MemoryStore) Flushes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushes
}
