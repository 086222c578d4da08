package prefs

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// DefaultDir is the preferences directory relative to the home directory.
	DefaultDir = ".config/halo"
	// FileName is the default preferences file name.
	FileName = "prefs.json"
)

// DefaultPath returns ~/.config/halo/prefs.json.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(DefaultDir, FileName)
	}
	return filepath.Join(home, DefaultDir, FileName)
}

// FileStore is a Store backed by a JSON object on disk. Writes happen on
// Flush, or on the next Set after a failed write.
type FileStore struct {
	path string

	mu        sync.Mutex
	values    map[string]float64
	dirty     bool
	failed    bool
	lastWrite time.Time
}

// OpenFile loads the store at path. A missing file yields an empty store.
// Any other read or parse failure returns a usable empty store together
// with an error wrapping ErrIO.
func OpenFile(path string) (*FileStore, error) {
	s := &FileStore{path: path, values: make(map[string]float64)}
	if err := s.Reload(); err != nil {
		return s, err
	}
	return s, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Reload replaces the in-memory values with the file's contents.
func (s *FileStore) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: read %s: %v", ErrIO, s.path, err)
	}

	values := make(map[string]float64)
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrIO, s.path, err)
	}

	s.mu.Lock()
	s.values = values
	s.dirty = false
	s.mu.Unlock()
	return nil
}

func (s *FileStore) GetReal(key string, def float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

func (s *FileStore) SetReal(key string, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}

	s.mu.Lock()
	if old, ok := s.values[key]; !ok || old != v {
		s.values[key] = v
		s.dirty = true
	}
	retry := s.failed && s.dirty
	s.mu.Unlock()

	if retry {
		if err := s.Flush(); err != nil {
			log.Printf("Preferences still not writable: %v", err)
		}
	}
}

func (s *FileStore) GetInt(key string, def int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[key]; ok {
		return int(math.Round(v))
	}
	return def
}

func (s *FileStore) SetInt(key string, v int) {
	s.SetReal(key, float64(v))
}

// Flush writes pending changes. A failed write leaves the store dirty.
func (s *FileStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}

	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrIO, err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		s.failed = true
		return fmt.Errorf("%w: %v", ErrIO, err)
	}

	s.dirty = false
	s.failed = false
	s.lastWrite = time.Now()
	return nil
}

// wroteRecently reports whether this store wrote the file within d.
func (s *FileStore) wroteRecently(d time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.lastWrite.IsZero() && time.Since(s.lastWrite) < d
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
