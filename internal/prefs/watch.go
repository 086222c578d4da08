package prefs

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	debounce     = 200 * time.Millisecond
	ownWriteMask = time.Second
)

// Watcher reports edits to a FileStore's file made by other programs.
type Watcher struct {
	store   *FileStore
	fsw     *fsnotify.Watcher
	changes chan struct{}
}

// Watch starts watching the directory holding store's file. The directory
// is watched rather than the file so that editors that replace the file
// by rename are still observed.
func Watch(ctx context.Context, store *FileStore) (*Watcher, error) {
	dir := filepath.Dir(store.Path())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create preferences directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		store:   store,
		fsw:     fsw,
		changes: make(chan struct{}, 1),
	}
	go w.loop(ctx)
	return w, nil
}

// Changes delivers a value after the file settles following an external
// edit. Bursts coalesce into one notification.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	name := filepath.Clean(w.store.Path())
	var timer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != name {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, w.fire)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("Preferences watcher error: %v", err)
		}
	}
}

func (w *Watcher) fire() {
	if w.store.wroteRecently(ownWriteMask) {
		return
	}
	select {
	case w.changes <- struct{}{}:
	default:
	}
}
