package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ErrWatchUnsupported is returned by Watch for stores that are not file backed.
var ErrWatchUnsupported = errors.New("store does not support watching")

// Watch reports changes written to the bucket file by another process until
// ctx is cancelled. Writes made through st itself are not reported.
func Watch(ctx context.Context, st Store, onChange func(*State)) error {
	d, ok := st.(*diskStore)
	if !ok {
		return ErrWatchUnsupported
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Saves replace the file via rename, so watch the directory rather than
	// the file itself.
	if err := watcher.Add(filepath.Dir(d.path)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(d.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			data, err := os.ReadFile(d.path)
			if err != nil || d.ownWrite(data) {
				continue
			}
			s, err := decodeState(data)
			if err != nil {
				continue // half-written or foreign file; wait for the next event
			}
			onChange(s)

		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// Watcher errors are non-fatal; continue watching.
		}
	}
}
