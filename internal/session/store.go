package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNoState is returned by Load when nothing has been persisted yet.
var ErrNoState = errors.New("no stored history")

// BucketName is the single key-value bucket all persisted fields live under.
const BucketName = "studyai-storage"

// Store persists the history index and preferences.
type Store interface {
	Save(ctx context.Context, s *State) error
	Load(ctx context.Context) (*State, error) // returns ErrNoState if none exists
}

// diskStore writes the bucket as one JSON file in the XDG data directory.
type diskStore struct {
	path string // full path to studyai-storage.json

	mu          sync.Mutex
	lastWritten []byte // lets Watch skip events caused by our own writes
}

// NewDiskStore returns a Store backed by the XDG data directory.
// Path: $XDG_DATA_HOME/studyai/studyai-storage.json or ~/.local/share/studyai/studyai-storage.json
func NewDiskStore() (Store, error) {
	dir, err := DataDir()
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &diskStore{path: filepath.Join(dir, BucketName+".json")}, nil
}

// DataDir returns the studyai-specific XDG data directory.
func DataDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "studyai"), nil
}

// Path reports the file the store writes to.
func (d *diskStore) Path() string { return d.path }

// Save marshals s to JSON and writes it atomically via a temp file + os.Rename.
func (d *diskStore) Save(_ context.Context, s *State) (err error) {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to persist history: %w", err)
	}

	// Write to a temp file in the same directory so os.Rename is atomic.
	tmp, err := os.CreateTemp(filepath.Dir(d.path), BucketName+"-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to persist history: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist history: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to persist history: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err = os.Rename(tmpName, d.path); err != nil {
		return fmt.Errorf("failed to persist history: %w", err)
	}
	d.lastWritten = data
	return nil
}

// ownWrite reports whether data is exactly what this store last wrote.
func (d *diskStore) ownWrite(data []byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastWritten != nil && string(d.lastWritten) == string(data)
}

// Load reads and unmarshals the bucket file.
// Returns ErrNoState if the file does not exist.
func (d *diskStore) Load(_ context.Context) (*State, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoState
		}
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return decodeState(data)
}

func decodeState(data []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}
	s.normalize()
	return &s, nil
}

// LoadOrDefault loads the stored state, falling back to DefaultState when
// nothing was persisted yet. A non-empty level replaces the default level of
// a fresh state.
func LoadOrDefault(ctx context.Context, st Store, level string) (*State, error) {
	s, err := st.Load(ctx)
	if errors.Is(err, ErrNoState) {
		d := DefaultState()
		if level != "" {
			d.Level = level
		}
		return d, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
