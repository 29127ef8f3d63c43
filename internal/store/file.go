package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore keeps the snapshot in a single JSON object, one member per slot.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a store writing to path, creating its directory.
func NewFileStore(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("state file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating state dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Path returns the state file location.
func (s *FileStore) Path() string { return s.path }

// Load reads the snapshot. A missing file is an empty snapshot.
func (s *FileStore) Load(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Empty(), nil
		}
		return Empty(), fmt.Errorf("reading state: %w", err)
	}
	var slots map[string]json.RawMessage
	if err := json.Unmarshal(data, &slots); err != nil {
		return Empty(), fmt.Errorf("parsing state: %w", err)
	}
	return decodeSlots(slots)
}

// Save replaces the state file via a temp file and rename, so readers never
// see a partial write.
func (s *FileStore) Save(ctx context.Context, snap Snapshot) error {
	slots, err := encodeSlots(snap)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(slots, "", "    ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "state-*.json")
	if err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing state: %w", err)
	}
	return nil
}

// Close is a no-op; every Save is complete when it returns.
func (s *FileStore) Close() error { return nil }
