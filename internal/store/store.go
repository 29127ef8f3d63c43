// Package store persists the tracker's snapshot: the MRU list, the last focused
// window and the host generation the ids belong to.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/martinwickman/tabswitch/internal/host"
)

// Persisted slot names.
const (
	KeyRecentTabs     = "recentTabs"
	KeyLastWindowID   = "lastWindowId"
	KeyHostGeneration = "hostGeneration"
)

// Snapshot is the persisted tracker state. LastWindowID is host.NoWindow when
// unset and HostGeneration is zero when unknown.
type Snapshot struct {
	RecentTabs     []host.TabID
	LastWindowID   host.WindowID
	HostGeneration int
}

// Empty returns the snapshot a fresh install starts from.
func Empty() Snapshot {
	return Snapshot{LastWindowID: host.NoWindow}
}

// Store loads and saves snapshots. Save replaces every slot at once.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
	Close() error
}

// Drivers accepted by Open.
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Dir returns the default state directory, respecting TABSWITCH_STATE_DIR.
func Dir() string {
	if dir := os.Getenv("TABSWITCH_STATE_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".tabswitch")
}

// Open returns the store for driver. path is the state file (json) or
// database (sqlite); empty picks a default inside dir.
func Open(driver, dir, path string) (Store, error) {
	switch driver {
	case "", DriverJSON:
		if path == "" {
			path = filepath.Join(dir, "state.json")
		}
		return NewFileStore(path)
	case DriverSQLite:
		if path == "" {
			path = filepath.Join(dir, "state.db")
		}
		return OpenSQLite(path)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func (s Snapshot) clone() Snapshot {
	s.RecentTabs = append([]host.TabID(nil), s.RecentTabs...)
	return s
}

// Memory keeps the snapshot in process memory.
type Memory struct {
	mu    sync.Mutex
	snap  Snapshot
	saves int
	err   error
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{snap: Empty()}
}

// NewMemoryWith returns an in-memory store preloaded with snap.
func NewMemoryWith(snap Snapshot) *Memory {
	return &Memory{snap: snap.clone()}
}

func (m *Memory) Load(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Snapshot{}, m.err
	}
	return m.snap.clone(), nil
}

func (m *Memory) Save(ctx context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.snap = snap.clone()
	m.saves++
	return nil
}

func (m *Memory) Close() error { return nil }

// Fail makes every later Load and Save return err; nil restores normal operation.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Saves returns the number of successful saves.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Current returns the last saved snapshot without going through Load.
func (m *Memory) Current() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.clone()
}
