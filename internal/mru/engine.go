// Package mru tracks the most-recently-used order of host tabs.
//
// The Engine is the only owner of the list and of the last focused window.
// Host events mutate it through the On* handlers; the switch controller reads
// it through Snapshot and prunes it through Remove. Every mutation is saved to
// the store before the handler returns. Host queries never run under the lock:
// list mutations are applied synchronously when the event arrives, and only the
// last-window bookkeeping waits for a query.
package mru

import (
	"context"
	"sync"

	"github.com/martinwickman/tabswitch/internal/host"
	"github.com/martinwickman/tabswitch/internal/logx"
	"github.com/martinwickman/tabswitch/internal/store"
	"pkt.systems/pslog"
)

// Cap is the maximum number of tabs tracked.
const Cap = 10

// Engine owns the MRU list and the last focused window.
type Engine struct {
	host  host.Host
	store store.Store
	log   pslog.Logger

	mu         sync.Mutex
	tabs       []host.TabID
	last       host.WindowID
	generation int
}

// New returns an empty engine. A nil logger falls back to the default logger.
func New(h host.Host, s store.Store, log pslog.Logger) *Engine {
	return &Engine{
		host:  h,
		store: s,
		log:   logx.Or(log),
		last:  host.NoWindow,
	}
}

// OnTabActivated moves id to the front. The activation is authoritative: the
// list changes even if the follow-up window lookup fails.
func (e *Engine) OnTabActivated(ctx context.Context, id host.TabID) {
	log := logx.WithTab(e.log, id)

	e.mu.Lock()
	e.tabs = touch(e.tabs, id)
	e.mu.Unlock()

	tab, err := e.host.GetTab(ctx, id)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		log.Warn("tab lookup failed; last window unchanged", "err", err)
	} else {
		e.last = tab.WindowID
	}
	log.Debug("tab activated", "window", int(e.last), "tracked", len(e.tabs))
	e.persistLocked(ctx)
}

// OnTabRemoved forgets id. The last window is left alone.
func (e *Engine) OnTabRemoved(ctx context.Context, id host.TabID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tabs = without(e.tabs, id)
	logx.WithTab(e.log, id).Debug("tab removed", "tracked", len(e.tabs))
	e.persistLocked(ctx)
}

// OnWindowFocusChanged records a window switch. Moving focus to another window
// counts as activating that window's active tab; the very first focus event
// only records the window, since focusing the initial window is not a switch.
func (e *Engine) OnWindowFocusChanged(ctx context.Context, window host.WindowID) {
	log := logx.WithWindow(e.log, window)
	if window == host.NoWindow {
		log.Debug("focus left all windows")
		return
	}

	tab, ok, err := e.host.ActiveTabIn(ctx, window)
	if err != nil {
		log.Warn("active tab lookup failed", "err", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	prev := e.last
	touched := false
	if err == nil && ok && prev != host.NoWindow && prev != window {
		e.tabs = touch(e.tabs, tab.ID)
		touched = true
	}
	e.last = window
	if !touched && prev == window {
		return
	}
	log.Debug("window focused", "previous", int(prev), "touched", touched)
	e.persistLocked(ctx)
}

// Remove prunes a stale id found by the switch controller.
func (e *Engine) Remove(ctx context.Context, id host.TabID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tabs = without(e.tabs, id)
	logx.WithTab(e.log, id).Debug("pruned stale tab", "tracked", len(e.tabs))
	e.persistLocked(ctx)
}

// Snapshot returns a copy of the list, most recent first.
func (e *Engine) Snapshot() []host.TabID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]host.TabID(nil), e.tabs...)
}

// LastWindow returns the last window known to be focused.
func (e *Engine) LastWindow() (host.WindowID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last, e.last != host.NoWindow
}

// Len returns the number of tracked tabs.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tabs)
}

// Generation returns the host generation the tracked ids belong to.
func (e *Engine) Generation() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

// replace installs a reconciled state and saves it.
func (e *Engine) replace(ctx context.Context, tabs []host.TabID, last host.WindowID, generation int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tabs = tabs
	e.last = last
	e.generation = generation
	e.persistLocked(ctx)
}

// persistLocked saves the in-memory state. Failures are logged; memory stays
// authoritative and the next mutation saves again.
func (e *Engine) persistLocked(ctx context.Context) {
	snap := store.Snapshot{
		RecentTabs:     append([]host.TabID(nil), e.tabs...),
		LastWindowID:   e.last,
		HostGeneration: e.generation,
	}
	if err := e.store.Save(ctx, snap); err != nil {
		e.log.Warn("state save failed", "err", err)
	}
}

// touch moves id to the front of list, dropping any older occurrence and
// truncating to Cap. list is not modified.
func touch(list []host.TabID, id host.TabID) []host.TabID {
	out := make([]host.TabID, 0, min(len(list)+1, Cap))
	out = append(out, id)
	for _, t := range list {
		if len(out) == Cap {
			break
		}
		if t != id {
			out = append(out, t)
		}
	}
	return out
}

// without returns list minus every occurrence of id.
func without(list []host.TabID, id host.TabID) []host.TabID {
	out := make([]host.TabID, 0, len(list))
	for _, t := range list {
		if t != id {
			out = append(out, t)
		}
	}
	return out
}
