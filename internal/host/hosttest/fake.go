// Package hosttest provides an in-memory host.Host for tests.
package hosttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/martinwickman/tabswitch/internal/host"
)

// Fake is an in-memory host. Tabs live in windows; each window has at most
// one active tab and at most one window is focused. Successful SetTabActive and
// FocusWindow calls are delivered back through OnActivated and OnFocused, the way
// a real host reports its own state changes.
type Fake struct {
	mu      sync.Mutex
	tabs    map[host.TabID]host.Tab
	order   []host.TabID
	active  map[host.WindowID]host.TabID
	focused host.WindowID
	gen     int
	calls   []string

	getErr      map[host.TabID]error
	activateErr map[host.TabID]error
	focusErr    map[host.WindowID]error
	listErr     error
	activeErr   error

	OnActivated func(ctx context.Context, id host.TabID)
	OnFocused   func(ctx context.Context, window host.WindowID)
}

var _ host.Host = (*Fake)(nil)

// New returns an empty fake host with no focused window.
func New() *Fake {
	return &Fake{
		tabs:        make(map[host.TabID]host.Tab),
		active:      make(map[host.WindowID]host.TabID),
		focused:     host.NoWindow,
		getErr:      make(map[host.TabID]error),
		activateErr: make(map[host.TabID]error),
		focusErr:    make(map[host.WindowID]error),
	}
}

// AddTab registers a live tab. The first tab added to a window becomes its active tab.
func (f *Fake) AddTab(id host.TabID, window host.WindowID, lastAccessed int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tabs[id]; !ok {
		f.order = append(f.order, id)
	}
	f.tabs[id] = host.Tab{ID: id, WindowID: window, LastAccessed: lastAccessed, Title: fmt.Sprintf("tab %d", id)}
	if _, ok := f.active[window]; !ok {
		f.active[window] = id
	}
}

// Activate marks id active in its window without delivering an event.
func (f *Fake) Activate(id host.TabID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tabs[id]; ok {
		f.active[t.WindowID] = id
	}
}

// Focus focuses window without delivering an event.
func (f *Fake) Focus(window host.WindowID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.focused = window
}

// Drop destroys a tab without delivering a removal event.
func (f *Fake) Drop(id host.TabID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tabs[id]
	if !ok {
		return
	}
	delete(f.tabs, id)
	for i, o := range f.order {
		if o == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	if active, ok := f.active[t.WindowID]; ok && active == id {
		delete(f.active, t.WindowID)
	}
}

// SetGeneration sets the value reported by Generation.
func (f *Fake) SetGeneration(gen int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen = gen
}

// FailGetTab makes GetTab(id) return err.
func (f *Fake) FailGetTab(id host.TabID, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getErr[id] = err
}

// FailSetActive makes SetTabActive(id) return err.
func (f *Fake) FailSetActive(id host.TabID, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activateErr[id] = err
}

// FailFocus makes FocusWindow(window) return err.
func (f *Fake) FailFocus(window host.WindowID, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.focusErr[window] = err
}

// FailList makes ListTabs return err.
func (f *Fake) FailList(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

// FailActive makes ActiveTab and ActiveTabIn return err.
func (f *Fake) FailActive(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activeErr = err
}

// Calls returns the mutating calls made so far, e.g. "focus 2", "activate 12".
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Focused returns the focused window.
func (f *Fake) Focused() host.WindowID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.focused
}

// ActiveIn returns the active tab of window, if any.
func (f *Fake) ActiveIn(window host.WindowID) (host.TabID, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.active[window]
	return id, ok
}

func (f *Fake) Name() string    { return "fake" }
func (f *Fake) Available() bool { return true }

func (f *Fake) ListTabs(ctx context.Context) ([]host.Tab, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	tabs := make([]host.Tab, 0, len(f.order))
	for _, id := range f.order {
		tabs = append(tabs, f.tabLocked(id))
	}
	return tabs, nil
}

func (f *Fake) GetTab(ctx context.Context, id host.TabID) (host.Tab, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.getErr[id]; err != nil {
		return host.Tab{}, err
	}
	if _, ok := f.tabs[id]; !ok {
		return host.Tab{}, fmt.Errorf("tab %d: %w", id, host.ErrGone)
	}
	return f.tabLocked(id), nil
}

func (f *Fake) ActiveTab(ctx context.Context) (host.Tab, bool, error) {
	f.mu.Lock()
	focused := f.focused
	f.mu.Unlock()
	if focused == host.NoWindow {
		f.mu.Lock()
		err := f.activeErr
		f.mu.Unlock()
		return host.Tab{}, false, err
	}
	return f.ActiveTabIn(ctx, focused)
}

func (f *Fake) ActiveTabIn(ctx context.Context, window host.WindowID) (host.Tab, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.activeErr != nil {
		return host.Tab{}, false, f.activeErr
	}
	id, ok := f.active[window]
	if !ok {
		return host.Tab{}, false, nil
	}
	return f.tabLocked(id), true, nil
}

func (f *Fake) SetTabActive(ctx context.Context, id host.TabID) error {
	f.mu.Lock()
	f.calls = append(f.calls, fmt.Sprintf("activate %d", id))
	if err := f.activateErr[id]; err != nil {
		f.mu.Unlock()
		return err
	}
	t, ok := f.tabs[id]
	if !ok {
		f.mu.Unlock()
		return fmt.Errorf("tab %d: %w", id, host.ErrGone)
	}
	f.active[t.WindowID] = id
	cb := f.OnActivated
	f.mu.Unlock()

	if cb != nil {
		cb(ctx, id)
	}
	return nil
}

func (f *Fake) FocusWindow(ctx context.Context, window host.WindowID) error {
	f.mu.Lock()
	f.calls = append(f.calls, fmt.Sprintf("focus %d", window))
	if err := f.focusErr[window]; err != nil {
		f.mu.Unlock()
		return err
	}
	if !f.hasWindowLocked(window) {
		f.mu.Unlock()
		return fmt.Errorf("window %d: %w", window, host.ErrGone)
	}
	f.focused = window
	cb := f.OnFocused
	f.mu.Unlock()

	if cb != nil {
		cb(ctx, window)
	}
	return nil
}

func (f *Fake) Generation(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gen, nil
}

func (f *Fake) tabLocked(id host.TabID) host.Tab {
	return f.tabs[id]
}

func (f *Fake) hasWindowLocked(window host.WindowID) bool {
	for _, t := range f.tabs {
		if t.WindowID == window {
			return true
		}
	}
	return false
}
