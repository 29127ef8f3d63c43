// Package host defines the capability set a windowed tab host (tmux, etc.) provides to the
// tracker: a tab registry, window focus and the identifiers it hands out.
package host

import (
	"context"
	"errors"
)

// TabID is an opaque tab handle assigned by the host.
type TabID int

// WindowID is an opaque window handle assigned by the host.
type WindowID int

// NoWindow is the sentinel for "no window focused" and for an unknown window.
const NoWindow WindowID = -1

// ErrGone reports that a tab or window no longer exists on the host.
var ErrGone = errors.New("host: no such tab or window")

// Tab is the metadata the host reports for one tab.
type Tab struct {
	ID           TabID
	WindowID     WindowID
	LastAccessed int64  // unix seconds
	Title        string // display name, for logs
}

// Host abstracts the tab and window operations the tracker consumes.
type Host interface {
	Name() string    // Backend key, e.g. "tmux"
	Available() bool // Whether this backend is reachable from the current process

	ListTabs(ctx context.Context) ([]Tab, error)
	GetTab(ctx context.Context, id TabID) (Tab, error) // ErrGone when the tab does not exist

	// ActiveTab returns the active tab of the focused window. ok is false when no
	// window is focused or it has no active tab.
	ActiveTab(ctx context.Context) (tab Tab, ok bool, err error)
	// ActiveTabIn returns the active tab of the given window.
	ActiveTabIn(ctx context.Context, window WindowID) (tab Tab, ok bool, err error)

	SetTabActive(ctx context.Context, id TabID) error
	FocusWindow(ctx context.Context, window WindowID) error

	// Generation identifies the running host instance. Ids handed out by one
	// generation mean nothing to the next. Zero means unknown.
	Generation(ctx context.Context) (int, error)
}

// IsGone reports whether err signals a missing tab or window.
func IsGone(err error) bool {
	return errors.Is(err, ErrGone)
}
