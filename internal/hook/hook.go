// Package hook turns tmux hook invocations into tracker requests and
// delivers them, to the daemon when one is listening and in-process otherwise.
package hook

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/martinwickman/tabswitch/internal/daemon"
	"github.com/martinwickman/tabswitch/internal/host"
	"github.com/martinwickman/tabswitch/internal/tmux"
)

// Hook event names as passed on the command line.
const (
	EventTabActivated = "tab-activated"
	EventTabRemoved   = "tab-removed"
	EventWindowFocus  = "window-focus"
)

// Parse builds the request for a hook event. Unknown events report ok=false.
func Parse(event, id string) (req daemon.Request, ok bool, err error) {
	switch event {
	case EventTabActivated, EventTabRemoved:
		tab, err := tmux.ParseTabID(id)
		if err != nil {
			return daemon.Request{}, true, err
		}
		typ := daemon.TypeTabActivated
		if event == EventTabRemoved {
			typ = daemon.TypeTabRemoved
		}
		return daemon.Request{Type: typ, Tab: int(tab)}, true, nil
	case EventWindowFocus:
		window, err := parseWindow(id)
		if err != nil {
			return daemon.Request{}, true, err
		}
		return daemon.Request{Type: daemon.TypeWindowFocus, Window: int(window)}, true, nil
	default:
		return daemon.Request{}, false, nil
	}
}

// parseWindow accepts a tmux session id, or "none"/"" when no session has focus.
func parseWindow(id string) (host.WindowID, error) {
	switch strings.TrimSpace(id) {
	case "", "none":
		return host.NoWindow, nil
	}
	return tmux.ParseWindowID(id)
}

// Local opens an in-process service and a function releasing it.
type Local func(ctx context.Context) (*daemon.Service, func(), error)

// Deliver sends req to the daemon at socketPath. When no daemon is running
// it runs req against a local service instead; status is then answered from
// persisted state without touching it. A daemon whose process is alive but
// does not answer fails with daemon.ErrUnresponsive rather than racing it
// in-process.
func Deliver(ctx context.Context, socketPath string, req daemon.Request, local Local) (daemon.Response, error) {
	resp, err := daemon.Send(ctx, socketPath, req)
	if err == nil || !errors.Is(err, daemon.ErrUnavailable) {
		return resp, err
	}
	if pid, alive := daemon.Running(socketPath); alive {
		return daemon.Response{}, fmt.Errorf("%w (pid %d, socket %s)", daemon.ErrUnresponsive, pid, socketPath)
	}
	if local == nil {
		return daemon.Response{}, err
	}

	svc, release, err := local(ctx)
	if err != nil {
		return daemon.Response{}, fmt.Errorf("starting local tracker: %w", err)
	}
	defer release()

	if req.Type == daemon.TypeStatus {
		st, err := svc.Stored(ctx)
		if err != nil {
			return daemon.Response{}, fmt.Errorf("local: %w", err)
		}
		return daemon.Response{OK: true, Status: &st}, nil
	}
	resp = svc.Handle(ctx, req)
	if !resp.OK {
		return resp, fmt.Errorf("local: %s", resp.Error)
	}
	return resp, nil
}

// Snippet returns the tmux configuration that routes tab and focus changes
// to bin and binds key to the switch command.
func Snippet(bin, key string) string {
	if bin == "" {
		bin = "tabswitch"
	}
	if key == "" {
		key = "M-Tab"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# tabswitch\n")
	fmt.Fprintf(&b, "set-hook -g session-window-changed 'run-shell -b \"%s hook %s #{window_id}\"'\n", bin, EventTabActivated)
	fmt.Fprintf(&b, "set-hook -g window-unlinked 'run-shell -b \"%s hook %s #{hook_window}\"'\n", bin, EventTabRemoved)
	fmt.Fprintf(&b, "set-hook -g client-session-changed 'run-shell -b \"%s hook %s #{session_id}\"'\n", bin, EventWindowFocus)
	// client-focus-in only fires when tmux is told to track terminal focus.
	fmt.Fprintf(&b, "set -g focus-events on\n")
	fmt.Fprintf(&b, "set-hook -g client-focus-in 'run-shell -b \"%s hook %s #{session_id}\"'\n", bin, EventWindowFocus)
	fmt.Fprintf(&b, "bind-key -n %s run-shell -b '%s command switch-tabs'\n", key, bin)
	return b.String()
}
