// Package tmux provides the tmux tab host: tmux windows are tabs, tmux sessions are
// the windows that hold them, and the current client's session is the focused window.
package tmux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/martinwickman/tabswitch/internal/host"
)

// tabFormat is the -F format every tab query uses; parseTab reads it back.
const tabFormat = "#{window_id}\t#{session_id}\t#{window_activity}\t#{window_name}"

// clientFormat lists attached clients; currentClient reads it back.
const clientFormat = "#{client_activity}\t#{client_name}\t#{session_id}"

// errNoClient is returned when tmux has no attached client to resolve "current" against.
var errNoClient = errors.New("tmux: no current client")

// Runner executes a tmux command and returns its standard output.
type Runner func(ctx context.Context, args ...string) ([]byte, error)

// Backend implements host.Host for tmux.
type Backend struct {
	run Runner
}

var _ host.Host = (*Backend)(nil)

// New returns a backend that shells out to binary ("tmux" when empty).
// On Windows, tmux is accessed via WSL.
func New(binary string) *Backend {
	if binary == "" {
		binary = "tmux"
	}
	return &Backend{run: execRunner(binary)}
}

// NewWithRunner returns a backend that issues commands through run.
func NewWithRunner(run Runner) *Backend {
	return &Backend{run: run}
}

// Name returns "tmux".
func (*Backend) Name() string { return "tmux" }

// Available reports whether the current process is running inside tmux.
func (*Backend) Available() bool {
	return os.Getenv("TMUX") != "" || os.Getenv("TMUX_PANE") != ""
}

// ListTabs lists every window on the server. A window linked into several
// sessions is reported once, under the first session tmux lists it in.
func (b *Backend) ListTabs(ctx context.Context) ([]host.Tab, error) {
	out, err := b.run(ctx, "list-windows", "-a", "-F", tabFormat)
	if err != nil {
		return nil, err
	}
	seen := make(map[host.TabID]bool)
	var tabs []host.Tab
	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		t, err := parseTab(line)
		if err != nil {
			continue // skip lines we can't parse
		}
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		tabs = append(tabs, t)
	}
	return tabs, nil
}

// GetTab fetches one window by id.
func (b *Backend) GetTab(ctx context.Context, id host.TabID) (host.Tab, error) {
	out, err := b.run(ctx, "display-message", "-p", "-t", windowTarget(id), tabFormat)
	if err != nil {
		return host.Tab{}, err
	}
	return parseTab(strings.TrimSpace(string(out)))
}

// ActiveTab returns the current window of the session shown by the most
// recently active client.
func (b *Backend) ActiveTab(ctx context.Context) (host.Tab, bool, error) {
	c, err := b.currentClient(ctx)
	if err != nil {
		if errors.Is(err, errNoClient) {
			return host.Tab{}, false, nil
		}
		return host.Tab{}, false, err
	}
	return b.ActiveTabIn(ctx, c.session)
}

// ActiveTabIn returns the current window of the given session.
func (b *Backend) ActiveTabIn(ctx context.Context, window host.WindowID) (host.Tab, bool, error) {
	if window == host.NoWindow {
		return host.Tab{}, false, nil
	}
	out, err := b.run(ctx, "display-message", "-p", "-t", sessionTarget(window), tabFormat)
	if err != nil {
		if host.IsGone(err) {
			return host.Tab{}, false, nil
		}
		return host.Tab{}, false, err
	}
	t, err := parseTab(strings.TrimSpace(string(out)))
	if err != nil {
		return host.Tab{}, false, err
	}
	return t, true, nil
}

// SetTabActive makes the window current in its session.
func (b *Backend) SetTabActive(ctx context.Context, id host.TabID) error {
	_, err := b.run(ctx, "select-window", "-t", windowTarget(id))
	return err
}

// FocusWindow switches the most recently active client to the given session.
func (b *Backend) FocusWindow(ctx context.Context, window host.WindowID) error {
	args := []string{"switch-client"}
	if c, err := b.currentClient(ctx); err == nil {
		args = append(args, "-c", c.name)
	}
	args = append(args, "-t", sessionTarget(window))
	_, err := b.run(ctx, args...)
	return err
}

// client is one attached tmux client.
type client struct {
	name     string
	session  host.WindowID
	activity int64
}

// currentClient returns the attached client with the latest activity, the
// one the user is typing into. "Current" is never left for tmux to resolve:
// from a hook or the daemon it would follow the pane the process started in.
func (b *Backend) currentClient(ctx context.Context) (client, error) {
	out, err := b.run(ctx, "list-clients", "-F", clientFormat)
	if err != nil {
		return client{}, err
	}
	var best client
	found := false
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Split(strings.TrimSpace(line), "\t")
		if len(fields) != 3 {
			continue
		}
		activity, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			continue
		}
		session, err := ParseWindowID(fields[2])
		if err != nil {
			continue
		}
		if !found || activity > best.activity {
			best = client{name: fields[1], session: session, activity: activity}
			found = true
		}
	}
	if !found {
		return client{}, errNoClient
	}
	return best, nil
}

// Generation returns the tmux server pid.
func (b *Backend) Generation(ctx context.Context) (int, error) {
	out, err := b.run(ctx, "display-message", "-p", "#{pid}")
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0, fmt.Errorf("parsing server pid %q: %w", strings.TrimSpace(string(out)), err)
	}
	return pid, nil
}

// ParseTabID parses a tmux window id ("@12" or "12").
func ParseTabID(s string) (host.TabID, error) {
	n, err := parseID(s, '@')
	return host.TabID(n), err
}

// ParseWindowID parses a tmux session id ("$3" or "3").
func ParseWindowID(s string) (host.WindowID, error) {
	n, err := parseID(s, '$')
	return host.WindowID(n), err
}

func parseID(s string, prefix byte) (int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, string(prefix))
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid tmux id %q", s)
	}
	return n, nil
}

func windowTarget(id host.TabID) string {
	return "@" + strconv.Itoa(int(id))
}

func sessionTarget(window host.WindowID) string {
	return "$" + strconv.Itoa(int(window))
}

func parseTab(line string) (host.Tab, error) {
	fields := strings.SplitN(line, "\t", 4)
	if len(fields) < 3 {
		return host.Tab{}, fmt.Errorf("malformed tmux window line %q", line)
	}
	id, err := ParseTabID(fields[0])
	if err != nil {
		return host.Tab{}, err
	}
	window, err := ParseWindowID(fields[1])
	if err != nil {
		return host.Tab{}, err
	}
	activity, _ := strconv.ParseInt(strings.TrimSpace(fields[2]), 10, 64)
	t := host.Tab{
		ID:           id,
		WindowID:     window,
		LastAccessed: activity,
	}
	if len(fields) == 4 {
		t.Title = strings.TrimSpace(fields[3])
	}
	return t, nil
}

func execRunner(binary string) Runner {
	return func(ctx context.Context, args ...string) ([]byte, error) {
		name, argv := binary, args
		if runtime.GOOS == "windows" {
			name = "wsl"
			argv = append([]string{binary}, args...)
		}
		cmd := exec.CommandContext(ctx, name, argv...)
		cmd.Env = runEnv(os.Environ())
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		out, err := cmd.Output()
		if err != nil {
			return nil, classify(args, stderr.String(), err)
		}
		return out, nil
	}
}

// runEnv drops TMUX_PANE from env so tmux does not pin "current" to the pane
// this process was started from. TMUX stays: it names the server socket.
func runEnv(env []string) []string {
	out := make([]string, 0, len(env))
	for _, kv := range env {
		if strings.HasPrefix(kv, "TMUX_PANE=") {
			continue
		}
		out = append(out, kv)
	}
	return out
}

// classify wraps a failed tmux invocation so callers can tell a missing
// window or session (host.ErrGone) from every other failure.
func classify(args []string, stderr string, err error) error {
	verb := "command"
	if len(args) > 0 {
		verb = args[0]
	}
	msg := strings.TrimSpace(stderr)
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "can't find window"),
		strings.Contains(lower, "can't find session"),
		strings.Contains(lower, "can't find pane"),
		strings.Contains(lower, "no such window"),
		strings.Contains(lower, "no such session"):
		return fmt.Errorf("tmux %s: %s: %w", verb, msg, host.ErrGone)
	case strings.Contains(lower, "no current client"),
		strings.Contains(lower, "no current session"),
		strings.Contains(lower, "no clients"):
		return fmt.Errorf("tmux %s: %s: %w", verb, msg, errNoClient)
	case msg != "":
		return fmt.Errorf("tmux %s: %s: %w", verb, msg, err)
	default:
		return fmt.Errorf("tmux %s: %w", verb, err)
	}
}
