// Package daemon runs the tab tracker as a long-lived process listening on a
// unix socket, and provides the thin client that tmux hooks use to reach it.
package daemon

// Request types.
const (
	TypeTabActivated = "tab-activated"
	TypeTabRemoved   = "tab-removed"
	TypeWindowFocus  = "window-focus"
	TypeInstalled    = "installed"
	TypeCommand      = "command"
	TypeStatus       = "status"
)

// Request is one newline-delimited JSON message sent by a client.
type Request struct {
	Type    string `json:"type"`
	Tab     int    `json:"tab,omitempty"`
	Window  int    `json:"window,omitempty"`
	Command string `json:"command,omitempty"`
}

// Response answers a single Request.
type Response struct {
	OK       bool    `json:"ok"`
	Error    string  `json:"error,omitempty"`
	Switched bool    `json:"switched,omitempty"`
	Tab      int     `json:"tab,omitempty"`
	Status   *Status `json:"status,omitempty"`
}

// Status describes the tracker without exposing the list itself.
type Status struct {
	Ready      bool   `json:"ready"`
	Backend    string `json:"backend"`
	Tracked    int    `json:"tracked"`
	LastWindow int    `json:"last_window"` // -1 when unknown
	Generation int    `json:"generation"`
	PID        int    `json:"pid"`
	Local      bool   `json:"local,omitempty"`
}

func fail(err error) Response {
	return Response{Error: err.Error()}
}
