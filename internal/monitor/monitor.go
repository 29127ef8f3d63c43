// Package monitor renders tracker status, once or as a live view.
package monitor

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/martinwickman/tabswitch/internal/daemon"
)

const (
	refreshInterval = time.Second
	fetchTimeout    = 2 * time.Second
)

// Fetch queries the current status.
type Fetch func(ctx context.Context) (daemon.Status, error)

// tickMsg is sent on every refresh interval.
type tickMsg time.Time

// statusMsg carries the result of one fetch.
type statusMsg struct {
	status daemon.Status
	err    error
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model holds the state for the Bubble Tea program.
type Model struct {
	fetch   Fetch
	status  daemon.Status
	err     error
	spinner spinner.Model
	width   int
}

// New creates a watch model polling fetch.
func New(fetch Fetch) Model {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = startingStyle

	return Model{fetch: fetch, spinner: s}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchCmd(), tickCmd(), m.spinner.Tick)
}

func (m Model) fetchCmd() tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		st, err := fetch(ctx)
		return statusMsg{status: st, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tickMsg:
		return m, tea.Batch(m.fetchCmd(), tickCmd())
	case statusMsg:
		m.status, m.err = msg.status, msg.err
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	return renderView(m.status, m.err, m.spinner, m.width, true)
}
