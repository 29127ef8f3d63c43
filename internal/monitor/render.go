package monitor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	"github.com/martinwickman/tabswitch/internal/daemon"
)

// RenderOnce produces a single status snapshot for non-interactive output.
func RenderOnce(st daemon.Status, err error, width int) string {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	return renderView(st, err, sp, width, false)
}

func renderView(st daemon.Status, err error, sp spinner.Model, width int, interactive bool) string {
	if width == 0 {
		width = 80
	}

	var b strings.Builder
	header := titleStyle.Render("tabswitch")
	if err == nil {
		header += "  " + countStyle.Render(plural(st.Tracked, "tab")+" tracked")
	}
	b.WriteString(header + "\n")

	rows := [][2]string{{"state", stateDisplay(st, err, sp)}}
	if err == nil {
		rows = append(rows,
			[2]string{"backend", st.Backend},
			[2]string{"tracked", strconv.Itoa(st.Tracked)},
			[2]string{"last window", windowLabel(st.LastWindow)},
			[2]string{"generation", generationLabel(st.Generation)},
			[2]string{"process", processLabel(st)},
		)
	}
	// Border (2) and padding (2).
	b.WriteString(boxStyle.Width(width-4).Render(renderRows(rows)))

	if interactive {
		b.WriteString("\n" + helpStyle.Render("Press q to quit."))
	}
	return b.String()
}

func renderRows(rows [][2]string) string {
	w := 0
	for _, r := range rows {
		w = max(w, lipgloss.Width(r[0]))
	}
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = padRight(labelStyle.Render(r[0]), w) + "  " + valueStyle.Render(r[1])
	}
	return strings.Join(lines, "\n")
}

func stateDisplay(st daemon.Status, err error, sp spinner.Model) string {
	switch {
	case err != nil:
		return downStyle.Render("✕ Unreachable: " + err.Error())
	case st.Local:
		return localStyle.Render("◆ No daemon (saved state)")
	case !st.Ready:
		return startingStyle.Render(sp.View() + " Starting")
	default:
		return readyStyle.Render("● Ready")
	}
}

func windowLabel(w int) string {
	if w < 0 {
		return "none"
	}
	return "$" + strconv.Itoa(w)
}

func generationLabel(g int) string {
	if g == 0 {
		return "unknown"
	}
	return strconv.Itoa(g)
}

func processLabel(st daemon.Status) string {
	if st.Local {
		return "none"
	}
	return fmt.Sprintf("daemon pid %d", st.PID)
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// padRight pads a string (which may contain ANSI codes) to the given visible width.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}
