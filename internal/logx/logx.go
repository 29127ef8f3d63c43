package logx

import (
	"context"

	"github.com/martinwickman/tabswitch/internal/host"
	"pkt.systems/pslog"
)

// Or returns log, or the context-free default logger when log is nil.
func Or(log pslog.Logger) pslog.Logger {
	if log == nil {
		return pslog.Ctx(context.Background())
	}
	return log
}

// WithTab annotates the logger with a tab id.
func WithTab(log pslog.Logger, id host.TabID) pslog.Logger {
	return log.With("tab", int(id))
}

// WithWindow annotates the logger with a window id; NoWindow is logged as "none".
func WithWindow(log pslog.Logger, id host.WindowID) pslog.Logger {
	if id == host.NoWindow {
		return log.With("window", "none")
	}
	return log.With("window", int(id))
}
