package switcher

import (
	"context"
	"fmt"

	"github.com/martinwickman/tabswitch/internal/host"
	"github.com/martinwickman/tabswitch/internal/logx"
	"pkt.systems/pslog"
)

// CommandSwitchTabs is the command name bound to Toggle.
const CommandSwitchTabs = "switch-tabs"

// Tracker is the slice of the MRU engine the controller needs: a read-only
// copy of the list and a way to prune ids that turned out to be stale.
type Tracker interface {
	Snapshot() []host.TabID
	Remove(ctx context.Context, id host.TabID)
}

// Gate blocks until the tracker is initialized.
type Gate interface {
	Wait(ctx context.Context) error
}

// Controller switches to the most recent tab other than the active one.
type Controller struct {
	host host.Host
	mru  Tracker
	gate Gate
	log  pslog.Logger
}

// New returns a controller. gate may be nil when the tracker is already initialized.
func New(h host.Host, mru Tracker, gate Gate, log pslog.Logger) *Controller {
	return &Controller{
		host: h,
		mru:  mru,
		gate: gate,
		log:  logx.Or(log).With("component", "switcher"),
	}
}

// OnCommand dispatches a host command by name.
func (c *Controller) OnCommand(ctx context.Context, name string) {
	if name != CommandSwitchTabs {
		c.log.Warn("unknown command", "command", name)
		return
	}
	c.Toggle(ctx)
}

// Toggle activates the most recent tab other than the current one, focusing
// its window first when it lives elsewhere. Candidates that no longer exist
// are pruned from the tracker and the next one is tried; each candidate is
// tried at most once. It reports the tab it switched to.
func (c *Controller) Toggle(ctx context.Context) (host.TabID, bool) {
	if c.gate != nil {
		if err := c.gate.Wait(ctx); err != nil {
			c.log.Warn("tracker not ready", "err", err)
			return 0, false
		}
	}

	cur, ok, err := c.host.ActiveTab(ctx)
	if err != nil {
		c.log.Warn("active tab lookup failed", "err", err)
		return 0, false
	}
	if !ok {
		c.log.Info("no active tab in the focused window")
		return 0, false
	}

	candidates := c.mru.Snapshot()
	c.log.Debug("toggle", "current", int(cur.ID), "candidates", len(candidates))
	for _, id := range candidates {
		if id == cur.ID {
			continue
		}
		err := c.activate(ctx, id, cur.WindowID)
		switch {
		case err == nil:
			return id, true
		case host.IsGone(err):
			logx.WithTab(c.log, id).Debug("candidate gone; pruning")
			c.mru.Remove(ctx, id)
		default:
			logx.WithTab(c.log, id).Warn("candidate skipped", "err", err)
		}
	}

	c.log.Info("no tab to switch to")
	return 0, false
}

// activate switches to id. It fails only when id cannot be looked up; focus
// and activation errors other than host.ErrGone are logged and the switch
// counts as done.
func (c *Controller) activate(ctx context.Context, id host.TabID, focused host.WindowID) error {
	tab, err := c.host.GetTab(ctx, id)
	if err != nil {
		return fmt.Errorf("looking up tab %d: %w", id, err)
	}
	log := logx.WithWindow(logx.WithTab(c.log, id), tab.WindowID)

	if tab.WindowID != focused {
		if err := c.host.FocusWindow(ctx, tab.WindowID); err != nil {
			if host.IsGone(err) {
				return err
			}
			log.Warn("window focus failed", "err", err)
		}
	}
	if err := c.host.SetTabActive(ctx, id); err != nil {
		if host.IsGone(err) {
			return err
		}
		log.Warn("tab activation failed", "err", err)
	}
	log.Debug("switched", "title", tab.Title)
	return nil
}
