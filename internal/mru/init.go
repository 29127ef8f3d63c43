package mru

import (
	"context"
	"sort"
	"sync"

	"github.com/martinwickman/tabswitch/internal/host"
	"github.com/martinwickman/tabswitch/internal/store"
	"pkt.systems/pslog"
)

// Initializer brings an engine to its cold-start state once per process:
// persisted history reconciled against the live host, primed with the active
// tab. Any number of callers may Wait on it.
type Initializer struct {
	engine *Engine
	host   host.Host
	store  store.Store
	log    pslog.Logger

	start sync.Once
	done  chan struct{}
}

// NewInitializer returns an initializer for e using e's host and store.
func NewInitializer(e *Engine) *Initializer {
	return &Initializer{
		engine: e,
		host:   e.host,
		store:  e.store,
		log:    e.log.With("component", "init"),
		done:   make(chan struct{}),
	}
}

// Start launches initialization if it has not been launched yet. The run is
// detached from ctx's cancellation so one impatient waiter cannot abort it
// for the others.
func (i *Initializer) Start(ctx context.Context) {
	i.start.Do(func() {
		go i.run(context.WithoutCancel(ctx))
	})
}

// Wait starts initialization if needed and blocks until it completes or ctx ends.
func (i *Initializer) Wait(ctx context.Context) error {
	i.Start(ctx)
	select {
	case <-i.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready reports whether initialization has completed.
func (i *Initializer) Ready() bool {
	select {
	case <-i.done:
		return true
	default:
		return false
	}
}

func (i *Initializer) run(ctx context.Context) {
	defer close(i.done)

	snap, err := i.store.Load(ctx)
	if err != nil {
		i.log.Warn("state load failed; starting empty", "err", err)
		snap = store.Empty()
	}

	gen, err := i.host.Generation(ctx)
	if err != nil {
		i.log.Debug("host generation unknown", "err", err)
		gen = 0
	}
	if snap.HostGeneration != 0 && gen != 0 && snap.HostGeneration != gen {
		i.log.Info("host restarted; discarding tab history", "previous", snap.HostGeneration, "current", gen)
		snap = store.Empty()
	}

	tabs := i.reconcile(ctx, snap.RecentTabs)
	if len(tabs) == 0 {
		tabs = i.inventory(ctx)
	}

	last := snap.LastWindowID
	active, ok, err := i.host.ActiveTab(ctx)
	switch {
	case err != nil:
		i.log.Warn("active tab lookup failed", "err", err)
	case ok:
		tabs = touch(tabs, active.ID)
		last = active.WindowID
	}

	i.engine.replace(ctx, tabs, last, gen)
	i.log.Info("tracker ready", "tracked", len(tabs), "restored", len(snap.RecentTabs))
}

// reconcile keeps the persisted ids the host still knows, in order, without
// duplicates and at most Cap of them.
func (i *Initializer) reconcile(ctx context.Context, ids []host.TabID) []host.TabID {
	seen := make(map[host.TabID]bool, len(ids))
	var kept []host.TabID
	for _, id := range ids {
		if len(kept) == Cap {
			break
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := i.host.GetTab(ctx, id); err != nil {
			if !host.IsGone(err) {
				i.log.Warn("tab lookup failed; dropping", "tab", int(id), "err", err)
			}
			continue
		}
		kept = append(kept, id)
	}
	return kept
}

// inventory returns up to Cap live tabs, most recently accessed first.
func (i *Initializer) inventory(ctx context.Context) []host.TabID {
	all, err := i.host.ListTabs(ctx)
	if err != nil {
		i.log.Warn("tab inventory failed", "err", err)
		return nil
	}
	sort.SliceStable(all, func(a, b int) bool {
		return all[a].LastAccessed > all[b].LastAccessed
	})
	ids := make([]host.TabID, 0, min(len(all), Cap))
	for _, t := range all {
		if len(ids) == Cap {
			break
		}
		ids = append(ids, t.ID)
	}
	return ids
}

// Install handles a fresh install: the list is reseeded from the host's
// inventory and the last window taken from the active tab.
func (i *Initializer) Install(ctx context.Context) error {
	if err := i.Wait(ctx); err != nil {
		return err
	}
	tabs := i.inventory(ctx)
	if tabs == nil {
		tabs = i.engine.Snapshot()
	}
	last, _ := i.engine.LastWindow()
	active, ok, err := i.host.ActiveTab(ctx)
	switch {
	case err != nil:
		i.log.Warn("active tab lookup failed", "err", err)
	case ok:
		last = active.WindowID
	}
	i.engine.replace(ctx, tabs, last, i.engine.Generation())
	i.log.Info("installed", "tracked", len(tabs))
	return nil
}
