package switcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/martinwickman/tabswitch/internal/host"
	"github.com/martinwickman/tabswitch/internal/host/hosttest"
	"github.com/martinwickman/tabswitch/internal/mru"
	"github.com/martinwickman/tabswitch/internal/store"
	"pkt.systems/pslog"
)

type world struct {
	host   *hosttest.Fake
	engine *mru.Engine
	ctl    *Controller
}

// newWorld wires a fake host to an engine the way the daemon does: host
// state changes come back to the engine as events.
func newWorld(t *testing.T) *world {
	t.Helper()
	log := pslog.NewWithOptions(io.Discard, pslog.Options{Mode: pslog.ModeStructured, NoColor: true})
	h := hosttest.New()
	e := mru.New(h, store.NewMemory(), log)
	h.OnActivated = e.OnTabActivated
	h.OnFocused = e.OnWindowFocusChanged
	return &world{host: h, engine: e, ctl: New(h, e, nil, log)}
}

// activate simulates the user selecting id.
func (w *world) activate(id host.TabID) {
	w.host.Activate(id)
	w.engine.OnTabActivated(context.Background(), id)
}

func list(n ...int) []host.TabID {
	out := make([]host.TabID, len(n))
	for i, v := range n {
		out[i] = host.TabID(v)
	}
	return out
}

func TestToggle(t *testing.T) {
	ctx := context.Background()

	t.Run("basic toggle should land on the previous tab", func(t *testing.T) {
		w := newWorld(t)
		for _, id := range list(1, 2, 3) {
			w.host.AddTab(id, 1, 0)
		}
		w.host.Focus(1)
		w.activate(1)
		w.activate(2)
		w.activate(3)

		got, ok := w.ctl.Toggle(ctx)

		if !ok || got != 2 {
			t.Fatalf("got %d (%v), want 2", got, ok)
		}
		if snap := w.engine.Snapshot(); !reflect.DeepEqual(snap, list(2, 3, 1)) {
			t.Errorf("got mru %v, want [2 3 1]", snap)
		}
	})

	t.Run("current tab should be skipped", func(t *testing.T) {
		w := newWorld(t)
		w.host.AddTab(7, 1, 0)
		w.host.AddTab(5, 1, 0)
		w.host.Focus(1)
		w.activate(7)
		w.activate(5)

		got, ok := w.ctl.Toggle(ctx)

		if !ok || got != 7 {
			t.Errorf("got %d (%v), want 7", got, ok)
		}
	})

	t.Run("stale candidate should be pruned and the next one tried", func(t *testing.T) {
		w := newWorld(t)
		for _, id := range list(2, 4, 9) {
			w.host.AddTab(id, 1, 0)
		}
		w.host.Focus(1)
		w.activate(2)
		w.activate(4)
		w.activate(9)
		w.host.Drop(4)

		got, ok := w.ctl.Toggle(ctx)

		if !ok || got != 2 {
			t.Fatalf("got %d (%v), want 2", got, ok)
		}
		if snap := w.engine.Snapshot(); !reflect.DeepEqual(snap, list(2, 9)) {
			t.Errorf("got mru %v, want [2 9]", snap)
		}
	})

	t.Run("tab in another window should focus that window first", func(t *testing.T) {
		w := newWorld(t)
		w.host.AddTab(12, 2, 0)
		w.host.AddTab(11, 1, 0)
		w.host.Focus(2)
		w.activate(12)
		w.host.Focus(1)
		w.engine.OnWindowFocusChanged(ctx, 1)
		w.activate(11)

		got, ok := w.ctl.Toggle(ctx)

		if !ok || got != 12 {
			t.Fatalf("got %d (%v), want 12", got, ok)
		}
		if calls := strings.Join(w.host.Calls(), ","); calls != "focus 2,activate 12" {
			t.Errorf("got calls %q, want focus then activate", calls)
		}
		if last, _ := w.engine.LastWindow(); last != 2 {
			t.Errorf("got last window %d, want 2", last)
		}
		if snap := w.engine.Snapshot(); !reflect.DeepEqual(snap, list(12, 11)) {
			t.Errorf("got mru %v, want [12 11]", snap)
		}
	})

	t.Run("two tabs should toggle back and forth", func(t *testing.T) {
		w := newWorld(t)
		w.host.AddTab(1, 1, 0)
		w.host.AddTab(2, 1, 0)
		w.host.Focus(1)
		w.activate(2)
		w.activate(1)

		first, _ := w.ctl.Toggle(ctx)
		second, _ := w.ctl.Toggle(ctx)

		if first != 2 || second != 1 {
			t.Errorf("got %d then %d, want 2 then 1", first, second)
		}
	})

	t.Run("no focused window should do nothing", func(t *testing.T) {
		w := newWorld(t)
		w.host.AddTab(1, 1, 0)
		w.activate(1)

		if _, ok := w.ctl.Toggle(ctx); ok {
			t.Error("expected no switch without a focused window")
		}
		if len(w.host.Calls()) != 0 {
			t.Errorf("unexpected host calls %v", w.host.Calls())
		}
	})

	t.Run("only the current tab tracked should do nothing", func(t *testing.T) {
		w := newWorld(t)
		w.host.AddTab(1, 1, 0)
		w.host.Focus(1)
		w.activate(1)

		if _, ok := w.ctl.Toggle(ctx); ok {
			t.Error("expected no switch")
		}
	})

	t.Run("activation failure unrelated to existence should still count", func(t *testing.T) {
		w := newWorld(t)
		for _, id := range list(1, 2, 3) {
			w.host.AddTab(id, 1, 0)
		}
		w.host.Focus(1)
		w.activate(1)
		w.activate(2)
		w.activate(3)
		w.host.FailSetActive(2, errors.New("permission denied"))

		got, ok := w.ctl.Toggle(ctx)

		if !ok || got != 2 {
			t.Errorf("got %d (%v), want best-effort 2", got, ok)
		}
		if calls := w.host.Calls(); len(calls) != 1 {
			t.Errorf("got calls %v, want a single attempt", calls)
		}
	})

	t.Run("lookup failure unrelated to existence should skip without pruning", func(t *testing.T) {
		w := newWorld(t)
		for _, id := range list(1, 2, 3) {
			w.host.AddTab(id, 1, 0)
		}
		w.host.Focus(1)
		w.activate(1)
		w.activate(2)
		w.activate(3)
		w.host.FailGetTab(2, errors.New("timeout"))

		got, ok := w.ctl.Toggle(ctx)

		if !ok || got != 1 {
			t.Fatalf("got %d (%v), want 1", got, ok)
		}
		snap := w.engine.Snapshot()
		found := false
		for _, id := range snap {
			if id == 2 {
				found = true
			}
		}
		if !found {
			t.Errorf("tab 2 should not be pruned: %v", snap)
		}
	})
}

func TestToggleLogsTargetTitle(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	log := pslog.NewWithOptions(&buf, pslog.Options{Mode: pslog.ModeStructured, NoColor: true, MinLevel: pslog.DebugLevel})
	h := hosttest.New()
	e := mru.New(h, store.NewMemory(), log)
	h.OnActivated = e.OnTabActivated
	h.AddTab(1, 1, 0)
	h.AddTab(2, 1, 0)
	h.Focus(1)
	h.Activate(2)
	e.OnTabActivated(ctx, 2)
	h.Activate(1)
	e.OnTabActivated(ctx, 1)

	if _, ok := New(h, e, nil, log).Toggle(ctx); !ok {
		t.Fatal("expected a switch")
	}

	found := false
	for _, line := range bytes.Split(buf.Bytes(), []byte("\n")) {
		var entry map[string]any
		if json.Unmarshal(line, &entry) != nil {
			continue
		}
		if entry["title"] == "tab 2" {
			found = true
		}
	}
	if !found {
		t.Errorf("no log entry carries the target title:\n%s", buf.String())
	}
}

func TestToggleWaitsForInit(t *testing.T) {
	ctx := context.Background()
	log := pslog.NewWithOptions(io.Discard, pslog.Options{Mode: pslog.ModeStructured, NoColor: true})
	h := hosttest.New()
	h.AddTab(1, 1, 0)
	h.AddTab(2, 1, 0)
	h.Focus(1)
	s := store.NewMemoryWith(store.Snapshot{RecentTabs: list(1, 2), LastWindowID: 1})
	e := mru.New(h, s, log)
	gate := mru.NewInitializer(e)
	ctl := New(h, e, gate, log)

	got, ok := ctl.Toggle(ctx)

	if !gate.Ready() {
		t.Error("toggle should have run the initializer")
	}
	if !ok || got != 2 {
		t.Errorf("got %d (%v), want 2", got, ok)
	}
}

func TestOnCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("switch-tabs should toggle", func(t *testing.T) {
		w := newWorld(t)
		w.host.AddTab(1, 1, 0)
		w.host.AddTab(2, 1, 0)
		w.host.Focus(1)
		w.activate(2)
		w.activate(1)

		w.ctl.OnCommand(ctx, CommandSwitchTabs)

		if id, _ := w.host.ActiveIn(1); id != 2 {
			t.Errorf("got active %d, want 2", id)
		}
	})

	t.Run("unknown command should be ignored", func(t *testing.T) {
		w := newWorld(t)
		w.host.AddTab(1, 1, 0)
		w.host.AddTab(2, 1, 0)
		w.host.Focus(1)
		w.activate(2)
		w.activate(1)

		w.ctl.OnCommand(ctx, "close-tab")

		if len(w.host.Calls()) != 0 {
			t.Errorf("unexpected host calls %v", w.host.Calls())
		}
	})
}
