package mru

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/martinwickman/tabswitch/internal/host"
	"github.com/martinwickman/tabswitch/internal/host/hosttest"
	"github.com/martinwickman/tabswitch/internal/store"
)

func newInit(t *testing.T, snap store.Snapshot) (*Initializer, *Engine, *hosttest.Fake, *store.Memory) {
	t.Helper()
	h := hosttest.New()
	s := store.NewMemoryWith(snap)
	e := New(h, s, quietLogger())
	return NewInitializer(e), e, h, s
}

func waitReady(t *testing.T, i *Initializer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := i.Wait(ctx); err != nil {
		t.Fatalf("init did not complete: %v", err)
	}
}

func TestInitializerReconcile(t *testing.T) {
	t.Run("persisted ids the host no longer has should be dropped in order", func(t *testing.T) {
		i, e, h, s := newInit(t, store.Snapshot{RecentTabs: ids(5, 6, 7, 8), LastWindowID: 1})
		h.AddTab(5, 1, 0)
		h.AddTab(7, 1, 0)
		h.AddTab(8, 2, 0)

		waitReady(t, i)

		assertList(t, e, ids(5, 7, 8))
		if last, _ := e.LastWindow(); last != 1 {
			t.Errorf("got last window %d, want 1", last)
		}
		assertPersisted(t, e, s)
	})

	t.Run("active tab should be primed at the head with its window", func(t *testing.T) {
		i, e, h, _ := newInit(t, store.Snapshot{RecentTabs: ids(1, 2, 3), LastWindowID: 1})
		h.AddTab(1, 1, 0)
		h.AddTab(2, 1, 0)
		h.AddTab(3, 4, 0)
		h.Focus(4)

		waitReady(t, i)

		assertList(t, e, ids(3, 1, 2))
		if last, _ := e.LastWindow(); last != 4 {
			t.Errorf("got last window %d, want 4", last)
		}
	})

	t.Run("overlong or duplicated history should be cleaned up", func(t *testing.T) {
		persisted := ids(1, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)
		i, e, h, _ := newInit(t, store.Snapshot{RecentTabs: persisted, LastWindowID: host.NoWindow})
		for n := 1; n <= 12; n++ {
			h.AddTab(host.TabID(n), 1, 0)
		}

		waitReady(t, i)

		assertList(t, e, ids(1, 2, 3, 4, 5, 6, 7, 8, 9, 10))
	})

	t.Run("transient lookup failures should drop the id", func(t *testing.T) {
		i, e, h, _ := newInit(t, store.Snapshot{RecentTabs: ids(1, 2), LastWindowID: host.NoWindow})
		h.AddTab(1, 1, 0)
		h.AddTab(2, 1, 0)
		h.FailGetTab(2, errors.New("timeout"))

		waitReady(t, i)

		assertList(t, e, ids(1))
	})
}

func TestInitializerInventory(t *testing.T) {
	t.Run("empty history should be seeded by last access", func(t *testing.T) {
		i, e, h, _ := newInit(t, store.Empty())
		h.AddTab(1, 1, 10)
		h.AddTab(2, 1, 30)
		h.AddTab(3, 1, 20)

		waitReady(t, i)

		assertList(t, e, ids(2, 3, 1))
	})

	t.Run("seed should be capped", func(t *testing.T) {
		i, e, h, _ := newInit(t, store.Empty())
		for n := 1; n <= 15; n++ {
			h.AddTab(host.TabID(n), 1, int64(n))
		}

		waitReady(t, i)

		assertList(t, e, ids(15, 14, 13, 12, 11, 10, 9, 8, 7, 6))
	})

	t.Run("history from another host generation should be discarded", func(t *testing.T) {
		i, e, h, s := newInit(t, store.Snapshot{RecentTabs: ids(1, 2), LastWindowID: 3, HostGeneration: 100})
		h.SetGeneration(200)
		h.AddTab(1, 1, 5)
		h.AddTab(2, 1, 50)

		waitReady(t, i)

		assertList(t, e, ids(2, 1))
		if last, ok := e.LastWindow(); ok {
			t.Errorf("got last window %d, want none", last)
		}
		if s.Current().HostGeneration != 200 {
			t.Errorf("got generation %d, want 200", s.Current().HostGeneration)
		}
	})

	t.Run("storage failure should start from the inventory", func(t *testing.T) {
		i, e, h, s := newInit(t, store.Empty())
		s.Fail(errors.New("corrupt"))
		h.AddTab(4, 1, 1)

		waitReady(t, i)

		assertList(t, e, ids(4))
	})
}

func TestInitializerOnce(t *testing.T) {
	i, e, h, s := newInit(t, store.Empty())
	h.AddTab(1, 1, 1)

	var wg sync.WaitGroup
	for n := 0; n < 8; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := i.Wait(context.Background()); err != nil {
				t.Errorf("wait: %v", err)
				return
			}
			if got := e.Snapshot(); !reflect.DeepEqual(got, ids(1)) {
				t.Errorf("waiter saw %v, want [1]", got)
			}
		}()
	}
	wg.Wait()

	if !i.Ready() {
		t.Error("expected Ready after Wait")
	}
	if s.Saves() != 1 {
		t.Errorf("got %d saves, want exactly one init run", s.Saves())
	}
}

func TestInitializerWaitCancelled(t *testing.T) {
	i, _, _, _ := newInit(t, store.Empty())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled waiter may return before the shared run finishes, but the
	// run itself must still complete for everyone else.
	_ = i.Wait(ctx)
	waitReady(t, i)
}

func TestInstall(t *testing.T) {
	ctx := context.Background()
	i, e, h, s := newInit(t, store.Snapshot{RecentTabs: ids(1), LastWindowID: 1})
	h.AddTab(1, 1, 10)
	h.AddTab(2, 2, 30)
	h.AddTab(3, 2, 20)
	waitReady(t, i)

	h.Focus(2)
	if err := i.Install(ctx); err != nil {
		t.Fatalf("install: %v", err)
	}

	assertList(t, e, ids(2, 3, 1))
	if last, _ := e.LastWindow(); last != 2 {
		t.Errorf("got last window %d, want 2", last)
	}
	assertPersisted(t, e, s)
}
