package daemon

import (
	"context"
	"fmt"
	"os"

	"github.com/martinwickman/tabswitch/internal/host"
	"github.com/martinwickman/tabswitch/internal/logx"
	"github.com/martinwickman/tabswitch/internal/mru"
	"github.com/martinwickman/tabswitch/internal/store"
	"github.com/martinwickman/tabswitch/internal/switcher"
	"pkt.systems/pslog"
)

// Service owns one tracker and answers requests against it. The socket
// server and the in-process fallback both dispatch through it.
type Service struct {
	host   host.Host
	store  store.Store
	engine *mru.Engine
	boot   *mru.Initializer
	ctl    *switcher.Controller
	log    pslog.Logger
}

// NewService wires an engine, its initializer and a switch controller over h and s.
func NewService(h host.Host, s store.Store, log pslog.Logger) *Service {
	log = logx.Or(log)
	e := mru.New(h, s, log)
	boot := mru.NewInitializer(e)
	return &Service{
		host:   h,
		store:  s,
		engine: e,
		boot:   boot,
		ctl:    switcher.New(h, e, boot, log),
		log:    log.With("component", "service"),
	}
}

// Start begins initialization in the background.
func (s *Service) Start(ctx context.Context) {
	s.boot.Start(ctx)
}

// Handle applies req. Every request except status waits for initialization
// first, so events arriving during a cold start are applied after it.
func (s *Service) Handle(ctx context.Context, req Request) Response {
	if req.Type == TypeStatus {
		st := s.Status()
		return Response{OK: true, Status: &st}
	}

	if err := s.boot.Wait(ctx); err != nil {
		return fail(fmt.Errorf("waiting for tracker: %w", err))
	}

	switch req.Type {
	case TypeTabActivated:
		s.engine.OnTabActivated(ctx, host.TabID(req.Tab))
	case TypeTabRemoved:
		s.engine.OnTabRemoved(ctx, host.TabID(req.Tab))
	case TypeWindowFocus:
		s.engine.OnWindowFocusChanged(ctx, host.WindowID(req.Window))
	case TypeInstalled:
		if err := s.boot.Install(ctx); err != nil {
			return fail(fmt.Errorf("install: %w", err))
		}
	case TypeCommand:
		if req.Command != switcher.CommandSwitchTabs {
			s.ctl.OnCommand(ctx, req.Command)
			return Response{OK: true}
		}
		id, ok := s.ctl.Toggle(ctx)
		return Response{OK: true, Switched: ok, Tab: int(id)}
	default:
		s.log.Warn("unknown request", "type", req.Type)
		return fail(fmt.Errorf("unknown request type %q", req.Type))
	}
	return Response{OK: true}
}

// Status reports readiness and counters.
func (s *Service) Status() Status {
	last, ok := s.engine.LastWindow()
	if !ok {
		last = host.NoWindow
	}
	return Status{
		Ready:      s.boot.Ready(),
		Backend:    s.host.Name(),
		Tracked:    s.engine.Len(),
		LastWindow: int(last),
		Generation: s.engine.Generation(),
		PID:        os.Getpid(),
	}
}

// Stored reports status from persisted state alone. Nothing is initialized,
// queried or saved.
func (s *Service) Stored(ctx context.Context) (Status, error) {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("loading state: %w", err)
	}
	return Status{
		Backend:    s.host.Name(),
		Tracked:    len(snap.RecentTabs),
		LastWindow: int(snap.LastWindowID),
		Generation: snap.HostGeneration,
		Local:      true,
	}, nil
}
