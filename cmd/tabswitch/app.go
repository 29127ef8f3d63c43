package main

import (
	"context"
	"fmt"

	"github.com/martinwickman/tabswitch/internal/config"
	"github.com/martinwickman/tabswitch/internal/daemon"
	"github.com/martinwickman/tabswitch/internal/hook"
	"github.com/martinwickman/tabswitch/internal/store"
	"github.com/martinwickman/tabswitch/internal/tmux"
	"pkt.systems/pslog"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	configPath string
	socket     string
	stateDir   string
}

func (o *options) load() (config.Config, error) {
	return config.Load(o.configPath, map[string]string{
		"state_dir":   o.stateDir,
		"socket_path": o.socket,
	})
}

// openService builds a tracker over tmux and the configured store.
func openService(ctx context.Context, cfg config.Config) (*daemon.Service, func(), error) {
	st, err := store.Open(cfg.Store.Driver, cfg.StateDir, cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s store: %w", cfg.Store.Driver, err)
	}
	svc := daemon.NewService(tmux.New(cfg.Tmux.Binary), st, pslog.Ctx(ctx))
	release := func() {
		if err := st.Close(); err != nil {
			pslog.Ctx(ctx).Warn("closing store", "err", err)
		}
	}
	return svc, release, nil
}

// deliver sends req to the daemon, or runs it in-process when none is listening.
func deliver(ctx context.Context, cfg config.Config, req daemon.Request) (daemon.Response, error) {
	local := func(ctx context.Context) (*daemon.Service, func(), error) {
		pslog.Ctx(ctx).Debug("no daemon; running in-process", "socket", cfg.SocketPath)
		return openService(ctx, cfg)
	}
	return hook.Deliver(ctx, cfg.SocketPath, req, hook.Local(local))
}
