package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/martinwickman/tabswitch/internal/daemon"
	"github.com/martinwickman/tabswitch/internal/tmux"
	"pkt.systems/pslog"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the tracker daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := pslog.Ctx(ctx)
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if !tmux.New(cfg.Tmux.Binary).Available() {
				logger.Warn("not running inside tmux; host calls may fail")
			}

			svc, release, err := openService(ctx, cfg)
			if err != nil {
				return err
			}
			defer release()

			srv := daemon.NewServer(cfg.SocketPath, svc, logger)
			if err := srv.Start(ctx); err != nil {
				return err
			}
			logger.Info("tabswitch daemon started", "socket", cfg.SocketPath, "store", cfg.Store.Driver)

			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			logger.Info("tabswitch daemon stopping")
			return srv.Shutdown(shutdownCtx)
		},
	}
}
