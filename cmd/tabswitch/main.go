package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"

	"pkt.systems/psi"
	"pkt.systems/pslog"
)

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole, MinLevel: pslog.WarnLevel}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	root := newRootCmd()
	root.SetArgs(os.Args[1:])

	if err := root.ExecuteContext(ctx); err != nil {
		pslog.Ctx(ctx).With("err", err).Error("tabswitch command failed")
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "tabswitch",
		Short:         "Switch to the most recently used tmux window",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/tabswitch/config.yaml)")
	root.PersistentFlags().StringVar(&opts.socket, "socket", "", "daemon socket path")
	root.PersistentFlags().StringVar(&opts.stateDir, "state-dir", "", "state directory (default ~/.tabswitch)")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newHookCmd(opts))
	root.AddCommand(newCommandCmd(opts))
	root.AddCommand(newToggleCmd(opts))
	root.AddCommand(newInstallCmd(opts))
	root.AddCommand(newStatusCmd(opts))

	return root
}
