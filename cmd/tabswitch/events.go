package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/martinwickman/tabswitch/internal/daemon"
	"github.com/martinwickman/tabswitch/internal/hook"
	"github.com/martinwickman/tabswitch/internal/switcher"
	"pkt.systems/pslog"
)

func newHookCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "hook <event> [id]",
		Short: "Deliver a tmux hook event (tab-activated, tab-removed, window-focus)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := pslog.Ctx(ctx)
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			var id string
			if len(args) > 1 {
				id = args[1]
			}
			req, ok, err := hook.Parse(args[0], id)
			switch {
			case err != nil:
				logger.Warn("ignoring hook", "event", args[0], "id", id, "err", err)
				return nil
			case !ok:
				logger.Debug("unknown hook event", "event", args[0])
				return nil
			}

			if _, err := deliver(ctx, cfg, req); err != nil {
				logger.Warn("hook delivery failed", "event", args[0], "err", err)
			}
			return nil
		},
	}
}

func newCommandCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "command <name>",
		Short: "Deliver a named command (switch-tabs)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, opts, args[0])
		},
	}
}

func newToggleCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle",
		Short: "Switch to the most recently used other window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, opts, switcher.CommandSwitchTabs)
		},
	}
}

func runCommand(cmd *cobra.Command, opts *options, name string) error {
	ctx := cmd.Context()
	logger := pslog.Ctx(ctx)
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	resp, err := deliver(ctx, cfg, daemon.Request{Type: daemon.TypeCommand, Command: name})
	if err != nil {
		logger.Warn("command failed", "command", name, "err", err)
		return nil
	}
	if resp.Switched {
		logger.Debug("switched", "tab", resp.Tab)
	}
	return nil
}

func newInstallCmd(opts *options) *cobra.Command {
	var bin, key string
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Seed the tracker and print the tmux configuration to add",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if bin == "" {
				if exe, err := os.Executable(); err == nil {
					bin = exe
				}
			}
			if _, err := deliver(ctx, cfg, daemon.Request{Type: daemon.TypeInstalled}); err != nil {
				pslog.Ctx(ctx).Warn("seeding tracker failed", "err", err)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), hook.Snippet(bin, key))
			return err
		},
	}
	cmd.Flags().StringVar(&bin, "bin", "", "tabswitch binary used in hooks (default this executable)")
	cmd.Flags().StringVar(&key, "key", "M-Tab", "tmux key bound to switch-tabs")
	return cmd
}
