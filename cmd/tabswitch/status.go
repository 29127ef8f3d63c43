package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/martinwickman/tabswitch/internal/config"
	"github.com/martinwickman/tabswitch/internal/daemon"
	"github.com/martinwickman/tabswitch/internal/monitor"
)

func newStatusCmd(opts *options) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show tracker readiness and counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			fetch := statusFetcher(cfg)

			if !watch {
				st, err := fetch(cmd.Context())
				width := 80
				if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
					width = w
				}
				_, werr := fmt.Fprintln(cmd.OutOrStdout(), monitor.RenderOnce(st, err, width))
				return werr
			}

			p := tea.NewProgram(monitor.New(fetch), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err = p.Run()
			return err
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "refresh continuously")
	return cmd
}

// statusFetcher asks the daemon for status, falling back to an in-process
// tracker so status works without one.
func statusFetcher(cfg config.Config) monitor.Fetch {
	return func(ctx context.Context) (daemon.Status, error) {
		resp, err := deliver(ctx, cfg, daemon.Request{Type: daemon.TypeStatus})
		if err != nil {
			return daemon.Status{}, err
		}
		if resp.Status == nil {
			return daemon.Status{}, fmt.Errorf("empty status response")
		}
		return *resp.Status, nil
	}
}
