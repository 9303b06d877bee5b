package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/syncany/syncany-go/internal/config"
	"github.com/syncany/syncany-go/internal/daemonmsg"
	"github.com/syncany/syncany-go/internal/history"
)

func init() {
	rootCmd.AddCommand(newWatchesCmd())
}

func newWatchesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watches",
		Short: "List the folders watched by the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			sdk, _, err := newSDK(cmd)
			if err != nil {
				return err
			}
			defer sdk.Close()
			cmd.SilenceUsage = true

			resp, err := sdk.Folder.Watches(cmd.Context())
			if err != nil {
				return err
			}
			renderWatches(cmd.OutOrStdout(), resp.Watches)
			return nil
		},
	}
}

func renderWatches(w io.Writer, watches []daemonmsg.Watch) {
	if len(watches) == 0 {
		fmt.Fprintln(w, gray.Render("no watched folders"))
		return
	}
	for _, watch := range watches {
		state := green.Render("enabled")
		if !watch.Enabled {
			state = gray.Render("disabled")
		}
		fmt.Fprintf(w, "%s  %s  %s\n", bold.Render(watch.Name), watch.Root, state)
	}
}

func daemonWatches(watches []config.Watch) []daemonmsg.Watch {
	out := make([]daemonmsg.Watch, 0, len(watches))
	for _, w := range watches {
		out = append(out, daemonmsg.Watch{Root: w.Root, Name: w.Name, Enabled: w.Enabled})
	}
	return out
}

func historyWatches(watches []daemonmsg.Watch) []history.Watch {
	out := make([]history.Watch, 0, len(watches))
	for _, w := range watches {
		if !w.Enabled {
			continue
		}
		out = append(out, history.Watch{Root: w.Root, Name: w.Name})
	}
	return out
}
