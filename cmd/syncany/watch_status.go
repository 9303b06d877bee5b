package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/syncany/syncany-go/internal/daemonmsg"
	"github.com/syncany/syncany-go/internal/daemonsdk"
)

func init() {
	rootCmd.AddCommand(newWatchStatusCmd())
}

func newWatchStatusCmd() *cobra.Command {
	var root, encoding string

	watchStatusCmd := &cobra.Command{
		Use:   "watch-status",
		Short: "Print status texts pushed by the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			sdk, _, err := newSDK(cmd)
			if err != nil {
				return err
			}
			defer sdk.Close()
			cmd.SilenceUsage = true

			ctx := cmd.Context()
			if err := connectEvents(ctx, sdk, encoding); err != nil {
				return err
			}

			bus := daemonsdk.NewLogBus(sdk.Events)
			go bus.Run(ctx)

			printStatusTexts(ctx, cmd.OutOrStdout(), bus.StatusTexts(), root)
			return nil
		},
	}

	watchStatusCmd.Flags().StringVarP(&root, "root", "r", "", "Only print status texts of this folder")
	watchStatusCmd.Flags().StringVar(&encoding, "encoding", "", "Socket encodings to offer (msgpack,json), json forces text frames")

	return watchStatusCmd
}

// printStatusTexts prints texts until ctx is done or the channel closes.
func printStatusTexts(ctx context.Context, w io.Writer, texts <-chan daemonmsg.StatusText, root string) {
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-texts:
			if !ok {
				return
			}
			if root != "" && st.Root != root {
				continue
			}
			label := st.Root
			if label == "" {
				label = "*"
			}
			fmt.Fprintf(w, "%s %s %s\n", gray.Render(time.Now().Format(time.TimeOnly)), cyan.Render(label), st.Text)
		}
	}
}
