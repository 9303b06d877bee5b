package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/syncany/syncany-go/internal/daemon"
	"github.com/syncany/syncany-go/internal/utils"
	"github.com/syncany/syncany-go/internal/version"
)

const generatedTokenLength = 32

func init() {
	rootCmd.AddCommand(newDaemonCmd())
}

func newDaemonCmd() *cobra.Command {
	var addr string
	var authToken string
	var enableMetrics bool

	daemonCmd := &cobra.Command{
		Use:         "daemon",
		Short:       "Start the Syncany daemon",
		Annotations: map[string]string{annotationLogLevel: "info"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			slog.Info("syncany", "version", version.Version, "revision", version.Revision, "build", version.BuildDate)
			slog.Info("daemon using config", "path", cfg.Path)

			if authToken == "" {
				authToken = cfg.ClientToken
			}
			if authToken == "" {
				authToken, err = utils.RandToken(generatedTokenLength)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "control plane token: %s\n", authToken)
			}

			d, err := daemon.NewClientDaemon(&daemon.Config{
				Addr:          addr,
				AuthToken:     authToken,
				DataDir:       cfg.DataDir,
				Watches:       daemonWatches(cfg.Watches),
				EnableMetrics: enableMetrics,
			})
			if err != nil {
				return err
			}

			defer slog.Info("Bye!")
			if err := d.Start(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("daemon start", "error", err)
				return err
			}
			return nil
		},
	}

	daemonCmd.Flags().StringVarP(&addr, "http-addr", "a", daemon.DefaultAddr, "Address to bind the local http server")
	daemonCmd.Flags().StringVarP(&authToken, "http-token", "t", "", "Access token for the local http server, generated when empty")
	daemonCmd.Flags().BoolVar(&enableMetrics, "metrics", true, "Expose prometheus metrics on /metrics")

	return daemonCmd
}
