package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/syncany/syncany-go/internal/config"
	"github.com/syncany/syncany-go/internal/daemonsdk"
)

var (
	red       = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	green     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	cyan      = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	gray      = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	bold      = lipgloss.NewStyle().Bold(true)
	highlight = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

// newSDK builds a daemon client from the merged config.
func newSDK(cmd *cobra.Command) (*daemonsdk.DaemonSDK, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	sdk, err := daemonsdk.New(cfg.ClientURL, cfg.ClientToken)
	if err != nil {
		return nil, nil, err
	}
	return sdk, cfg, nil
}

// connectEvents opens the daemon socket. encodings overrides the offered
// frame encodings, e.g. "json".
func connectEvents(ctx context.Context, sdk *daemonsdk.DaemonSDK, encodings string) error {
	if encodings != "" {
		sdk.Events.SetEncodings(encodings)
	}
	return sdk.Events.Connect(ctx)
}

// connectionError marks err when the socket to the daemon is gone.
func connectionError(sdk *daemonsdk.DaemonSDK, err error) error {
	if err == nil || sdk.Events.IsConnected() {
		return err
	}
	return fmt.Errorf("%w (daemon connection lost)", err)
}
