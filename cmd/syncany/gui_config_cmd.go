package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/syncany/syncany-go/internal/config"
	"gopkg.in/yaml.v3"
)

func init() {
	rootCmd.AddCommand(newGuiConfigCmd())
}

func newGuiConfigCmd() *cobra.Command {
	var (
		path          string
		tray          string
		theme         string
		notifications bool
	)

	guiCmd := &cobra.Command{
		Use:   "gui-config",
		Short: "Show or update the tray and notification settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadGuiConfig(path)
			if err != nil {
				return err
			}

			changed := false
			if cmd.Flags().Changed("tray") {
				cfg.Tray = config.TrayType(tray)
				changed = true
			}
			if cmd.Flags().Changed("theme") {
				cfg.Theme = config.TrayTheme(theme)
				changed = true
			}
			if cmd.Flags().Changed("notifications") {
				cfg.SetNotifications(notifications)
				changed = true
			}

			if changed {
				if err := cfg.Save(path); err != nil {
					return err
				}
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	guiCmd.Flags().StringVar(&path, "path", config.DefaultGuiPath, "GUI config file")
	guiCmd.Flags().StringVar(&tray, "tray", "", "Tray type: default, appindicator or osx_notification_center")
	guiCmd.Flags().StringVar(&theme, "theme", "", "Tray theme: default or monochrome")
	guiCmd.Flags().BoolVar(&notifications, "notifications", true, "Show desktop notifications")

	return guiCmd
}
