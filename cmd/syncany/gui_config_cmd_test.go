package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncany/syncany-go/internal/config"
)

func runGuiConfig(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := &cobra.Command{Use: "syncany"}
	cmd.AddCommand(newGuiConfigCmd())

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"gui-config"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestGuiConfigCommand_ShowsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gui.yaml")

	out, err := runGuiConfig(t, "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "tray: default")
	assert.Contains(t, out, "theme: default")
	assert.NoFileExists(t, path)
}

func TestGuiConfigCommand_Updates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gui.yaml")

	out, err := runGuiConfig(t, "--path", path, "--tray", "appindicator", "--notifications=false")
	require.NoError(t, err)
	assert.Contains(t, out, "tray: appindicator")

	cfg, err := config.LoadGuiConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config.TrayAppIndicator, cfg.Tray)
	assert.Equal(t, config.ThemeDefault, cfg.Theme)
	assert.False(t, cfg.NotificationsEnabled())

	_, err = runGuiConfig(t, "--path", path, "--theme", "monochrome")
	require.NoError(t, err)
	cfg, err = config.LoadGuiConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config.TrayAppIndicator, cfg.Tray)
	assert.Equal(t, config.ThemeMonochrome, cfg.Theme)
	assert.False(t, cfg.NotificationsEnabled())
}

func TestGuiConfigCommand_RejectsUnknownTray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gui.yaml")

	_, err := runGuiConfig(t, "--path", path, "--tray", "kde")
	var cfgErr *config.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "write", cfgErr.Op)
	assert.NoFileExists(t, path)
}
