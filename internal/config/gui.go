package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/syncany/syncany-go/internal/utils"
	"gopkg.in/yaml.v3"
)

type TrayType string

const (
	TrayDefault               TrayType = "default"
	TrayAppIndicator          TrayType = "appindicator"
	TrayOSXNotificationCenter TrayType = "osx_notification_center"
)

type TrayTheme string

const (
	ThemeDefault    TrayTheme = "default"
	ThemeMonochrome TrayTheme = "monochrome"
)

// ConfigError reports a GUI config file that could not be read or written.
type ConfigError struct {
	Op   string
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("gui config %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

type GuiConfig struct {
	Tray          TrayType  `yaml:"tray"`
	Theme         TrayTheme `yaml:"theme"`
	Notifications *bool     `yaml:"notifications,omitempty"`
}

func DefaultGuiConfig() *GuiConfig {
	on := true
	return &GuiConfig{Tray: TrayDefault, Theme: ThemeDefault, Notifications: &on}
}

func (g *GuiConfig) NotificationsEnabled() bool {
	return g.Notifications == nil || *g.Notifications
}

func (g *GuiConfig) SetNotifications(on bool) {
	g.Notifications = &on
}

func (g *GuiConfig) Validate() error {
	switch g.Tray {
	case "":
		g.Tray = TrayDefault
	case TrayDefault, TrayAppIndicator, TrayOSXNotificationCenter:
	default:
		return fmt.Errorf("unknown tray type %q", g.Tray)
	}

	switch g.Theme {
	case "":
		g.Theme = ThemeDefault
	case ThemeDefault, ThemeMonochrome:
	default:
		return fmt.Errorf("unknown tray theme %q", g.Theme)
	}
	return nil
}

// LoadGuiConfig reads path. A missing file yields the defaults.
func LoadGuiConfig(path string) (*GuiConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultGuiConfig(), nil
	}
	if err != nil {
		return nil, &ConfigError{Op: "read", Path: path, Err: err}
	}

	cfg := DefaultGuiConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &ConfigError{Op: "read", Path: path, Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Op: "read", Path: path, Err: err}
	}
	return cfg, nil
}

func (g *GuiConfig) Save(path string) error {
	if err := g.Validate(); err != nil {
		return &ConfigError{Op: "write", Path: path, Err: err}
	}
	if err := utils.EnsureParent(path); err != nil {
		return &ConfigError{Op: "write", Path: path, Err: err}
	}

	data, err := yaml.Marshal(g)
	if err != nil {
		return &ConfigError{Op: "write", Path: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &ConfigError{Op: "write", Path: path, Err: err}
	}
	return nil
}
