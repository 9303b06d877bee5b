// Package config holds the client configuration shared by the daemon and the
// command line front-end.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"github.com/syncany/syncany-go/internal/history"
	"github.com/syncany/syncany-go/internal/utils"
)

var (
	home, _            = os.UserHomeDir()
	DefaultConfigDir   = filepath.Join(home, ".syncany")
	DefaultConfigPath  = filepath.Join(DefaultConfigDir, "config.json")
	DefaultGuiPath     = filepath.Join(DefaultConfigDir, "gui.yaml")
	DefaultLogFilePath = filepath.Join(DefaultConfigDir, "logs", "syncany.log")
	DefaultDataDir     = filepath.Join(DefaultConfigDir, "data")
	DefaultClientURL   = "http://localhost:8443"
)

var (
	ErrNoDataDir      = errors.New("data dir is required")
	ErrInvalidURL     = errors.New("client url is invalid")
	ErrDuplicateWatch = errors.New("watch root is listed twice")
)

type Watch struct {
	Root    string `json:"root"`
	Name    string `json:"name,omitempty"`
	Enabled bool   `json:"enabled"`
}

type LogWindow struct {
	MaxVersions        int `json:"max_versions"`
	MaxFilesPerVersion int `json:"max_files"`
}

type Config struct {
	DataDir     string    `json:"data_dir"`
	ClientURL   string    `json:"client_url"`
	ClientToken string    `json:"client_token,omitempty"`
	Watches     []Watch   `json:"watches,omitempty"`
	LogWindow   LogWindow `json:"log_window"`
	Path        string    `json:"-"`
}

// Validate resolves paths, fills defaults and checks the URL and watch list.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return ErrNoDataDir
	}
	dataDir, err := utils.ResolvePath(c.DataDir)
	if err != nil {
		return fmt.Errorf("data dir: %w", err)
	}
	c.DataDir = dataDir

	if c.Path != "" {
		p, err := utils.ResolvePath(c.Path)
		if err != nil {
			return fmt.Errorf("config path: %w", err)
		}
		c.Path = p
	}

	if c.ClientURL == "" {
		c.ClientURL = DefaultClientURL
	}
	u, err := url.Parse(c.ClientURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, c.ClientURL)
	}
	c.ClientURL = strings.TrimRight(c.ClientURL, "/")

	seen := make([]string, 0, len(c.Watches))
	for i := range c.Watches {
		w := &c.Watches[i]
		root, err := utils.ResolvePath(w.Root)
		if err != nil {
			return fmt.Errorf("watch %d: %w", i, err)
		}
		if slices.Contains(seen, root) {
			return fmt.Errorf("%w: %s", ErrDuplicateWatch, root)
		}
		seen = append(seen, root)
		w.Root = root
		if w.Name == "" {
			w.Name = filepath.Base(root)
		}
	}

	if c.LogWindow.MaxVersions <= 0 {
		c.LogWindow.MaxVersions = history.DefaultMaxVersions
	}
	if c.LogWindow.MaxFilesPerVersion <= 0 {
		c.LogWindow.MaxFilesPerVersion = history.DefaultMaxFilesPerVersion
	}

	return nil
}

func (c *Config) Window() history.Window {
	return history.Window{
		MaxVersions:        c.LogWindow.MaxVersions,
		MaxFilesPerVersion: c.LogWindow.MaxFilesPerVersion,
	}
}

// EnabledRoots lists the roots of enabled watches in config order.
func (c *Config) EnabledRoots() []string {
	roots := make([]string, 0, len(c.Watches))
	for _, w := range c.Watches {
		if w.Enabled {
			roots = append(roots, w.Root)
		}
	}
	return roots
}

func (c *Config) Save() error {
	if c.Path == "" {
		return fmt.Errorf("config path is empty")
	}
	if err := utils.EnsureParent(c.Path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.Path, data, 0o600)
}

func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Path = path
	return &cfg, nil
}
