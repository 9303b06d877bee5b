package daemon

import (
	"errors"
	"path/filepath"

	"github.com/syncany/syncany-go/internal/daemonmsg"
)

const (
	DefaultAddr   = "127.0.0.1:8443"
	lockFileName  = "daemon.lock"
	storeFileName = "versions.db"
)

type Config struct {
	Addr          string            // control plane listen address
	AuthToken     string            // bearer token for /v1, empty disables auth
	DataDir       string            // holds the lock file and the version store
	Watches       []daemonmsg.Watch // roots served by the daemon
	LogCacheSize  int               // cached log windows, 0 for the default
	EnableMetrics bool              // expose /metrics
}

func (c *Config) validate() error {
	if c.DataDir == "" {
		return errors.New("daemon: data dir is required")
	}
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	return nil
}

func (c *Config) lockPath() string  { return filepath.Join(c.DataDir, lockFileName) }
func (c *Config) storePath() string { return filepath.Join(c.DataDir, storeFileName) }
