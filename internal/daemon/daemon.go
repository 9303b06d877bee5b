// Package daemon runs the local sync daemon: the control plane, the event
// sockets and the dispatcher answering history requests from front-ends.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/gofrs/flock"
	"github.com/syncany/syncany-go/internal/daemon/folder"
	"github.com/syncany/syncany-go/internal/daemon/middleware"
	"github.com/syncany/syncany-go/internal/daemon/wshub"
	"github.com/syncany/syncany-go/internal/utils"
	"github.com/syncany/syncany-go/internal/versionstore"
	"golang.org/x/sync/errgroup"
)

var ErrAlreadyRunning = errors.New("daemon already running for this data dir")

type ClientDaemon struct {
	config     *Config
	lock       *flock.Flock
	store      *versionstore.Store
	registry   *folder.Registry
	folders    *folder.Service
	hub        *wshub.Hub
	dispatcher *Dispatcher
	cps        *ControlPlaneServer
}

func NewClientDaemon(config *Config) (*ClientDaemon, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	store := versionstore.New(config.storePath())
	registry := folder.NewRegistry(config.Watches...)
	folders, err := folder.NewService(store, registry, config.LogCacheSize)
	if err != nil {
		return nil, err
	}

	hub := wshub.New()
	routes := SetupRoutes(folders, registry, hub, &RouteConfig{
		Auth:    middleware.TokenAuthConfig{Token: config.AuthToken},
		Metrics: config.EnableMetrics,
	})

	return &ClientDaemon{
		config:     config,
		lock:       flock.New(config.lockPath()),
		store:      store,
		registry:   registry,
		folders:    folders,
		hub:        hub,
		dispatcher: NewDispatcher(hub, folders),
		cps:        NewControlPlaneServer(config.Addr, config.AuthToken, routes),
	}, nil
}

// Start runs the daemon until ctx is cancelled or a component fails.
func (d *ClientDaemon) Start(ctx context.Context) error {
	l, err := net.Listen("tcp", d.config.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", d.config.Addr, err)
	}
	return d.Serve(ctx, l)
}

// Serve is Start on an existing listener.
func (d *ClientDaemon) Serve(ctx context.Context, l net.Listener) error {
	slog.Info("client daemon start", "datadir", d.config.DataDir, "watches", d.registry.Len())

	if err := utils.EnsureDir(d.config.DataDir); err != nil {
		l.Close()
		return fmt.Errorf("data dir: %w", err)
	}

	locked, err := d.lock.TryLock()
	if err != nil {
		l.Close()
		return fmt.Errorf("lock %s: %w", d.lock.Path(), err)
	}
	if !locked {
		l.Close()
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, d.lock.Path())
	}
	defer d.lock.Unlock()

	if err := d.store.Open(); err != nil {
		l.Close()
		return err
	}
	defer d.store.Close()

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		d.hub.Run(egCtx)
		return nil
	})

	eg.Go(func() error {
		return d.dispatcher.Run(egCtx)
	})

	eg.Go(func() error {
		if err := d.cps.Serve(l); err != nil {
			return fmt.Errorf("control plane: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		slog.Info("stopping daemon")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return d.Stop(shutdownCtx)
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("client daemon failure", "error", err)
		return err
	}

	slog.Info("client daemon stopped")
	return nil
}

func (d *ClientDaemon) Stop(ctx context.Context) error {
	d.hub.Shutdown()
	if err := d.cps.Stop(ctx); err != nil {
		return fmt.Errorf("stop control plane: %w", err)
	}
	return nil
}
