// Package folder serves the history of watched roots out of the version
// store, with a small cache of recently requested log windows.
package folder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/syncany/syncany-go/internal/daemonmsg"
	"github.com/syncany/syncany-go/internal/metrics"
)

const DefaultCacheSize = 128

var (
	ErrUnknownRoot    = errors.New("unknown root")
	ErrInvalidOptions = errors.New("invalid log options")
)

// Store is the subset of versionstore.Store the service reads and writes.
type Store interface {
	Append(ctx context.Context, root string, v daemonmsg.DatabaseVersion) error
	Log(ctx context.Context, root string, opts daemonmsg.LogOptions) ([]daemonmsg.DatabaseVersion, error)
	Headers(ctx context.Context, root string) ([]daemonmsg.VersionHeader, error)
	Count(ctx context.Context, root string) (int, error)
}

type windowKey struct {
	root string
	opts daemonmsg.LogOptions
}

type Service struct {
	store    Store
	registry *Registry
	cache    *lru.Cache[windowKey, []daemonmsg.DatabaseVersion]

	// generations counts appends per root; a window read across an append
	// is served but never cached.
	mu          sync.Mutex
	generations map[string]uint64
}

func NewService(store Store, registry *Registry, cacheSize int) (*Service, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[windowKey, []daemonmsg.DatabaseVersion](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("log window cache: %w", err)
	}
	return &Service{
		store:       store,
		registry:    registry,
		cache:       cache,
		generations: make(map[string]uint64),
	}, nil
}

func (s *Service) Watches() []daemonmsg.Watch {
	return s.registry.List()
}

// Log returns a window of the version log of root, newest first.
func (s *Service) Log(ctx context.Context, root string, opts daemonmsg.LogOptions) ([]daemonmsg.DatabaseVersion, error) {
	root, err := s.resolve(root)
	if err != nil {
		return nil, err
	}
	if opts.StartDatabaseVersionIndex < 0 || opts.MaxDatabaseVersionCount <= 0 || opts.MaxFileHistoryCount < 0 {
		return nil, fmt.Errorf("%w: %+v", ErrInvalidOptions, opts)
	}

	key := windowKey{root: root, opts: opts}
	if versions, ok := s.cache.Get(key); ok {
		metrics.LogWindowCacheTotal.WithLabelValues("hit").Inc()
		return versions, nil
	}
	metrics.LogWindowCacheTotal.WithLabelValues("miss").Inc()

	gen := s.generation(root)
	versions, err := s.store.Log(ctx, root, opts)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.generations[root] == gen {
		s.cache.Add(key, versions)
	}
	s.mu.Unlock()
	return versions, nil
}

func (s *Service) Headers(ctx context.Context, root string) ([]daemonmsg.VersionHeader, error) {
	root, err := s.resolve(root)
	if err != nil {
		return nil, err
	}
	return s.store.Headers(ctx, root)
}

func (s *Service) Count(ctx context.Context, root string) (int, error) {
	root, err := s.resolve(root)
	if err != nil {
		return 0, err
	}
	return s.store.Count(ctx, root)
}

// Append records a new database version and drops the cached windows of root.
func (s *Service) Append(ctx context.Context, root string, v daemonmsg.DatabaseVersion) error {
	root, err := s.resolve(root)
	if err != nil {
		return err
	}
	if err := s.store.Append(ctx, root, v); err != nil {
		return err
	}

	s.mu.Lock()
	s.generations[root]++
	dropped := 0
	for _, key := range s.cache.Keys() {
		if key.root == root && s.cache.Remove(key) {
			dropped++
		}
	}
	s.mu.Unlock()
	slog.Debug("folder version appended", "root", root, "date", v.Date, "changes", v.ChangeSet.Len(), "cacheDropped", dropped)
	return nil
}

func (s *Service) generation(root string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[root]
}

func (s *Service) resolve(root string) (string, error) {
	if root == "" || !s.registry.Has(root) {
		return "", fmt.Errorf("%w: %q", ErrUnknownRoot, root)
	}
	return filepath.Clean(root), nil
}
