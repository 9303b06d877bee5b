package folder

import (
	"path/filepath"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/syncany/syncany-go/internal/daemonmsg"
)

// Registry is the set of roots the daemon serves, in registration order.
type Registry struct {
	mu      sync.RWMutex
	roots   mapset.Set[string]
	watches []daemonmsg.Watch
}

func NewRegistry(watches ...daemonmsg.Watch) *Registry {
	r := &Registry{roots: mapset.NewThreadUnsafeSet[string]()}
	for _, w := range watches {
		r.Add(w)
	}
	return r
}

// Add registers w and reports whether its root was new.
func (r *Registry) Add(w daemonmsg.Watch) bool {
	w.Root = filepath.Clean(w.Root)
	if w.Name == "" {
		w.Name = filepath.Base(w.Root)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.roots.Add(w.Root) {
		return false
	}
	r.watches = append(r.watches, w)
	return true
}

func (r *Registry) Has(root string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.roots.Contains(filepath.Clean(root))
}

func (r *Registry) List() []daemonmsg.Watch {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]daemonmsg.Watch, len(r.watches))
	copy(out, r.watches)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.roots.Cardinality()
}
