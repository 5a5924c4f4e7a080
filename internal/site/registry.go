// Package site tracks which slugs are live and where their published
// files sit on disk.
package site

import (
	"sort"
	"sync"
)

// Registry is the single source of truth for routing: a mutex-guarded
// mapping from slug to the absolute path of that deployment's served
// root. It is shared by reference between the build pipeline (writer)
// and the request router (reader). Entries live for the process
// lifetime; nothing is persisted across restarts.
type Registry struct {
	mu    sync.RWMutex
	sites map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sites: make(map[string]string),
	}
}

// Register maps a slug to its served root. Called by the pipeline only
// after the site's files are fully on disk, so a reader that finds the
// slug always finds a complete site behind it.
func (r *Registry) Register(slug, root string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sites[slug] = root
}

// Lookup returns the served root for a slug, if registered.
func (r *Registry) Lookup(slug string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	root, ok := r.sites[slug]
	return root, ok
}

// List returns all registered slugs, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slugs := make([]string, 0, len(r.sites))
	for slug := range r.sites {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	return slugs
}

// Count returns the number of registered sites.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sites)
}

// Clear removes all entries. Test helper.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sites = make(map[string]string)
}
