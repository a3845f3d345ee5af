// Package registry holds the static catalog of priced resources. The
// catalog is built once at startup and is read-only afterwards, so lookups
// need no synchronization.
package registry

import (
	"fmt"

	"github.com/conduit-market/conduit"
)

// Registry is an insertion-ordered, immutable catalog of resources.
type Registry struct {
	resources []conduit.ResourceDescriptor
	byID      map[string]int
	byRoute   map[string]int
}

// New builds a registry from the given descriptors, preserving order.
// Duplicate ids or method+path routes are configuration errors.
func New(resources ...conduit.ResourceDescriptor) (*Registry, error) {
	r := &Registry{
		resources: make([]conduit.ResourceDescriptor, 0, len(resources)),
		byID:      make(map[string]int, len(resources)),
		byRoute:   make(map[string]int, len(resources)),
	}
	for _, res := range resources {
		if res.ID == "" {
			return nil, fmt.Errorf("registry: resource with empty id (path %q)", res.Path)
		}
		if _, dup := r.byID[res.ID]; dup {
			return nil, fmt.Errorf("registry: duplicate resource id %q", res.ID)
		}
		route := routeKey(res.Method, res.Path)
		if _, dup := r.byRoute[route]; dup {
			return nil, fmt.Errorf("registry: duplicate route %s", route)
		}
		r.byID[res.ID] = len(r.resources)
		r.byRoute[route] = len(r.resources)
		r.resources = append(r.resources, res)
	}
	return r, nil
}

func routeKey(method, path string) string {
	return method + " " + path
}

// Lookup returns the resource registered under id.
func (r *Registry) Lookup(id string) (conduit.ResourceDescriptor, bool) {
	i, ok := r.byID[id]
	if !ok {
		return conduit.ResourceDescriptor{}, false
	}
	return r.resources[i], true
}

// LookupRoute returns the resource serving the given method and path.
func (r *Registry) LookupRoute(method, path string) (conduit.ResourceDescriptor, bool) {
	i, ok := r.byRoute[routeKey(method, path)]
	if !ok {
		return conduit.ResourceDescriptor{}, false
	}
	return r.resources[i], true
}

// List returns all resources in insertion order. The returned slice is a
// copy; callers may not mutate catalog entries through it.
func (r *Registry) List() []conduit.ResourceDescriptor {
	out := make([]conduit.ResourceDescriptor, len(r.resources))
	copy(out, r.resources)
	return out
}

// Len returns the number of registered resources.
func (r *Registry) Len() int { return len(r.resources) }

// First returns the first-registered resource. It is the fallback target of
// the task selector, so an empty registry is a configuration error callers
// are expected to have ruled out via New.
func (r *Registry) First() (conduit.ResourceDescriptor, bool) {
	if len(r.resources) == 0 {
		return conduit.ResourceDescriptor{}, false
	}
	return r.resources[0], true
}

// Categories returns the distinct resource categories in first-seen order.
func (r *Registry) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, res := range r.resources {
		if res.Category == "" || seen[res.Category] {
			continue
		}
		seen[res.Category] = true
		out = append(out, res.Category)
	}
	return out
}
