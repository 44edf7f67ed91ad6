package storage

import (
	"fmt"
	"sort"
)

// Registry holds the container clients provisioned at startup.
//
// It is built once from the configured name list and is read-only
// thereafter, so lookups are safe for concurrent use without locking.
type Registry struct {
	containers map[string]Container
}

// NewRegistry builds a registry from the given containers.
// Duplicate names are rejected: silently shadowing a role container
// would misroute pipeline output.
func NewRegistry(containers ...Container) (*Registry, error) {
	m := make(map[string]Container, len(containers))
	for _, c := range containers {
		name := c.Name()
		if name == "" {
			return nil, fmt.Errorf("container with empty name")
		}
		if _, ok := m[name]; ok {
			return nil, fmt.Errorf("duplicate container name: %s", name)
		}
		m[name] = c
	}
	return &Registry{containers: m}, nil
}

// Get returns the container client for name.
// Returns ErrContainerNotFound for names not configured at startup.
func (r *Registry) Get(name string) (Container, error) {
	c, ok := r.containers[name]
	if !ok {
		return nil, &StorageError{Op: "Get", Container: name, Err: ErrContainerNotFound}
	}
	return c, nil
}

// Names returns the configured container names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.containers))
	for name := range r.containers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
