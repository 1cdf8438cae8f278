package controlplane

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps provider names to control plane instances, so plans can
// address multiple providers ("mem", "aws", "ctyun") from one run.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]ControlPlane
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]ControlPlane)}
}

// Register adds a provider. Registering a name twice is an error.
func (r *Registry) Register(name string, cp ControlPlane) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("provider %q is already registered", name)
	}
	r.providers[name] = cp
	return nil
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (ControlPlane, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cp, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not found, available: %v", name, r.names())
	}
	return cp, nil
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names()
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
