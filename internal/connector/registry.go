package connector

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Factory is a function that creates a new Connector instance.
type Factory func() Connector

// Registry maps connection URI schemes to connector factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// RegisterDriver registers a connector factory for one or more URI schemes.
func (r *Registry) RegisterDriver(factory Factory, schemes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range schemes {
		r.factories[s] = factory
	}
}

// Open creates a connector for the scheme of cfg.URI and connects it.
func (r *Registry) Open(ctx context.Context, cfg ConnectionConfig) (Connector, error) {
	scheme, err := Scheme(cfg.URI)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	factory, ok := r.factories[scheme]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported database scheme %q (available: %v)", scheme, r.Schemes())
	}

	conn := factory()
	if err := conn.Connect(ctx, cfg); err != nil {
		return nil, fmt.Errorf("connect %s: %w", scheme, err)
	}
	return conn, nil
}

// Schemes returns the registered URI schemes in sorted order.
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemes := make([]string, 0, len(r.factories))
	for s := range r.factories {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}
