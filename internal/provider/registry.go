package provider

import (
	"context"
	"fmt"

	"linkarbox/internal/domain/models"

	"golang.org/x/oauth2"
)

// Factory builds an adapter bound to a token source
type Factory func(ctx context.Context, ts oauth2.TokenSource) (Adapter, error)

// Registry maps each provider tag to its adapter factory
type Registry struct {
	factories map[models.CloudProvider]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[models.CloudProvider]Factory),
	}
}

// Register adds the factory for a provider, replacing any previous one
func (r *Registry) Register(kind models.CloudProvider, factory Factory) {
	r.factories[kind] = factory
}

// New builds an adapter for the given provider
func (r *Registry) New(ctx context.Context, kind models.CloudProvider, ts oauth2.TokenSource) (Adapter, error) {
	factory, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for provider %q", kind)
	}
	return factory(ctx, ts)
}
