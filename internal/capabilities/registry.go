package capabilities

import (
	"embed"
	"fmt"
	"sync"

	"linkarbox/internal/domain"
	"linkarbox/internal/domain/models"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Registry holds the feature matrix of every cloud provider
type Registry struct {
	providers map[models.CloudProvider]*ProviderCapabilities
	mu        sync.RWMutex
}

// NewRegistry creates a capability registry from the embedded YAML files
func NewRegistry() (*Registry, error) {
	r := &Registry{
		providers: make(map[models.CloudProvider]*ProviderCapabilities),
	}

	for _, p := range models.CloudProviders {
		if err := r.loadProviderFile(p); err != nil {
			return nil, fmt.Errorf("failed to load %s capabilities: %w", p, err)
		}
	}

	return r, nil
}

func (r *Registry) loadProviderFile(provider models.CloudProvider) error {
	filename := fmt.Sprintf("config/%s.yaml", provider)
	data, err := configFiles.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}

	var caps ProviderCapabilities
	if err := yaml.Unmarshal(data, &caps); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filename, err)
	}

	r.mu.Lock()
	r.providers[provider] = &caps
	r.mu.Unlock()

	return nil
}

// Get returns the capabilities of a provider
func (r *Registry) Get(provider models.CloudProvider) (*ProviderCapabilities, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	caps, ok := r.providers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %s", domain.ErrNotFound, provider)
	}
	return caps, nil
}

// List returns every provider in reconnect order
func (r *Registry) List() []*ProviderCapabilities {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*ProviderCapabilities, 0, len(r.providers))
	for _, p := range models.CloudProviders {
		if caps, ok := r.providers[p]; ok {
			out = append(out, caps)
		}
	}
	return out
}

// Check returns nil when the provider supports the operation, otherwise an
// error wrapping domain.ErrUnsupported with the user-visible message.
func (r *Registry) Check(provider models.CloudProvider, op string) error {
	caps, err := r.Get(provider)
	if err != nil {
		return err
	}
	opCaps := caps.Operation(op)
	if opCaps == nil || !opCaps.Supported {
		msg := fmt.Sprintf("%s is not supported for %s", op, caps.DisplayName)
		if opCaps != nil && opCaps.Message != "" {
			msg = opCaps.Message
		}
		return fmt.Errorf("%w: %s", domain.ErrUnsupported, msg)
	}
	return nil
}
