package agent

import (
	"context"
	"fmt"

	"github.com/forgeworks/foreman/internal/config"
)

// Provider is a raw text-completion backend. Which provider serves which
// role is a configuration-time binding; nothing downstream branches on it.
type Provider interface {
	// Complete sends a system and user prompt and returns the text reply.
	Complete(ctx context.Context, system, user string) (string, error)
}

// Registry holds the role → provider bindings.
type Registry struct {
	providers map[Role]Provider
}

// NewRegistry builds providers for every role from configuration.
func NewRegistry(cfg config.ProvidersConfig) (*Registry, error) {
	r := &Registry{providers: make(map[Role]Provider, 6)}
	for name, pc := range cfg.Roles() {
		role := Role(name)
		p, err := newProvider(pc)
		if err != nil {
			return nil, fmt.Errorf("provider for role %s: %w", role, err)
		}
		r.providers[role] = p
	}
	return r, nil
}

// NewRegistryWithProvider binds every role to the same provider (testing
// and single-endpoint deployments).
func NewRegistryWithProvider(p Provider) *Registry {
	r := &Registry{providers: make(map[Role]Provider, 6)}
	for _, role := range Roles() {
		r.providers[role] = p
	}
	return r
}

// Provider returns the provider bound to the role.
func (r *Registry) Provider(role Role) (Provider, error) {
	p, ok := r.providers[role]
	if !ok {
		return nil, fmt.Errorf("no provider bound for role %s", role)
	}
	return p, nil
}

// newProvider constructs a provider from one role binding.
func newProvider(pc config.ProviderConfig) (Provider, error) {
	switch pc.Backend {
	case config.BackendAnthropic:
		return NewAnthropicProvider(pc)
	case config.BackendOpenAI:
		return NewOpenAIProvider(pc)
	default:
		return nil, fmt.Errorf("unknown backend %q", pc.Backend)
	}
}
