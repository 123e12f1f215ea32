// Package diffbase supplies the reference text a document is diffed against.
package diffbase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Provider returns the raw, undecoded diff base for a file. The boolean is
// false when the provider has nothing for path.
type Provider interface {
	DiffBase(ctx context.Context, path string) ([]byte, bool)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, path string) ([]byte, bool)

func (f ProviderFunc) DiffBase(ctx context.Context, path string) ([]byte, bool) {
	return f(ctx, path)
}

// Registry asks its providers in order and returns the first base found.
type Registry struct {
	providers []Provider
}

func NewRegistry(providers ...Provider) *Registry {
	return &Registry{providers: providers}
}

func (r *Registry) DiffBase(ctx context.Context, path string) ([]byte, bool) {
	for _, p := range r.providers {
		if ctx.Err() != nil {
			return nil, false
		}
		if base, ok := p.DiffBase(ctx, path); ok {
			return base, true
		}
	}
	return nil, false
}

const (
	ProviderGit    = "git"
	ProviderPinned = "pinned"
)

// FromConfig builds a registry in the order named by providers. The store is
// only required when "pinned" is listed.
func FromConfig(providers []string, store *Store, logger zerolog.Logger) (*Registry, error) {
	list := make([]Provider, 0, len(providers))
	for _, name := range providers {
		switch name {
		case ProviderGit:
			list = append(list, NewGit(logger))
		case ProviderPinned:
			if store == nil {
				return nil, fmt.Errorf("provider %q needs a pinned base store", name)
			}
			list = append(list, store)
		default:
			return nil, fmt.Errorf("unknown diff base provider %q", name)
		}
	}
	return NewRegistry(list...), nil
}
