package write

import (
	"context"
	"fmt"
	"sync"

	"github.com/storefront/backend/internal/domain/shared"
)

// ExtenderProvider contributes extenders to the collection of a write call.
// Providers are queried once per call, after the default extender was added
// and before the first row is written.
type ExtenderProvider interface {
	ProvideExtenders(ctx context.Context, wctx *WriteContext, collection *FieldExtenderCollection) error
}

// ExtenderProviderFunc adapts a function into an ExtenderProvider
type ExtenderProviderFunc func(ctx context.Context, wctx *WriteContext, collection *FieldExtenderCollection) error

// ProvideExtenders implements ExtenderProvider
func (f ExtenderProviderFunc) ProvideExtenders(ctx context.Context, wctx *WriteContext, collection *FieldExtenderCollection) error {
	return f(ctx, wctx, collection)
}

// StaticExtenders returns a provider that always adds the given extenders
func StaticExtenders(extenders ...FieldExtender) ExtenderProvider {
	return ExtenderProviderFunc(func(_ context.Context, _ *WriteContext, c *FieldExtenderCollection) error {
		for _, ext := range extenders {
			if err := c.Add(ext); err != nil {
				return err
			}
		}
		return nil
	})
}

// ExtenderRegistry lets components register providers after the writer was
// built. It is itself a provider and forwards to the registered providers in
// registration order.
type ExtenderRegistry struct {
	mu        sync.RWMutex
	providers []ExtenderProvider
}

// NewExtenderRegistry creates an empty registry
func NewExtenderRegistry() *ExtenderRegistry {
	return &ExtenderRegistry{}
}

// Register appends a provider
func (r *ExtenderRegistry) Register(provider ExtenderProvider) error {
	if provider == nil {
		return fmt.Errorf("%w: extender provider cannot be nil", shared.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers = append(r.providers, provider)
	return nil
}

// Count returns the number of registered providers
func (r *ExtenderRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

// ProvideExtenders implements ExtenderProvider
func (r *ExtenderRegistry) ProvideExtenders(ctx context.Context, wctx *WriteContext, collection *FieldExtenderCollection) error {
	r.mu.RLock()
	providers := make([]ExtenderProvider, len(r.providers))
	copy(providers, r.providers)
	r.mu.RUnlock()

	for _, p := range providers {
		if err := p.ProvideExtenders(ctx, wctx, collection); err != nil {
			return err
		}
	}
	return nil
}

var _ ExtenderProvider = (*ExtenderRegistry)(nil)
