package repositories

import (
	"context"

	"github.com/brightsprout/storefront-api/internal/domain"
)

// ProductRepository serves the storefront's product catalog. Implementations
// must return stable snapshots: a slice handed out is never mutated by a
// later catalog reload.
type ProductRepository interface {
	// ListProducts returns every product in the catalog.
	ListProducts(ctx context.Context) ([]domain.Product, error)
	// GetProduct retrieves one product by id. Returns ErrProductNotFound
	// when the id is unknown.
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	// GetProductBySlug retrieves one product by its URL slug. Returns
	// ErrProductNotFound when the slug is unknown.
	GetProductBySlug(ctx context.Context, slug string) (domain.Product, error)
}

// ReloadableRepository is implemented by repositories whose backing data can
// change at runtime. Hooks registered through OnReload run after every
// successful reload.
type ReloadableRepository interface {
	OnReload(hook func())
}
