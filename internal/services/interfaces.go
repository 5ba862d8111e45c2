package services

import (
	"context"
	"net/url"
	"time"

	"github.com/brightsprout/storefront-api/internal/domain"
	"github.com/brightsprout/storefront-api/internal/filter"
)

// StorefrontService answers product listing queries for the storefront.
type StorefrontService interface {
	// ListProducts applies the filter state to the catalog and returns
	// the matching products in sorted order.
	ListProducts(ctx context.Context, query ProductQuery) (ProductListing, error)
	// GetProduct retrieves one product by id.
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	// ListCategories summarises the catalog by canonical category slug.
	ListCategories(ctx context.Context) ([]domain.CategoryCount, error)
}

// ProductQuery carries the parsed filter state for a listing request.
type ProductQuery struct {
	State filter.State
}

// ProductListing is the result of a filtered catalog query.
type ProductListing struct {
	Products []domain.Product
	Total    int
	Query    url.Values
}

// FilterSessionService manages server-side filter sessions: each session
// owns a filter state, applies actions to it, and mirrors the canonical
// query string through a debounced navigator.
type FilterSessionService interface {
	// CreateSession starts a session, optionally hydrated from a query string.
	CreateSession(ctx context.Context, query url.Values) (FilterSessionSnapshot, error)
	// GetSession returns the current snapshot of a session.
	GetSession(ctx context.Context, sessionID string) (FilterSessionSnapshot, error)
	// ApplyActions dispatches actions to a session in order.
	ApplyActions(ctx context.Context, sessionID string, actions []filter.Action) (FilterSessionSnapshot, error)
	// DeleteSession closes and removes a session.
	DeleteSession(ctx context.Context, sessionID string) error
	// CleanupExpired removes up to limit idle sessions and reports how
	// many were dropped.
	CleanupExpired(ctx context.Context, now time.Time, limit int) (int, error)
	// Count reports how many sessions are currently held.
	Count() int
}

// FilterSessionSnapshot is the externally visible view of a session.
type FilterSessionSnapshot struct {
	ID        string
	State     filter.State
	Query     url.Values
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
}

// SystemService reports dependency health for the readiness endpoint.
type SystemService interface {
	Health(ctx context.Context) (domain.HealthReport, error)
}
