package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/brightsprout/storefront-api/internal/domain"
	"github.com/brightsprout/storefront-api/internal/filter"
	"github.com/brightsprout/storefront-api/internal/repositories"
)

var (
	// ErrStorefrontUnavailable indicates the service cannot reach the catalog.
	ErrStorefrontUnavailable = errors.New("storefront: service unavailable")
	// ErrStorefrontInvalidInput indicates the caller provided invalid data.
	ErrStorefrontInvalidInput = errors.New("storefront: invalid input")
	// ErrStorefrontProductNotFound indicates no product matches the id.
	ErrStorefrontProductNotFound = errors.New("storefront: product not found")

	errStorefrontRepositoryRequired = errors.New("storefront: product repository is required")
)

// StorefrontServiceDeps wires the catalog dependency for listing operations.
type StorefrontServiceDeps struct {
	Products repositories.ProductRepository
	Clock    func() time.Time
}

type storefrontService struct {
	products repositories.ProductRepository
	now      func() time.Time
}

// NewStorefrontService constructs a StorefrontService with the provided dependencies.
func NewStorefrontService(deps StorefrontServiceDeps) (StorefrontService, error) {
	if deps.Products == nil {
		return nil, errStorefrontRepositoryRequired
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &storefrontService{
		products: deps.Products,
		now:      func() time.Time { return clock().UTC() },
	}, nil
}

func (s *storefrontService) ListProducts(ctx context.Context, query ProductQuery) (ProductListing, error) {
	if s == nil || s.products == nil {
		return ProductListing{}, ErrStorefrontUnavailable
	}

	all, err := s.products.ListProducts(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ProductListing{}, err
		}
		return ProductListing{}, errors.Join(ErrStorefrontUnavailable, err)
	}

	matched := filter.Apply(all, query.State)
	return ProductListing{
		Products: matched,
		Total:    len(matched),
		Query:    filter.EncodeQuery(query.State),
	}, nil
}

func (s *storefrontService) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	if s == nil || s.products == nil {
		return domain.Product{}, ErrStorefrontUnavailable
	}
	if strings.TrimSpace(productID) == "" {
		return domain.Product{}, ErrStorefrontInvalidInput
	}

	product, err := s.products.GetProduct(ctx, productID)
	if errors.Is(err, repositories.ErrProductNotFound) {
		// Storefront links address products by slug as often as by id.
		product, err = s.products.GetProductBySlug(ctx, productID)
	}
	switch {
	case err == nil:
		return product, nil
	case errors.Is(err, repositories.ErrProductNotFound):
		return domain.Product{}, ErrStorefrontProductNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domain.Product{}, err
	default:
		return domain.Product{}, errors.Join(ErrStorefrontUnavailable, err)
	}
}

// ListCategories folds every product's category label to its canonical slug
// and counts the members of each family.
func (s *storefrontService) ListCategories(ctx context.Context) ([]domain.CategoryCount, error) {
	if s == nil || s.products == nil {
		return nil, ErrStorefrontUnavailable
	}

	all, err := s.products.ListProducts(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, errors.Join(ErrStorefrontUnavailable, err)
	}

	counts := make(map[string]*domain.CategoryCount)
	for _, product := range all {
		label := product.Category.Name
		if label == "" {
			continue
		}
		slug := filter.Normalize(label)
		entry, ok := counts[slug]
		if !ok {
			entry = &domain.CategoryCount{Slug: slug, Name: label}
			counts[slug] = entry
		}
		entry.Count++
	}

	out := make([]domain.CategoryCount, 0, len(counts))
	for _, entry := range counts {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Slug < out[j].Slug
	})
	return out, nil
}
