package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brightsprout/storefront-api/internal/domain"
	"github.com/brightsprout/storefront-api/internal/filter"
	"github.com/brightsprout/storefront-api/internal/repositories"
)

type stubProductRepository struct {
	products []domain.Product
	listErr  error
	getErr   error
}

func (s *stubProductRepository) ListProducts(_ context.Context) ([]domain.Product, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]domain.Product, len(s.products))
	copy(out, s.products)
	return out, nil
}

func (s *stubProductRepository) GetProduct(_ context.Context, productID string) (domain.Product, error) {
	if s.getErr != nil {
		return domain.Product{}, s.getErr
	}
	for _, p := range s.products {
		if p.ID == productID {
			return p, nil
		}
	}
	return domain.Product{}, repositories.ErrProductNotFound
}

func (s *stubProductRepository) GetProductBySlug(_ context.Context, slug string) (domain.Product, error) {
	for _, p := range s.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return domain.Product{}, repositories.ErrProductNotFound
}

func storefrontFixture() []domain.Product {
	return []domain.Product{
		{ID: "1", Slug: "fraction-builder", Name: "Fraction Builder", Price: "50", Category: domain.CategoryRef{Name: "Mathematics"}},
		{ID: "2", Slug: "volcano-lab", Name: "Volcano Lab", Price: "150", Category: domain.CategoryRef{Name: "Science"}},
		{ID: "3", Slug: "story-box", Name: "Story Box", Price: "80", Category: domain.CategoryRef{Name: "Cărți educaționale"}},
		{ID: "4", Slug: "geometry-set", Name: "Geometry Set", Price: "60", Category: domain.CategoryRef{Name: "Matematică"}},
	}
}

func TestNewStorefrontService(t *testing.T) {
	if _, err := NewStorefrontService(StorefrontServiceDeps{}); err == nil {
		t.Fatalf("expected error when repository missing")
	}
}

func TestStorefrontService_ListProducts(t *testing.T) {
	svc, err := NewStorefrontService(StorefrontServiceDeps{
		Products: &stubProductRepository{products: storefrontFixture()},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state := filter.NewState()
	state.SelectedCategories = []string{"mathematics"}

	listing, err := svc.ListProducts(context.Background(), ProductQuery{State: state})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if listing.Total != 2 {
		t.Fatalf("expected 2 products, got %d", listing.Total)
	}
	for _, p := range listing.Products {
		if p.ID != "1" && p.ID != "4" {
			t.Fatalf("unexpected product %q in mathematics listing", p.ID)
		}
	}
	if got := listing.Query.Get("category"); got != "mathematics" {
		t.Fatalf("expected canonical query category=mathematics, got %q", got)
	}
}

func TestStorefrontService_ListProductsRepositoryFailure(t *testing.T) {
	svc, err := NewStorefrontService(StorefrontServiceDeps{
		Products: &stubProductRepository{listErr: errors.New("disk gone")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.ListProducts(context.Background(), ProductQuery{State: filter.NewState()})
	if !errors.Is(err, ErrStorefrontUnavailable) {
		t.Fatalf("expected ErrStorefrontUnavailable, got %v", err)
	}
}

func TestStorefrontService_ListProductsContextCancellation(t *testing.T) {
	svc, err := NewStorefrontService(StorefrontServiceDeps{
		Products: &stubProductRepository{listErr: context.Canceled},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.ListProducts(context.Background(), ProductQuery{State: filter.NewState()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled to pass through, got %v", err)
	}
	if errors.Is(err, ErrStorefrontUnavailable) {
		t.Fatalf("cancellation must not be reported as unavailability")
	}
}

func TestStorefrontService_GetProduct(t *testing.T) {
	svc, err := NewStorefrontService(StorefrontServiceDeps{
		Products: &stubProductRepository{products: storefrontFixture()},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("found", func(t *testing.T) {
		got, err := svc.GetProduct(context.Background(), "2")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Slug != "volcano-lab" {
			t.Fatalf("expected volcano-lab, got %q", got.Slug)
		}
	})

	t.Run("slug fallback", func(t *testing.T) {
		got, err := svc.GetProduct(context.Background(), "fraction-builder")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.ID != "1" {
			t.Fatalf("expected product 1, got %q", got.ID)
		}
	})

	t.Run("missing", func(t *testing.T) {
		if _, err := svc.GetProduct(context.Background(), "nope"); !errors.Is(err, ErrStorefrontProductNotFound) {
			t.Fatalf("expected ErrStorefrontProductNotFound, got %v", err)
		}
	})

	t.Run("blank id", func(t *testing.T) {
		if _, err := svc.GetProduct(context.Background(), "  "); !errors.Is(err, ErrStorefrontInvalidInput) {
			t.Fatalf("expected ErrStorefrontInvalidInput, got %v", err)
		}
	})
}

func TestStorefrontService_ListCategories(t *testing.T) {
	svc, err := NewStorefrontService(StorefrontServiceDeps{
		Products: &stubProductRepository{products: storefrontFixture()},
		Clock:    func() time.Time { return time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	counts, err := svc.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(counts) != 3 {
		t.Fatalf("expected 3 canonical categories, got %d (%#v)", len(counts), counts)
	}
	// Mathematics and Matematică variants fold into one family with the
	// highest count, so it sorts first.
	if counts[0].Slug != "mathematics" || counts[0].Count != 2 {
		t.Fatalf("expected mathematics x2 first, got %#v", counts[0])
	}
	for _, c := range counts[1:] {
		if c.Count != 1 {
			t.Fatalf("expected singleton counts after mathematics, got %#v", c)
		}
	}
}
