package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brightsprout/storefront-api/internal/domain"
	"github.com/brightsprout/storefront-api/internal/services"
)

type stubStorefrontService struct {
	listFn       func(ctx context.Context, query services.ProductQuery) (services.ProductListing, error)
	getFn        func(ctx context.Context, productID string) (domain.Product, error)
	categoriesFn func(ctx context.Context) ([]domain.CategoryCount, error)
}

func (s *stubStorefrontService) ListProducts(ctx context.Context, query services.ProductQuery) (services.ProductListing, error) {
	if s.listFn == nil {
		return services.ProductListing{}, services.ErrStorefrontUnavailable
	}
	return s.listFn(ctx, query)
}

func (s *stubStorefrontService) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	if s.getFn == nil {
		return domain.Product{}, services.ErrStorefrontProductNotFound
	}
	return s.getFn(ctx, productID)
}

func (s *stubStorefrontService) ListCategories(ctx context.Context) ([]domain.CategoryCount, error) {
	if s.categoriesFn == nil {
		return nil, services.ErrStorefrontUnavailable
	}
	return s.categoriesFn(ctx)
}

func newStorefrontTestRouter(svc services.StorefrontService) http.Handler {
	handlers := NewStorefrontHandlers(WithStorefrontService(svc))
	r := chi.NewRouter()
	r.Route("/storefront", handlers.Routes)
	return r
}

func TestStorefrontHandlers_ListProductsParsesQuery(t *testing.T) {
	var gotQuery services.ProductQuery
	svc := &stubStorefrontService{
		listFn: func(_ context.Context, query services.ProductQuery) (services.ProductListing, error) {
			gotQuery = query
			return services.ProductListing{
				Products: []domain.Product{{ID: "p1", Name: "Atlas", Price: "49.90"}},
				Total:    1,
				Query:    url.Values{"category": []string{"mathematics"}},
			}, nil
		},
	}
	router := newStorefrontTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/storefront/products?category=math,carti&minPrice=10&maxPrice=20&noPriceFilter=false&sort=price-low", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	state := gotQuery.State
	if len(state.SelectedCategories) != 2 {
		t.Fatalf("selected categories = %v, want 2 canonical slugs", state.SelectedCategories)
	}
	if state.SelectedCategories[0] != "mathematics" || state.SelectedCategories[1] != "educational-books" {
		t.Fatalf("selected categories = %v", state.SelectedCategories)
	}
	if state.NoPriceFilter {
		t.Fatal("noPriceFilter should be false when the query disables it")
	}
	if state.PriceRange.Min != 10 || state.PriceRange.Max != 20 {
		t.Fatalf("price range = %+v, want [10,20]", state.PriceRange)
	}
	if state.SortBy != domain.SortPriceLow {
		t.Fatalf("sortBy = %q, want %q", state.SortBy, domain.SortPriceLow)
	}

	if got := rec.Header().Get("Cache-Control"); got != productCacheControl {
		t.Fatalf("Cache-Control = %q, want %q", got, productCacheControl)
	}

	var payload productListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Total != 1 || len(payload.Products) != 1 {
		t.Fatalf("payload = %+v, want one product", payload)
	}
	if payload.Query != "category=mathematics" {
		t.Fatalf("query = %q, want %q", payload.Query, "category=mathematics")
	}
}

func TestStorefrontHandlers_ListProductsIgnoresGarbageParams(t *testing.T) {
	svc := &stubStorefrontService{
		listFn: func(_ context.Context, query services.ProductQuery) (services.ProductListing, error) {
			state := query.State
			if !state.NoPriceFilter {
				t.Fatalf("malformed price params should leave the default state, got %+v", state)
			}
			if state.PriceRange.Min != 0 || state.PriceRange.Max != 1000 {
				t.Fatalf("price range = %+v, want defaults", state.PriceRange)
			}
			return services.ProductListing{Query: url.Values{}}, nil
		},
	}
	router := newStorefrontTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/storefront/products?minPrice=banana&maxPrice=20&unknown=1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestStorefrontHandlers_GetProduct(t *testing.T) {
	created := time.Date(2026, time.January, 15, 9, 30, 0, 0, time.UTC)
	svc := &stubStorefrontService{
		getFn: func(_ context.Context, productID string) (domain.Product, error) {
			if productID != "p42" {
				return domain.Product{}, services.ErrStorefrontProductNotFound
			}
			return domain.Product{
				ID:             "p42",
				Name:           "Stele și planete",
				Description:    `<p>O carte</p><script>alert("x")</script>`,
				Category:       domain.CategoryRef{Name: "Matematică"},
				Price:          "59.90",
				CompareAtPrice: "79.90",
				CreatedAt:      created,
			}, nil
		},
	}
	router := newStorefrontTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/storefront/products/p42", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	var payload productPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if strings.Contains(payload.Description, "<script>") {
		t.Fatalf("description was not sanitized: %q", payload.Description)
	}
	if !strings.Contains(payload.Description, "<p>O carte</p>") {
		t.Fatalf("sanitizer stripped harmless markup: %q", payload.Description)
	}
	if payload.CategorySlug != "mathematics" {
		t.Fatalf("category_slug = %q, want %q", payload.CategorySlug, "mathematics")
	}
	if !payload.OnSale {
		t.Fatal("compare-at above price should mark the product on sale")
	}
	if payload.CreatedAt != "2026-01-15T09:30:00Z" {
		t.Fatalf("created_at = %q", payload.CreatedAt)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/storefront/products/p999", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing product status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestStorefrontHandlers_ListCategories(t *testing.T) {
	svc := &stubStorefrontService{
		categoriesFn: func(context.Context) ([]domain.CategoryCount, error) {
			return []domain.CategoryCount{
				{Slug: "mathematics", Name: "Matematică", Count: 12},
				{Slug: "engineering", Name: "Inginerie", Count: 4},
			}, nil
		},
	}
	router := newStorefrontTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/storefront/categories", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var payload categoryListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Categories) != 2 || payload.Categories[0].Slug != "mathematics" {
		t.Fatalf("categories = %+v", payload.Categories)
	}
}

func TestStorefrontHandlers_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "unavailable", err: services.ErrStorefrontUnavailable, wantStatus: http.StatusServiceUnavailable},
		{name: "invalid input", err: services.ErrStorefrontInvalidInput, wantStatus: http.StatusBadRequest},
		{name: "deadline", err: context.DeadlineExceeded, wantStatus: http.StatusGatewayTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubStorefrontService{
				listFn: func(context.Context, services.ProductQuery) (services.ProductListing, error) {
					return services.ProductListing{}, tc.err
				},
			}
			router := newStorefrontTestRouter(svc)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/storefront/products", nil))
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
		})
	}
}
