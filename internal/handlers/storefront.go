package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"

	"github.com/brightsprout/storefront-api/internal/domain"
	"github.com/brightsprout/storefront-api/internal/filter"
	"github.com/brightsprout/storefront-api/internal/platform/httpx"
	"github.com/brightsprout/storefront-api/internal/platform/metrics"
	"github.com/brightsprout/storefront-api/internal/services"
)

const productCacheControl = "public, max-age=60"

// descriptionHTMLPolicy keeps harmless formatting in product descriptions
// while stripping scripts and event handlers.
var descriptionHTMLPolicy = bluemonday.UGCPolicy()

// StorefrontHandlers exposes the public product listing endpoints.
type StorefrontHandlers struct {
	storefront services.StorefrontService
	metrics    *metrics.Metrics
}

// StorefrontOption customises construction of StorefrontHandlers.
type StorefrontOption func(*StorefrontHandlers)

// WithStorefrontService injects the storefront service dependency.
func WithStorefrontService(svc services.StorefrontService) StorefrontOption {
	return func(h *StorefrontHandlers) {
		h.storefront = svc
	}
}

// WithStorefrontMetrics injects the metric set used to observe filtering.
func WithStorefrontMetrics(m *metrics.Metrics) StorefrontOption {
	return func(h *StorefrontHandlers) {
		h.metrics = m
	}
}

// NewStorefrontHandlers constructs handlers for storefront endpoints.
func NewStorefrontHandlers(opts ...StorefrontOption) *StorefrontHandlers {
	handler := &StorefrontHandlers{}
	for _, opt := range opts {
		if opt != nil {
			opt(handler)
		}
	}
	return handler
}

// Routes registers storefront endpoints against the provided router.
func (h *StorefrontHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products", h.listProducts)
	r.Get("/products/{productID}", h.getProduct)
	r.Get("/categories", h.listCategories)
}

func (h *StorefrontHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	if h.storefront == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("storefront_unavailable", "storefront service is unavailable", http.StatusServiceUnavailable))
		return
	}

	// Unknown parameters and malformed values are ignored rather than
	// rejected, so stale or hand-edited URLs still render a listing.
	state := filter.Reduce(filter.NewState(), filter.InitFromURL{Patch: filter.ParseQuery(r.URL.Query())})

	listing, err := h.storefront.ListProducts(r.Context(), services.ProductQuery{State: state})
	if err != nil {
		writeStorefrontError(r.Context(), w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveFilterPass(listing.Total)
	}

	items := make([]productPayload, 0, len(listing.Products))
	for _, product := range listing.Products {
		items = append(items, newProductPayload(product))
	}

	w.Header().Set("Cache-Control", productCacheControl)
	writeJSON(w, http.StatusOK, productListResponse{
		Products: items,
		Total:    listing.Total,
		Query:    listing.Query.Encode(),
	})
}

func (h *StorefrontHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	if h.storefront == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("storefront_unavailable", "storefront service is unavailable", http.StatusServiceUnavailable))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_product_id", "product id is required", http.StatusBadRequest))
		return
	}

	product, err := h.storefront.GetProduct(r.Context(), productID)
	if err != nil {
		writeStorefrontError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProductPayload(product))
}

func (h *StorefrontHandlers) listCategories(w http.ResponseWriter, r *http.Request) {
	if h.storefront == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("storefront_unavailable", "storefront service is unavailable", http.StatusServiceUnavailable))
		return
	}

	counts, err := h.storefront.ListCategories(r.Context())
	if err != nil {
		writeStorefrontError(r.Context(), w, err)
		return
	}

	items := make([]categoryPayload, 0, len(counts))
	for _, count := range counts {
		items = append(items, categoryPayload{
			Slug:  count.Slug,
			Name:  count.Name,
			Count: count.Count,
		})
	}
	writeJSON(w, http.StatusOK, categoryListResponse{Categories: items})
}

func writeStorefrontError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrStorefrontProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrStorefrontInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid request", http.StatusBadRequest))
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
	case errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(ctx, w, httpx.NewError("request_timeout", "request timed out", http.StatusGatewayTimeout))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("storefront_unavailable", "storefront service is unavailable", http.StatusServiceUnavailable))
	}
}

type productListResponse struct {
	Products []productPayload `json:"products"`
	Total    int              `json:"total"`
	Query    string           `json:"query,omitempty"`
}

type categoryListResponse struct {
	Categories []categoryPayload `json:"categories"`
}

type categoryPayload struct {
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type productPayload struct {
	ID                string   `json:"id"`
	Slug              string   `json:"slug,omitempty"`
	Name              string   `json:"name"`
	Description       string   `json:"description,omitempty"`
	Category          string   `json:"category,omitempty"`
	CategorySlug      string   `json:"category_slug,omitempty"`
	AgeGroup          string   `json:"age_group,omitempty"`
	ProductType       string   `json:"product_type,omitempty"`
	LearningOutcomes  []string `json:"learning_outcomes,omitempty"`
	SpecialCategories []string `json:"special_categories,omitempty"`
	Price             string   `json:"price"`
	CompareAtPrice    string   `json:"compare_at_price,omitempty"`
	Currency          string   `json:"currency,omitempty"`
	ImageURLs         []string `json:"image_urls,omitempty"`
	Featured          bool     `json:"featured,omitempty"`
	OnSale            bool     `json:"on_sale,omitempty"`
	Rating            float64  `json:"rating,omitempty"`
	CreatedAt         string   `json:"created_at,omitempty"`
}

func newProductPayload(product domain.Product) productPayload {
	return productPayload{
		ID:                product.ID,
		Slug:              product.Slug,
		Name:              product.Name,
		Description:       descriptionHTMLPolicy.Sanitize(product.Description),
		Category:          product.Category.Name,
		CategorySlug:      filter.Normalize(product.Category.Name),
		AgeGroup:          product.AgeGroup,
		ProductType:       product.ProductType,
		LearningOutcomes:  copyStringSlice(product.LearningOutcomes),
		SpecialCategories: copyStringSlice(product.SpecialCategories),
		Price:             product.Price,
		CompareAtPrice:    product.CompareAtPrice,
		Currency:          product.Currency,
		ImageURLs:         copyStringSlice(product.ImageURLs),
		Featured:          product.Featured,
		OnSale:            product.OnSale(),
		Rating:            product.Rating,
		CreatedAt:         formatTimestamp(product.CreatedAt),
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}

func copyStringSlice(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
