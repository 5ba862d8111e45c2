package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/brightsprout/storefront-api/internal/domain"
	"github.com/brightsprout/storefront-api/internal/languages"
	"github.com/brightsprout/storefront-api/internal/platform/httpx"
	"github.com/brightsprout/storefront-api/internal/platform/requestctx"
)

const languagesCacheControl = "public, max-age=60"

// LanguageProvider answers language availability lookups for book slugs.
type LanguageProvider interface {
	Languages(ctx context.Context, slug string) ([]domain.Language, error)
}

// BookHandlers exposes book-scoped endpoints.
type BookHandlers struct {
	languages LanguageProvider
}

// BookOption customises construction of BookHandlers.
type BookOption func(*BookHandlers)

// WithBookLanguageProvider injects the language availability dependency.
func WithBookLanguageProvider(provider LanguageProvider) BookOption {
	return func(h *BookHandlers) {
		h.languages = provider
	}
}

// NewBookHandlers constructs handlers for book endpoints.
func NewBookHandlers(opts ...BookOption) *BookHandlers {
	handler := &BookHandlers{}
	for _, opt := range opts {
		if opt != nil {
			opt(handler)
		}
	}
	return handler
}

// Routes registers book endpoints against the provided router.
func (h *BookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/{slug}/languages", h.getLanguages)
}

type languageListResponse struct {
	AvailableLanguages []languagePayload `json:"availableLanguages"`
}

type languagePayload struct {
	Code    string   `json:"code"`
	Name    string   `json:"name,omitempty"`
	Formats []string `json:"formats,omitempty"`
}

// getLanguages returns the available language editions for a book. Upstream
// failures degrade to an empty list so a product page still renders.
func (h *BookHandlers) getLanguages(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSpace(chi.URLParam(r, "slug"))
	if slug == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_slug", "book slug is required", http.StatusBadRequest))
		return
	}

	var langs []domain.Language
	if h.languages != nil {
		var err error
		langs, err = h.languages.Languages(r.Context(), slug)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			// Client went away mid-fetch; nothing to write.
			return
		default:
			requestctx.Logger(r.Context()).Warn("language availability lookup failed",
				zap.String("slug", slug),
				zap.Error(err))
			langs = nil
		}
	}

	items := make([]languagePayload, 0, len(langs))
	for _, lang := range langs {
		items = append(items, languagePayload{
			Code:    lang.Code,
			Name:    lang.Name,
			Formats: copyStringSlice(lang.Formats),
		})
	}

	w.Header().Set("Cache-Control", languagesCacheControl)
	writeJSON(w, http.StatusOK, languageListResponse{AvailableLanguages: items})
}

var _ LanguageProvider = (*languages.Cache)(nil)
