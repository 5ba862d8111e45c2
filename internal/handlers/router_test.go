package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestNewRouter_HealthzAlwaysMounted(t *testing.T) {
	router := NewRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestNewRouter_UnconfiguredGroupsReturnNotImplemented(t *testing.T) {
	router := NewRouter()

	for _, path := range []string{
		"/api/v1/storefront/products",
		"/api/v1/books/some-book/languages",
		"/api/v1/filter-sessions",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotImplemented {
			t.Fatalf("%s status = %d, want %d", path, rec.Code, http.StatusNotImplemented)
		}
	}
}

func TestNewRouter_MountsRegistrars(t *testing.T) {
	router := NewRouter(
		WithStorefrontRoutes(func(r chi.Router) {
			r.Get("/products", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
		}),
		WithSessionRoutes(func(r chi.Router) {
			r.Post("/", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusCreated)
			})
		}),
	)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/storefront/products", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("storefront status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/filter-sessions", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("sessions status = %d, want %d", rec.Code, http.StatusCreated)
	}
}

func TestNewRouter_NotFoundEnvelope(t *testing.T) {
	router := NewRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q, want application/json", ct)
	}
}

func TestNewRouter_SessionMiddlewareApplies(t *testing.T) {
	marker := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Session-Scope", "1")
			next.ServeHTTP(w, r)
		})
	}
	router := NewRouter(
		WithSessionMiddlewares(marker),
		WithSessionRoutes(func(r chi.Router) {
			r.Get("/{sessionID}", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
		}),
		WithStorefrontRoutes(func(r chi.Router) {
			r.Get("/products", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
		}),
	)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/filter-sessions/fs_01", nil))
	if rec.Header().Get("X-Session-Scope") != "1" {
		t.Fatal("session middleware did not run on the filter-sessions group")
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/storefront/products", nil))
	if rec.Header().Get("X-Session-Scope") != "" {
		t.Fatal("session middleware leaked onto the storefront group")
	}
}
