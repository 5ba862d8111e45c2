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

	"github.com/brightsprout/storefront-api/internal/filter"
	"github.com/brightsprout/storefront-api/internal/services"
)

type stubSessionService struct {
	createFn func(ctx context.Context, query url.Values) (services.FilterSessionSnapshot, error)
	getFn    func(ctx context.Context, sessionID string) (services.FilterSessionSnapshot, error)
	applyFn  func(ctx context.Context, sessionID string, actions []filter.Action) (services.FilterSessionSnapshot, error)
	deleteFn func(ctx context.Context, sessionID string) error
}

func (s *stubSessionService) CreateSession(ctx context.Context, query url.Values) (services.FilterSessionSnapshot, error) {
	if s.createFn == nil {
		return services.FilterSessionSnapshot{}, services.ErrSessionInvalidInput
	}
	return s.createFn(ctx, query)
}

func (s *stubSessionService) GetSession(ctx context.Context, sessionID string) (services.FilterSessionSnapshot, error) {
	if s.getFn == nil {
		return services.FilterSessionSnapshot{}, services.ErrSessionNotFound
	}
	return s.getFn(ctx, sessionID)
}

func (s *stubSessionService) ApplyActions(ctx context.Context, sessionID string, actions []filter.Action) (services.FilterSessionSnapshot, error) {
	if s.applyFn == nil {
		return services.FilterSessionSnapshot{}, services.ErrSessionNotFound
	}
	return s.applyFn(ctx, sessionID, actions)
}

func (s *stubSessionService) DeleteSession(ctx context.Context, sessionID string) error {
	if s.deleteFn == nil {
		return services.ErrSessionNotFound
	}
	return s.deleteFn(ctx, sessionID)
}

func (s *stubSessionService) CleanupExpired(context.Context, time.Time, int) (int, error) {
	return 0, nil
}

func (s *stubSessionService) Count() int { return 0 }

func newSessionTestRouter(svc services.FilterSessionService, opts ...SessionOption) http.Handler {
	handlers := NewSessionHandlers(append([]SessionOption{WithSessionService(svc)}, opts...)...)
	r := chi.NewRouter()
	r.Route("/filter-sessions", handlers.Routes)
	return r
}

func sampleSnapshot(id string) services.FilterSessionSnapshot {
	created := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	state := filter.NewState()
	state.SelectedCategories = []string{"mathematics"}
	return services.FilterSessionSnapshot{
		ID:        id,
		State:     state,
		Query:     url.Values{"category": []string{"mathematics"}},
		CreatedAt: created,
		UpdatedAt: created,
		ExpiresAt: created.Add(30 * time.Minute),
	}
}

func TestSessionHandlers_CreateSession(t *testing.T) {
	var gotQuery url.Values
	svc := &stubSessionService{
		createFn: func(_ context.Context, query url.Values) (services.FilterSessionSnapshot, error) {
			gotQuery = query
			return sampleSnapshot("fs_01"), nil
		},
	}
	router := newSessionTestRouter(svc)

	body := strings.NewReader(`{"query":"category=math&minPrice=10&maxPrice=50&noPriceFilter=false"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/filter-sessions", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if got := gotQuery.Get("category"); got != "math" {
		t.Fatalf("category = %q, want %q", got, "math")
	}
	if got := gotQuery.Get("noPriceFilter"); got != "false" {
		t.Fatalf("noPriceFilter = %q, want %q", got, "false")
	}

	var payload sessionPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.ID != "fs_01" {
		t.Fatalf("id = %q, want %q", payload.ID, "fs_01")
	}
	if payload.Query != "category=mathematics" {
		t.Fatalf("query = %q, want %q", payload.Query, "category=mathematics")
	}
	if len(payload.State.SelectedCategories) != 1 || payload.State.SelectedCategories[0] != "mathematics" {
		t.Fatalf("selectedCategories = %v", payload.State.SelectedCategories)
	}
}

func TestSessionHandlers_CreateSessionEmptyBody(t *testing.T) {
	svc := &stubSessionService{
		createFn: func(_ context.Context, query url.Values) (services.FilterSessionSnapshot, error) {
			if len(query) != 0 {
				t.Fatalf("query = %v, want empty", query)
			}
			return sampleSnapshot("fs_02"), nil
		},
	}
	router := newSessionTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/filter-sessions", nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
}

func TestSessionHandlers_CreateSessionMalformedBody(t *testing.T) {
	router := newSessionTestRouter(&stubSessionService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/filter-sessions", strings.NewReader("{not json")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSessionHandlers_CreateSessionRateLimited(t *testing.T) {
	svc := &stubSessionService{
		createFn: func(context.Context, url.Values) (services.FilterSessionSnapshot, error) {
			return sampleSnapshot("fs_03"), nil
		},
	}
	now := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	router := newSessionTestRouter(svc, WithSessionCreateLimit(2, func() time.Time { return now }))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/filter-sessions", nil)
		req.RemoteAddr = "203.0.113.7:4120"
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("request %d: status = %d, want %d", i, rec.Code, http.StatusCreated)
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/filter-sessions", nil)
	req.RemoteAddr = "203.0.113.7:9944"
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}

	// A different client keeps its own budget.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/filter-sessions", nil)
	req.RemoteAddr = "198.51.100.9:1000"
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("other client status = %d, want %d", rec.Code, http.StatusCreated)
	}
}

func TestSessionHandlers_GetSession(t *testing.T) {
	svc := &stubSessionService{
		getFn: func(_ context.Context, sessionID string) (services.FilterSessionSnapshot, error) {
			if sessionID != "fs_04" {
				return services.FilterSessionSnapshot{}, services.ErrSessionNotFound
			}
			return sampleSnapshot(sessionID), nil
		},
	}
	router := newSessionTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/filter-sessions/fs_04", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/filter-sessions/fs_missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing session status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestSessionHandlers_ApplyActions(t *testing.T) {
	var gotActions []filter.Action
	svc := &stubSessionService{
		applyFn: func(_ context.Context, sessionID string, actions []filter.Action) (services.FilterSessionSnapshot, error) {
			gotActions = actions
			return sampleSnapshot(sessionID), nil
		},
	}
	router := newSessionTestRouter(svc)

	body := strings.NewReader(`{"actions":[
		{"type":"toggleCategory","category":"math"},
		{"type":"setPriceRange","min":10,"max":50},
		{"type":"setNoPriceFilter","disabled":false},
		{"type":"setFilter","group":"ageGroup","option":"6-8"},
		{"type":"setSortBy","sort":"price-low"},
		{"type":"clearFilters"}
	]}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/filter-sessions/fs_05/actions", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if len(gotActions) != 6 {
		t.Fatalf("decoded %d actions, want 6", len(gotActions))
	}
	if toggle, ok := gotActions[0].(filter.ToggleCategory); !ok || toggle.Category != "math" {
		t.Fatalf("action 0 = %#v, want ToggleCategory{math}", gotActions[0])
	}
	priceRange, ok := gotActions[1].(filter.SetPriceRange)
	if !ok || priceRange.Range.Min != 10 || priceRange.Range.Max != 50 {
		t.Fatalf("action 1 = %#v, want SetPriceRange{10,50}", gotActions[1])
	}
	if noPrice, ok := gotActions[2].(filter.SetNoPriceFilter); !ok || noPrice.Disabled {
		t.Fatalf("action 2 = %#v, want SetNoPriceFilter{false}", gotActions[2])
	}
	if _, ok := gotActions[5].(filter.ClearFilters); !ok {
		t.Fatalf("action 5 = %#v, want ClearFilters", gotActions[5])
	}
}

func TestSessionHandlers_ApplyActionsRejectsBadInput(t *testing.T) {
	router := newSessionTestRouter(&stubSessionService{
		applyFn: func(_ context.Context, sessionID string, _ []filter.Action) (services.FilterSessionSnapshot, error) {
			return sampleSnapshot(sessionID), nil
		},
	})

	cases := []struct {
		name string
		body string
	}{
		{name: "empty batch", body: `{"actions":[]}`},
		{name: "unknown type", body: `{"actions":[{"type":"teleport"}]}`},
		{name: "missing type", body: `{"actions":[{"category":"math"}]}`},
		{name: "toggle without category", body: `{"actions":[{"type":"toggleCategory"}]}`},
		{name: "price range without bounds", body: `{"actions":[{"type":"setPriceRange","min":10}]}`},
		{name: "bad view mode", body: `{"actions":[{"type":"setViewMode","mode":"carousel"}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/filter-sessions/fs_06/actions", strings.NewReader(tc.body)))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusBadRequest, rec.Body.String())
			}
		})
	}
}

func TestSessionHandlers_DeleteSession(t *testing.T) {
	deleted := ""
	svc := &stubSessionService{
		deleteFn: func(_ context.Context, sessionID string) error {
			if sessionID == "fs_missing" {
				return services.ErrSessionNotFound
			}
			deleted = sessionID
			return nil
		},
	}
	router := newSessionTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/filter-sessions/fs_07", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if deleted != "fs_07" {
		t.Fatalf("deleted = %q, want %q", deleted, "fs_07")
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/filter-sessions/fs_missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing session status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
