package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brightsprout/storefront-api/internal/domain"
	"github.com/brightsprout/storefront-api/internal/filter"
	"github.com/brightsprout/storefront-api/internal/platform/httpx"
	"github.com/brightsprout/storefront-api/internal/services"
)

const maxSessionActionBatch = 50

// SessionHandlers exposes server-side filter session endpoints.
type SessionHandlers struct {
	sessions    services.FilterSessionService
	rateLimiter rateLimiter
}

// SessionOption customises construction of SessionHandlers.
type SessionOption func(*SessionHandlers)

// WithSessionService injects the filter session service dependency.
func WithSessionService(svc services.FilterSessionService) SessionOption {
	return func(h *SessionHandlers) {
		h.sessions = svc
	}
}

// WithSessionCreateLimit throttles session creation per client IP.
func WithSessionCreateLimit(perMinute int, clock func() time.Time) SessionOption {
	return func(h *SessionHandlers) {
		h.rateLimiter = newSimpleRateLimiter(perMinute, time.Minute, clock)
	}
}

// NewSessionHandlers constructs handlers for filter session endpoints.
func NewSessionHandlers(opts ...SessionOption) *SessionHandlers {
	handler := &SessionHandlers{}
	for _, opt := range opts {
		if opt != nil {
			opt(handler)
		}
	}
	return handler
}

// Routes registers filter session endpoints against the provided router.
func (h *SessionHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createSession)
	r.Get("/{sessionID}", h.getSession)
	r.Post("/{sessionID}/actions", h.applyActions)
	r.Delete("/{sessionID}", h.deleteSession)
}

type createSessionRequest struct {
	// Query is the raw query string the client hydrates from, e.g.
	// "category=math&minPrice=10".
	Query string `json:"query"`
}

func (h *SessionHandlers) createSession(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("sessions_unavailable", "session service is unavailable", http.StatusServiceUnavailable))
		return
	}
	if h.rateLimiter != nil && !h.rateLimiter.Allow(r.RemoteAddr) {
		httpx.WriteError(r.Context(), w, httpx.NewError("rate_limited", "too many session creations", http.StatusTooManyRequests))
		return
	}

	var req createSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "malformed request body", http.StatusBadRequest))
			return
		}
	}

	values, err := url.ParseQuery(strings.TrimPrefix(req.Query, "?"))
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_query", "malformed query string", http.StatusBadRequest))
		return
	}

	snapshot, err := h.sessions.CreateSession(r.Context(), values)
	if err != nil {
		writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionPayload(snapshot))
}

func (h *SessionHandlers) getSession(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("sessions_unavailable", "session service is unavailable", http.StatusServiceUnavailable))
		return
	}

	snapshot, err := h.sessions.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionPayload(snapshot))
}

type applyActionsRequest struct {
	Actions []json.RawMessage `json:"actions"`
}

func (h *SessionHandlers) applyActions(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("sessions_unavailable", "session service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req applyActionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "malformed request body", http.StatusBadRequest))
		return
	}
	if len(req.Actions) == 0 {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "at least one action is required", http.StatusBadRequest))
		return
	}
	if len(req.Actions) > maxSessionActionBatch {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", fmt.Sprintf("at most %d actions per batch", maxSessionActionBatch), http.StatusBadRequest))
		return
	}

	actions := make([]filter.Action, 0, len(req.Actions))
	for i, raw := range req.Actions {
		action, err := decodeAction(raw)
		if err != nil {
			httpx.WriteError(r.Context(), w, httpx.NewError("invalid_action", fmt.Sprintf("action %d: %v", i, err), http.StatusBadRequest))
			return
		}
		actions = append(actions, action)
	}

	snapshot, err := h.sessions.ApplyActions(r.Context(), chi.URLParam(r, "sessionID"), actions)
	if err != nil {
		writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionPayload(snapshot))
}

func (h *SessionHandlers) deleteSession(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("sessions_unavailable", "session service is unavailable", http.StatusServiceUnavailable))
		return
	}

	if err := h.sessions.DeleteSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		writeSessionError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		httpx.WriteError(r.Context(), w, httpx.NewError("session_not_found", "session not found", http.StatusNotFound))
	case errors.Is(err, services.ErrSessionInvalidInput):
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "invalid request", http.StatusBadRequest))
	default:
		httpx.WriteError(r.Context(), w, httpx.NewError("sessions_unavailable", "session service is unavailable", http.StatusServiceUnavailable))
	}
}

type actionEnvelope struct {
	Type string `json:"type"`

	Categories  []string `json:"categories"`
	Category    string   `json:"category"`
	Group       string   `json:"group"`
	Option      string   `json:"option"`
	Min         *float64 `json:"min"`
	Max         *float64 `json:"max"`
	Disabled    *bool    `json:"disabled"`
	Outcomes    []string `json:"outcomes"`
	ProductType string   `json:"productType"`
	Query       string   `json:"query"`
	Sort        string   `json:"sort"`
	Mode        string   `json:"mode"`
	Open        *bool    `json:"open"`
}

func decodeAction(raw json.RawMessage) (filter.Action, error) {
	var envelope actionEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("malformed action: %w", err)
	}

	switch envelope.Type {
	case "setCategories":
		return filter.SetCategories{Categories: envelope.Categories}, nil
	case "toggleCategory":
		if envelope.Category == "" {
			return nil, errors.New("toggleCategory requires category")
		}
		return filter.ToggleCategory{Category: envelope.Category}, nil
	case "setFilter":
		if envelope.Group == "" || envelope.Option == "" {
			return nil, errors.New("setFilter requires group and option")
		}
		return filter.SetFilter{Group: envelope.Group, Option: envelope.Option}, nil
	case "setPriceRange":
		if envelope.Min == nil || envelope.Max == nil {
			return nil, errors.New("setPriceRange requires min and max")
		}
		return filter.SetPriceRange{Range: filter.PriceRange{Min: *envelope.Min, Max: *envelope.Max}}, nil
	case "setNoPriceFilter":
		if envelope.Disabled == nil {
			return nil, errors.New("setNoPriceFilter requires disabled")
		}
		return filter.SetNoPriceFilter{Disabled: *envelope.Disabled}, nil
	case "setLearningOutcomes":
		return filter.SetLearningOutcomes{Outcomes: envelope.Outcomes}, nil
	case "setProductType":
		return filter.SetProductType{ProductType: envelope.ProductType}, nil
	case "setSpecialCategories":
		return filter.SetSpecialCategories{Categories: envelope.Categories}, nil
	case "setSearchQuery":
		return filter.SetSearchQuery{Query: envelope.Query}, nil
	case "setSortBy":
		return filter.SetSortBy{Sort: domain.SortKey(envelope.Sort)}, nil
	case "setViewMode":
		mode := domain.ViewMode(envelope.Mode)
		if mode != domain.ViewModeGrid && mode != domain.ViewModeList {
			return nil, fmt.Errorf("unknown view mode %q", envelope.Mode)
		}
		return filter.SetViewMode{Mode: mode}, nil
	case "setMobileFiltersOpen":
		if envelope.Open == nil {
			return nil, errors.New("setMobileFiltersOpen requires open")
		}
		return filter.SetMobileFiltersOpen{Open: *envelope.Open}, nil
	case "clearFilters":
		return filter.ClearFilters{}, nil
	case "":
		return nil, errors.New("action type is required")
	default:
		return nil, fmt.Errorf("unknown action type %q", envelope.Type)
	}
}

type sessionPayload struct {
	ID        string       `json:"id"`
	State     statePayload `json:"state"`
	Query     string       `json:"query"`
	CreatedAt string       `json:"created_at"`
	UpdatedAt string       `json:"updated_at"`
	ExpiresAt string       `json:"expires_at"`
}

type statePayload struct {
	SelectedCategories []string            `json:"selectedCategories"`
	SelectedFilters    map[string][]string `json:"selectedFilters,omitempty"`
	PriceRange         priceRangePayload   `json:"priceRange"`
	NoPriceFilter      bool                `json:"noPriceFilter"`
	LearningOutcomes   []string            `json:"learningOutcomes,omitempty"`
	ProductType        string              `json:"productType,omitempty"`
	SpecialCategories  []string            `json:"specialCategories,omitempty"`
	SearchQuery        string              `json:"searchQuery,omitempty"`
	SortBy             string              `json:"sortBy"`
	ViewMode           string              `json:"viewMode"`
	MobileFiltersOpen  bool                `json:"mobileFiltersOpen"`
}

type priceRangePayload struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func newSessionPayload(snapshot services.FilterSessionSnapshot) sessionPayload {
	state := snapshot.State
	return sessionPayload{
		ID: snapshot.ID,
		State: statePayload{
			SelectedCategories: emptyIfNil(state.SelectedCategories),
			SelectedFilters:    state.SelectedFilters,
			PriceRange:         priceRangePayload{Min: state.PriceRange.Min, Max: state.PriceRange.Max},
			NoPriceFilter:      state.NoPriceFilter,
			LearningOutcomes:   state.LearningOutcomes,
			ProductType:        state.ProductType,
			SpecialCategories:  state.SpecialCategories,
			SearchQuery:        state.SearchQuery,
			SortBy:             string(state.SortBy),
			ViewMode:           string(state.ViewMode),
			MobileFiltersOpen:  state.MobileFiltersOpen,
		},
		Query:     snapshot.Query.Encode(),
		CreatedAt: formatTimestamp(snapshot.CreatedAt),
		UpdatedAt: formatTimestamp(snapshot.UpdatedAt),
		ExpiresAt: formatTimestamp(snapshot.ExpiresAt),
	}
}

func emptyIfNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
