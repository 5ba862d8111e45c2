package handlers

import (
	"net/http"
	"time"

	"github.com/brightsprout/storefront-api/internal/domain"
	"github.com/brightsprout/storefront-api/internal/platform/httpx"
	"github.com/brightsprout/storefront-api/internal/services"
)

// HealthHandlers serves the liveness and readiness endpoints.
type HealthHandlers struct {
	system    services.SystemService
	clock     func() time.Time
	startedAt time.Time
	version   string
}

// HealthHandlerOption customises construction of HealthHandlers.
type HealthHandlerOption func(*HealthHandlers)

// WithHealthSystemService injects the system service used for readiness checks.
func WithHealthSystemService(svc services.SystemService) HealthHandlerOption {
	return func(h *HealthHandlers) {
		h.system = svc
	}
}

// WithHealthClock injects a custom clock, primarily for tests.
func WithHealthClock(clock func() time.Time) HealthHandlerOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// WithHealthVersion reports the build version in health payloads.
func WithHealthVersion(version string) HealthHandlerOption {
	return func(h *HealthHandlers) {
		h.version = version
	}
}

// NewHealthHandlers constructs handlers for /healthz and /readyz.
func NewHealthHandlers(opts ...HealthHandlerOption) *HealthHandlers {
	h := &HealthHandlers{
		clock:     time.Now,
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

type healthPayload struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version,omitempty"`
}

// Healthz reports process liveness. It never consults dependencies.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, _ *http.Request) {
	now := h.clock()
	writeJSON(w, http.StatusOK, healthPayload{
		Status:    domain.HealthStatusOK,
		Uptime:    now.Sub(h.startedAt).String(),
		Timestamp: now.UTC().Format(time.RFC3339),
		Version:   h.version,
	})
}

type readyPayload struct {
	Status      string                  `json:"status"`
	Checks      map[string]checkPayload `json:"checks,omitempty"`
	GeneratedAt string                  `json:"generated_at"`
}

type checkPayload struct {
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// Readyz evaluates dependency probes and reports 503 while any critical
// dependency is failing.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.system == nil {
		writeJSON(w, http.StatusOK, readyPayload{
			Status:      domain.HealthStatusOK,
			GeneratedAt: h.clock().UTC().Format(time.RFC3339),
		})
		return
	}

	report, err := h.system.Health(r.Context())
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("health_check_failed", "unable to evaluate dependencies", http.StatusServiceUnavailable))
		return
	}

	checks := make(map[string]checkPayload, len(report.Checks))
	for name, check := range report.Checks {
		checks[name] = checkPayload{
			Status:    check.Status,
			Detail:    check.Detail,
			LatencyMS: check.Latency.Milliseconds(),
		}
	}

	status := http.StatusOK
	if report.Status == domain.HealthStatusError {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, readyPayload{
		Status:      report.Status,
		Checks:      checks,
		GeneratedAt: report.GeneratedAt.UTC().Format(time.RFC3339),
	})
}
