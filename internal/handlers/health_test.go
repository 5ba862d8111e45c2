package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brightsprout/storefront-api/internal/domain"
)

type stubSystemService struct {
	report domain.HealthReport
	err    error
}

func (s *stubSystemService) Health(context.Context) (domain.HealthReport, error) {
	return s.report, s.err
}

func TestHealthHandlers_Healthz(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	handlers := NewHealthHandlers(
		WithHealthClock(func() time.Time { return now }),
		WithHealthVersion("1.4.0"),
	)

	rec := httptest.NewRecorder()
	handlers.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var payload healthPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Status != domain.HealthStatusOK {
		t.Fatalf("status = %q, want %q", payload.Status, domain.HealthStatusOK)
	}
	if payload.Version != "1.4.0" {
		t.Fatalf("version = %q, want %q", payload.Version, "1.4.0")
	}
}

func TestHealthHandlers_ReadyzWithoutSystemService(t *testing.T) {
	handlers := NewHealthHandlers()

	rec := httptest.NewRecorder()
	handlers.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestHealthHandlers_ReadyzReportsChecks(t *testing.T) {
	generated := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	handlers := NewHealthHandlers(WithHealthSystemService(&stubSystemService{
		report: domain.HealthReport{
			Status: domain.HealthStatusDegraded,
			Checks: map[string]domain.HealthCheck{
				"catalog":   {Status: domain.HealthStatusOK, Latency: 3 * time.Millisecond},
				"languages": {Status: domain.HealthStatusDegraded, Detail: "slow upstream", Latency: 900 * time.Millisecond},
			},
			GeneratedAt: generated,
		},
	}))

	rec := httptest.NewRecorder()
	handlers.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("degraded should still report ready, status = %d", rec.Code)
	}
	var payload readyPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Status != domain.HealthStatusDegraded {
		t.Fatalf("status = %q, want %q", payload.Status, domain.HealthStatusDegraded)
	}
	if check, ok := payload.Checks["languages"]; !ok || check.Detail != "slow upstream" {
		t.Fatalf("languages check = %+v", payload.Checks["languages"])
	}
}

func TestHealthHandlers_ReadyzFailing(t *testing.T) {
	handlers := NewHealthHandlers(WithHealthSystemService(&stubSystemService{
		report: domain.HealthReport{Status: domain.HealthStatusError},
	}))

	rec := httptest.NewRecorder()
	handlers.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestHealthHandlers_ReadyzCollectError(t *testing.T) {
	handlers := NewHealthHandlers(WithHealthSystemService(&stubSystemService{
		err: errors.New("probe runner broken"),
	}))

	rec := httptest.NewRecorder()
	handlers.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}
