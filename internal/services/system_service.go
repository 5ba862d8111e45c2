package services

import (
	"context"
	"errors"

	"github.com/brightsprout/storefront-api/internal/domain"
	"github.com/brightsprout/storefront-api/internal/repositories"
)

var errSystemHealthRepositoryRequired = errors.New("system: health repository is required")

// SystemServiceDeps wires the health repository for readiness reporting.
type SystemServiceDeps struct {
	Health repositories.HealthRepository
}

type systemService struct {
	health repositories.HealthRepository
}

// NewSystemService constructs a SystemService with the provided dependencies.
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.Health == nil {
		return nil, errSystemHealthRepositoryRequired
	}
	return &systemService{health: deps.Health}, nil
}

func (s *systemService) Health(ctx context.Context) (domain.HealthReport, error) {
	return s.health.Collect(ctx)
}
