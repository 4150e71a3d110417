package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/safarides/safar-backend/pkg/common"
	"github.com/safarides/safar-backend/pkg/models"
)

const defaultMetricsDays = 7

// Service handles provider business logic
type Service struct {
	repo RepositoryInterface
}

// NewService creates a new provider service
func NewService(repo RepositoryInterface) *Service {
	return &Service{repo: repo}
}

// Register creates a provider with platform-default reliability, rating and
// commission.
func (s *Service) Register(ctx context.Context, req *RegisterProviderRequest) (*models.Provider, error) {
	commission := models.DefaultCommissionRate
	if req.CommissionRate != nil {
		commission = *req.CommissionRate
	}

	now := time.Now()
	provider := &models.Provider{
		ID:             uuid.New(),
		Name:           req.Name,
		Phone:          req.Phone,
		Type:           req.Type,
		VehicleModel:   req.VehicleModel,
		VehiclePlate:   req.VehiclePlate,
		CommissionRate: commission,
		Active:         true,
		Reliability:    models.DefaultReliability,
		Rating:         models.DefaultRating,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, provider); err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, fmt.Errorf("create provider: %w", err)
	}
	return provider, nil
}

// Get returns a provider by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Provider, error) {
	provider, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("provider not found")
		}
		return nil, err
	}
	return provider, nil
}

// Update applies profile changes. Counters and reliability cannot be set here.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *UpdateProviderRequest) (*models.Provider, error) {
	provider, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		provider.Name = *req.Name
	}
	if req.Type != nil {
		provider.Type = *req.Type
	}
	if req.VehicleModel != nil {
		provider.VehicleModel = req.VehicleModel
	}
	if req.VehiclePlate != nil {
		provider.VehiclePlate = req.VehiclePlate
	}
	if req.CommissionRate != nil {
		provider.CommissionRate = *req.CommissionRate
	}
	if req.Active != nil {
		provider.Active = *req.Active
	}
	provider.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, provider); err != nil {
		return nil, fmt.Errorf("update provider: %w", err)
	}
	return provider, nil
}

// Pause takes a provider out of rotation until now+hours.
func (s *Service) Pause(ctx context.Context, id uuid.UUID, req *PauseProviderRequest) (*models.Provider, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	until := time.Now().Add(time.Duration(req.Hours) * time.Hour)
	if err := s.repo.SetPause(ctx, id, &until, &req.Reason); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Resume clears an active pause immediately.
func (s *Service) Resume(ctx context.Context, id uuid.UUID) (*models.Provider, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	if err := s.repo.SetPause(ctx, id, nil, nil); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// List returns providers with the optional active filter.
func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]models.Provider, int64, error) {
	providers, total, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if providers == nil {
		providers = []models.Provider{}
	}
	return providers, total, nil
}

// ResumeExpiredPauses clears lapsed pause windows. Called by the recovery
// sweeper.
func (s *Service) ResumeExpiredPauses(ctx context.Context) (int64, error) {
	return s.repo.ResumeExpiredPauses(ctx)
}

// GetMetrics returns the provider's daily metric rows for the trailing
// daysBack days (default 7).
func (s *Service) GetMetrics(ctx context.Context, id uuid.UUID, daysBack int) ([]models.ProviderMetric, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	if daysBack <= 0 {
		daysBack = defaultMetricsDays
	}
	since := time.Now().AddDate(0, 0, -daysBack).Truncate(24 * time.Hour)

	metrics, err := s.repo.GetMetrics(ctx, id, since)
	if err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = []models.ProviderMetric{}
	}
	return metrics, nil
}
