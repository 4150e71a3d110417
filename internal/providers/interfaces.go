package providers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/safarides/safar-backend/pkg/models"
)

// RepositoryInterface abstracts provider storage for testability.
type RepositoryInterface interface {
	Create(ctx context.Context, p *models.Provider) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Provider, error)
	Update(ctx context.Context, p *models.Provider) error
	SetPause(ctx context.Context, id uuid.UUID, until *time.Time, reason *string) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]models.Provider, int64, error)
	GetMetrics(ctx context.Context, providerID uuid.UUID, since time.Time) ([]models.ProviderMetric, error)
	ResumeExpiredPauses(ctx context.Context) (int64, error)
}
