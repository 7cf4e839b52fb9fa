package interfaces

import (
	"context"

	"github.com/outboundhq/senderstack/internal/models"
)

type SyncJobRepository interface {
	Create(ctx context.Context, job *models.SyncJob) error
	GetByID(ctx context.Context, id string) (*models.SyncJob, error)
	Update(ctx context.Context, job *models.SyncJob) error
	ListRecent(ctx context.Context, limit int) ([]models.SyncJob, error)
}

type SyncProgressRepository interface {
	Upsert(ctx context.Context, progress *models.SyncProgress) error
	GetByJobID(ctx context.Context, jobID string) (*models.SyncProgress, error)
}
