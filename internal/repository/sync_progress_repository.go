package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/outboundhq/senderstack/interfaces"
	"github.com/outboundhq/senderstack/internal/models"
	"github.com/outboundhq/senderstack/internal/tracing"
)

type syncProgressRepository struct {
	db *gorm.DB
}

func NewSyncProgressRepository(db *gorm.DB) interfaces.SyncProgressRepository {
	return &syncProgressRepository{db: db}
}

// Upsert updates the job's progress row, creating it on first write.
func (r *syncProgressRepository) Upsert(ctx context.Context, progress *models.SyncProgress) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncProgressRepository.Upsert")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagJobId(span, progress.JobID)

	result := r.db.WithContext(ctx).
		Model(&models.SyncProgress{}).
		Where("job_id = ?", progress.JobID).
		Updates(map[string]interface{}{
			"status":               progress.Status,
			"current_workspace":    progress.CurrentWorkspace,
			"workspaces_total":     progress.WorkspacesTotal,
			"workspaces_completed": progress.WorkspacesCompleted,
			"workspaces_skipped":   progress.WorkspacesSkipped,
			"accounts_synced":      progress.AccountsSynced,
			"message":              progress.Message,
			"updated_at":           time.Now(),
		})

	// If no record was updated, create a new one
	if result.Error == nil && result.RowsAffected == 0 {
		result = r.db.WithContext(ctx).Create(progress)
	}

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to upsert sync progress: %w", result.Error)
	}

	return nil
}

func (r *syncProgressRepository) GetByJobID(ctx context.Context, jobID string) (*models.SyncProgress, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncProgressRepository.GetByJobID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagJobId(span, jobID)

	var progress models.SyncProgress
	result := r.db.WithContext(ctx).Where("job_id = ?", jobID).First(&progress)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get sync progress: %w", result.Error)
	}

	return &progress, nil
}
