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

type syncJobRepository struct {
	db *gorm.DB
}

func NewSyncJobRepository(db *gorm.DB) interfaces.SyncJobRepository {
	return &syncJobRepository{db: db}
}

func (r *syncJobRepository) Create(ctx context.Context, job *models.SyncJob) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncJobRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagJobId(span, job.ID)

	if job.StartedAt.IsZero() {
		job.StartedAt = time.Now()
	}

	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to create sync job: %w", err)
	}

	return nil
}

func (r *syncJobRepository) GetByID(ctx context.Context, id string) (*models.SyncJob, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncJobRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagJobId(span, id)

	var job models.SyncJob
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&job)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get sync job: %w", result.Error)
	}

	return &job, nil
}

func (r *syncJobRepository) Update(ctx context.Context, job *models.SyncJob) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncJobRepository.Update")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagJobId(span, job.ID)

	job.UpdatedAt = time.Now()

	if err := r.db.WithContext(ctx).Save(job).Error; err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to update sync job: %w", err)
	}

	return nil
}

func (r *syncJobRepository) ListRecent(ctx context.Context, limit int) ([]models.SyncJob, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncJobRepository.ListRecent")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if limit <= 0 {
		limit = 20
	}

	var jobs []models.SyncJob
	if err := r.db.WithContext(ctx).
		Order("started_at desc").
		Limit(limit).
		Find(&jobs).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to list sync jobs: %w", err)
	}

	return jobs, nil
}
