package repository

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/outboundhq/senderstack/interfaces"
	"github.com/outboundhq/senderstack/internal/models"
	"github.com/outboundhq/senderstack/internal/tracing"
)

type workspaceRepository struct {
	db *gorm.DB
}

func NewWorkspaceRepository(db *gorm.DB) interfaces.WorkspaceRepository {
	return &workspaceRepository{db: db}
}

// GetActiveWorkspaces returns the active workspace registry ordered by name,
// which keeps batch slicing stable across chained invocations.
func (r *workspaceRepository) GetActiveWorkspaces(ctx context.Context) ([]models.Workspace, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "workspaceRepository.GetActiveWorkspaces")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var workspaces []models.Workspace
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("name asc").
		Find(&workspaces).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to get active workspaces: %w", err)
	}

	span.SetTag("result.count", len(workspaces))
	return workspaces, nil
}

func (r *workspaceRepository) GetByName(ctx context.Context, name string) (*models.Workspace, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "workspaceRepository.GetByName")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagWorkspace(span, name)

	var workspace models.Workspace
	result := r.db.WithContext(ctx).Where("name = ?", name).First(&workspace)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get workspace: %w", result.Error)
	}

	return &workspace, nil
}

func (r *workspaceRepository) ListAll(ctx context.Context) ([]models.Workspace, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "workspaceRepository.ListAll")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var workspaces []models.Workspace
	if err := r.db.WithContext(ctx).Order("name asc").Find(&workspaces).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}

	return workspaces, nil
}
