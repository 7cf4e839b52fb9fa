package interfaces

import (
	"context"

	"github.com/outboundhq/senderstack/internal/models"
)

type WorkspaceRepository interface {
	GetActiveWorkspaces(ctx context.Context) ([]models.Workspace, error)
	GetByName(ctx context.Context, name string) (*models.Workspace, error)
	ListAll(ctx context.Context) ([]models.Workspace, error)
}
