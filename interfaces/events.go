package interfaces

import (
	"context"

	"github.com/outboundhq/senderstack/internal/models"
)

// SyncEventPublisher emits sync lifecycle events for dashboard consumers.
// Implementations must be safe to call with a nil-op backend when no broker
// is configured.
type SyncEventPublisher interface {
	PublishJobStarted(ctx context.Context, job *models.SyncJob) error
	PublishJobFinished(ctx context.Context, job *models.SyncJob) error
	Close() error
}
