package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/outboundhq/senderstack/internal/enum"
)

// SyncJob is one logical run of the full multi-workspace sync. The same row
// is shared by every batch of the run; next_batch_offset is the durable
// cursor a continuation resumes from.
type SyncJob struct {
	ID                  string          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Status              enum.SyncStatus `gorm:"column:status;type:varchar(50);index;not null" json:"status"`
	TotalWorkspaces     int             `gorm:"column:total_workspaces;default:0" json:"totalWorkspaces"`
	WorkspacesProcessed int             `gorm:"column:workspaces_processed;default:0" json:"workspacesProcessed"`
	WorkspacesSkipped   int             `gorm:"column:workspaces_skipped;default:0" json:"workspacesSkipped"`
	TotalAccountsSynced int             `gorm:"column:total_accounts_synced;default:0" json:"totalAccountsSynced"`
	NextBatchOffset     int             `gorm:"column:next_batch_offset;default:0" json:"nextBatchOffset"`
	Warnings            pq.StringArray  `gorm:"column:warnings;type:text[]" json:"warnings"`
	Errors              pq.StringArray  `gorm:"column:errors;type:text[]" json:"errors"`
	StartedAt           time.Time       `gorm:"column:started_at;type:timestamp;not null" json:"startedAt"`
	CompletedAt         *time.Time      `gorm:"column:completed_at;type:timestamp" json:"completedAt"`
	CreatedAt           time.Time       `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (SyncJob) TableName() string {
	return "sync_jobs"
}

func (m *SyncJob) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
