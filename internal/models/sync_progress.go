package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/outboundhq/senderstack/internal/enum"
	"github.com/outboundhq/senderstack/internal/utils"
)

// SyncProgress is the live projection of a SyncJob polled by the dashboard.
// Updated on a coarser cadence than SyncJob to bound write volume.
type SyncProgress struct {
	ID                  string          `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	JobID               string          `gorm:"column:job_id;type:uuid;uniqueIndex;not null" json:"jobId"`
	Status              enum.SyncStatus `gorm:"column:status;type:varchar(50)" json:"status"`
	CurrentWorkspace    string          `gorm:"column:current_workspace;type:varchar(255)" json:"currentWorkspace"`
	WorkspacesTotal     int             `gorm:"column:workspaces_total;default:0" json:"workspacesTotal"`
	WorkspacesCompleted int             `gorm:"column:workspaces_completed;default:0" json:"workspacesCompleted"`
	WorkspacesSkipped   int             `gorm:"column:workspaces_skipped;default:0" json:"workspacesSkipped"`
	AccountsSynced      int             `gorm:"column:accounts_synced;default:0" json:"accountsSynced"`
	Message             string          `gorm:"column:message;type:text" json:"message"`
	CreatedAt           time.Time       `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (SyncProgress) TableName() string {
	return "sync_progress"
}

func (m *SyncProgress) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = utils.GenerateNanoIDWithPrefix("sprg", 16)
	}
	return nil
}
