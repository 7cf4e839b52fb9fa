package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/outboundhq/senderstack/internal/utils"
)

// Workspace is one customer's mail-sending environment in Email Bison.
// Rows are managed by admin tooling; the sync pipeline only reads them.
type Workspace struct {
	ID               string    `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	Name             string    `gorm:"column:name;type:varchar(255);uniqueIndex;not null" json:"name"`
	BisonWorkspaceID int       `gorm:"column:bison_workspace_id;not null" json:"bisonWorkspaceId"`
	APIKey           *string   `gorm:"column:api_key;type:varchar(255)" json:"-"`
	Active           bool      `gorm:"column:active;type:boolean;default:true" json:"active"`
	CreatedAt        time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt        time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (Workspace) TableName() string {
	return "workspaces"
}

func (m *Workspace) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = utils.GenerateNanoIDWithPrefix("wksp", 16)
	}
	return nil
}

// HasDedicatedAPIKey reports whether the workspace carries its own Bison
// credential. Shared-credential workspaces need a workspace switch call
// before listing sender emails.
func (m *Workspace) HasDedicatedAPIKey() bool {
	return m.APIKey != nil && *m.APIKey != ""
}
