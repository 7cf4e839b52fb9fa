package models

import (
	"time"
)

// SenderEmail is one mailbox known to Email Bison, keyed by the triple
// (bison_account_id, bison_instance, workspace_id). Rows are upserted on
// every sync cycle and soft-deleted when the upstream stops reporting them.
type SenderEmail struct {
	ID                  string     `gorm:"column:id;type:bigserial;primaryKey" json:"id"`
	BisonAccountID      int64      `gorm:"column:bison_account_id;uniqueIndex:idx_sender_emails_account_instance_workspace;not null" json:"bisonAccountId"`
	BisonInstance       string     `gorm:"column:bison_instance;type:varchar(255);uniqueIndex:idx_sender_emails_account_instance_workspace;not null" json:"bisonInstance"`
	WorkspaceID         string     `gorm:"column:workspace_id;type:varchar(50);uniqueIndex:idx_sender_emails_account_instance_workspace;index;not null" json:"workspaceId"`
	WorkspaceName       string     `gorm:"column:workspace_name;type:varchar(255);index" json:"workspaceName"`
	Email               string     `gorm:"column:email;type:varchar(255);index" json:"email"`
	Status              string     `gorm:"column:status;type:varchar(50)" json:"status"`
	EmailsSent          int64      `gorm:"column:emails_sent;default:0" json:"emailsSent"`
	UniqueReplied       int64      `gorm:"column:unique_replied;default:0" json:"uniqueReplied"`
	Bounced             int64      `gorm:"column:bounced;default:0" json:"bounced"`
	Unsubscribed        int64      `gorm:"column:unsubscribed;default:0" json:"unsubscribed"`
	Opened              int64      `gorm:"column:opened;default:0" json:"opened"`
	TotalLeadsContacted int64      `gorm:"column:total_leads_contacted;default:0" json:"totalLeadsContacted"`
	DailyLimit          int        `gorm:"column:daily_limit;default:0" json:"dailyLimit"`
	ReplyRate           float64    `gorm:"column:reply_rate;type:numeric(6,2);default:0" json:"replyRate"`
	Provider            string     `gorm:"column:provider;type:varchar(100)" json:"provider"`
	Reseller            string     `gorm:"column:reseller;type:varchar(100)" json:"reseller"`
	Domain              string     `gorm:"column:domain;type:varchar(255);index" json:"domain"`
	Price               float64    `gorm:"column:price;type:numeric(10,2);default:0" json:"price"`
	PricingNeedsReview  bool       `gorm:"column:pricing_needs_review;type:boolean;default:false" json:"pricingNeedsReview"`
	LastSyncedAt        *time.Time `gorm:"column:last_synced_at;type:timestamp" json:"lastSyncedAt"`
	DeletedAt           *time.Time `gorm:"column:deleted_at;type:timestamp;index" json:"deletedAt"`
	CreatedAt           time.Time  `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (SenderEmail) TableName() string {
	return "sender_emails"
}

func (m *SenderEmail) IsDeleted() bool {
	return m.DeletedAt != nil
}
