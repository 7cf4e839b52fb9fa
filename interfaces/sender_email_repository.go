package interfaces

import (
	"context"

	"github.com/outboundhq/senderstack/internal/models"
)

// WorkspaceBillingRollup aggregates active account pricing per workspace for
// the billing report export.
type WorkspaceBillingRollup struct {
	WorkspaceID    string
	WorkspaceName  string
	ActiveAccounts int64
	MonthlyTotal   float64
}

type SenderEmailRepository interface {
	// UpsertBatch writes one chunk of transformed accounts keyed by
	// (bison_account_id, bison_instance, workspace_id). Idempotent.
	UpsertBatch(ctx context.Context, accounts []models.SenderEmail) error

	GetActiveAccountIDs(ctx context.Context, workspaceID, instance string) ([]int64, error)
	RestoreAccounts(ctx context.Context, workspaceID, instance string, accountIDs []int64) (int64, error)
	SoftDeleteAccountsNotIn(ctx context.Context, workspaceID, instance string, fetchedIDs []int64) (int64, error)

	// ApplyDomainPricing re-prices every live account in one pricing group
	// (domain, provider, reseller) once the workspace's full domain mailbox
	// counts are known.
	ApplyDomainPricing(ctx context.Context, workspaceID, instance, domain, provider, reseller string, price float64, dailyLimit int, needsReview bool) error

	GetBillingRollup(ctx context.Context) ([]WorkspaceBillingRollup, error)

	RefreshOverviewView(ctx context.Context) error
	RefreshActiveOverviewView(ctx context.Context) error
}
