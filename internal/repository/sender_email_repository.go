package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/outboundhq/senderstack/interfaces"
	"github.com/outboundhq/senderstack/internal/models"
	"github.com/outboundhq/senderstack/internal/tracing"
)

type senderEmailRepository struct {
	db *gorm.DB
}

func NewSenderEmailRepository(db *gorm.DB) interfaces.SenderEmailRepository {
	return &senderEmailRepository{db: db}
}

// UpsertBatch writes one chunk of accounts. Conflict on the natural key
// updates the synced columns and clears deleted_at, so an account that
// reappears upstream is live again without a separate restore.
func (r *senderEmailRepository) UpsertBatch(ctx context.Context, accounts []models.SenderEmail) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "senderEmailRepository.UpsertBatch")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("batch.size", len(accounts))

	if len(accounts) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "bison_account_id"},
			{Name: "bison_instance"},
			{Name: "workspace_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"workspace_name",
			"email",
			"status",
			"emails_sent",
			"unique_replied",
			"bounced",
			"unsubscribed",
			"opened",
			"total_leads_contacted",
			"daily_limit",
			"reply_rate",
			"provider",
			"reseller",
			"domain",
			"price",
			"pricing_needs_review",
			"last_synced_at",
			"deleted_at",
			"updated_at",
		}),
	}).Create(&accounts).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to upsert sender emails: %w", err)
	}

	return nil
}

func (r *senderEmailRepository) GetActiveAccountIDs(ctx context.Context, workspaceID, instance string) ([]int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "senderEmailRepository.GetActiveAccountIDs")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("workspace.id", workspaceID)

	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&models.SenderEmail{}).
		Where("workspace_id = ? AND bison_instance = ? AND deleted_at IS NULL", workspaceID, instance).
		Pluck("bison_account_id", &ids).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to get active account ids: %w", err)
	}

	span.SetTag("result.count", len(ids))
	return ids, nil
}

func (r *senderEmailRepository) RestoreAccounts(ctx context.Context, workspaceID, instance string, accountIDs []int64) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "senderEmailRepository.RestoreAccounts")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("workspace.id", workspaceID)

	if len(accountIDs) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).
		Model(&models.SenderEmail{}).
		Where("workspace_id = ? AND bison_instance = ? AND bison_account_id IN ? AND deleted_at IS NOT NULL",
			workspaceID, instance, accountIDs).
		Updates(map[string]interface{}{
			"deleted_at": nil,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return 0, fmt.Errorf("failed to restore accounts: %w", result.Error)
	}

	span.LogFields(tracingLog.Int64("restored", result.RowsAffected))
	return result.RowsAffected, nil
}

func (r *senderEmailRepository) SoftDeleteAccountsNotIn(ctx context.Context, workspaceID, instance string, fetchedIDs []int64) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "senderEmailRepository.SoftDeleteAccountsNotIn")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("workspace.id", workspaceID)

	query := r.db.WithContext(ctx).
		Model(&models.SenderEmail{}).
		Where("workspace_id = ? AND bison_instance = ? AND deleted_at IS NULL", workspaceID, instance)
	if len(fetchedIDs) > 0 {
		query = query.Where("bison_account_id NOT IN ?", fetchedIDs)
	}

	result := query.Updates(map[string]interface{}{
		"deleted_at": time.Now(),
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return 0, fmt.Errorf("failed to soft delete accounts: %w", result.Error)
	}

	span.LogFields(tracingLog.Int64("deleted", result.RowsAffected))
	return result.RowsAffected, nil
}

// ApplyDomainPricing re-prices one (domain, provider, reseller) group in a
// single UPDATE. Called once per group after a workspace's full fetch, when
// the domain mailbox counts the price depends on are finally known.
func (r *senderEmailRepository) ApplyDomainPricing(ctx context.Context, workspaceID, instance, domain, provider, reseller string, price float64, dailyLimit int, needsReview bool) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "senderEmailRepository.ApplyDomainPricing")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("workspace.id", workspaceID)
	span.SetTag("domain", domain)

	updates := map[string]interface{}{
		"price":                price,
		"pricing_needs_review": needsReview,
		"updated_at":           time.Now(),
	}
	if dailyLimit > 0 {
		updates["daily_limit"] = dailyLimit
	}

	err := r.db.WithContext(ctx).
		Model(&models.SenderEmail{}).
		Where("workspace_id = ? AND bison_instance = ? AND domain = ? AND provider = ? AND reseller = ? AND deleted_at IS NULL",
			workspaceID, instance, domain, provider, reseller).
		Updates(updates).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to apply domain pricing: %w", err)
	}

	return nil
}

func (r *senderEmailRepository) GetBillingRollup(ctx context.Context) ([]interfaces.WorkspaceBillingRollup, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "senderEmailRepository.GetBillingRollup")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var rollup []interfaces.WorkspaceBillingRollup
	err := r.db.WithContext(ctx).
		Model(&models.SenderEmail{}).
		Select("workspace_id, workspace_name, count(*) as active_accounts, coalesce(sum(price), 0) as monthly_total").
		Where("deleted_at IS NULL").
		Group("workspace_id, workspace_name").
		Order("workspace_name asc").
		Scan(&rollup).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to get billing rollup: %w", err)
	}

	return rollup, nil
}

func (r *senderEmailRepository) RefreshOverviewView(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "senderEmailRepository.RefreshOverviewView")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if err := r.db.WithContext(ctx).Exec("SELECT refresh_sender_emails_overview()").Error; err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to refresh sender emails overview: %w", err)
	}
	return nil
}

func (r *senderEmailRepository) RefreshActiveOverviewView(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "senderEmailRepository.RefreshActiveOverviewView")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if err := r.db.WithContext(ctx).Exec("SELECT refresh_active_sender_emails_overview()").Error; err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to refresh active sender emails overview: %w", err)
	}
	return nil
}
