package sync

import (
	"context"
	"fmt"
	"log"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"

	"github.com/outboundhq/senderstack/internal/models"
	"github.com/outboundhq/senderstack/internal/tracing"
)

// reconcileWorkspace diffs the fetched account set against persisted state:
// previously soft-deleted accounts that reappeared are restored, active
// accounts the upstream stopped reporting are soft-deleted.
//
// Must only run after a workspace's pagination completed successfully. A
// zero-account fetch is ambiguous (empty workspace vs silently failed
// fetch) and is treated conservatively: nothing is deleted.
func (s *Service) reconcileWorkspace(ctx context.Context, workspace *models.Workspace, instance string, fetchedIDs map[int64]struct{}) (restored, deleted int64, warning string, err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.reconcileWorkspace")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagWorkspace(span, workspace.Name)
	span.SetTag("fetched.count", len(fetchedIDs))

	if len(fetchedIDs) == 0 {
		warning = fmt.Sprintf("workspace %s returned zero accounts, skipping reconciliation", workspace.Name)
		log.Printf("[%s] WARNING: %s", workspace.Name, warning)
		span.LogFields(tracingLog.String("skipped", warning))
		return 0, 0, warning, nil
	}

	ids := make([]int64, 0, len(fetchedIDs))
	for id := range fetchedIDs {
		ids = append(ids, id)
	}

	restored, err = s.repos.SenderEmailRepository.RestoreAccounts(ctx, workspace.ID, instance, ids)
	if err != nil {
		tracing.TraceErr(span, err)
		return 0, 0, "", errors.Wrapf(err, "failed to restore accounts for workspace %s", workspace.Name)
	}

	deleted, err = s.repos.SenderEmailRepository.SoftDeleteAccountsNotIn(ctx, workspace.ID, instance, ids)
	if err != nil {
		tracing.TraceErr(span, err)
		return restored, 0, "", errors.Wrapf(err, "failed to soft delete accounts for workspace %s", workspace.Name)
	}

	if restored > 0 || deleted > 0 {
		log.Printf("[%s] reconciled: %d restored, %d soft-deleted", workspace.Name, restored, deleted)
	}
	span.LogFields(tracingLog.Int64("restored", restored), tracingLog.Int64("deleted", deleted))
	return restored, deleted, "", nil
}
