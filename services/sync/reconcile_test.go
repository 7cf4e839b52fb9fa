package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/outboundhq/senderstack/internal/models"
)

func seedAccounts(fix *syncFixture, workspaceID string, activeIDs []int64, deletedIDs []int64) {
	deletedAt := time.Now().Add(-time.Hour)
	for _, id := range activeIDs {
		fix.senderEmails.seed(models.SenderEmail{
			BisonAccountID: id,
			BisonInstance:  "bison.test",
			WorkspaceID:    workspaceID,
		})
	}
	for _, id := range deletedIDs {
		fix.senderEmails.seed(models.SenderEmail{
			BisonAccountID: id,
			BisonInstance:  "bison.test",
			WorkspaceID:    workspaceID,
			DeletedAt:      &deletedAt,
		})
	}
}

func fetchedSet(ids ...int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func TestReconcileWorkspace_SoftDeletesMissingRestoresReturning(t *testing.T) {
	fix := newSyncFixture(nil)
	workspace := sharedWorkspace("wksp_1", "acme", 101)

	// Active {1,2,3}, fetched {2,3,4}: 1 goes away, 4 arrives via upsert
	// elsewhere, 2 and 3 stay.
	seedAccounts(fix, "wksp_1", []int64{1, 2, 3}, nil)

	restored, deleted, warning, err := fix.service.reconcileWorkspace(context.Background(), &workspace, "bison.test", fetchedSet(2, 3, 4))
	require.NoError(t, err)
	require.Empty(t, warning)
	require.Equal(t, int64(0), restored)
	require.Equal(t, int64(1), deleted)

	require.NotNil(t, fix.senderEmails.deletedRow(1, "bison.test", "wksp_1"))
	require.NotNil(t, fix.senderEmails.activeRow(2, "bison.test", "wksp_1"))
	require.NotNil(t, fix.senderEmails.activeRow(3, "bison.test", "wksp_1"))
}

func TestReconcileWorkspace_RestoresPreviouslyDeleted(t *testing.T) {
	fix := newSyncFixture(nil)
	workspace := sharedWorkspace("wksp_1", "acme", 101)

	seedAccounts(fix, "wksp_1", []int64{1}, []int64{2, 3})

	restored, deleted, warning, err := fix.service.reconcileWorkspace(context.Background(), &workspace, "bison.test", fetchedSet(1, 2))
	require.NoError(t, err)
	require.Empty(t, warning)
	require.Equal(t, int64(1), restored)
	require.Equal(t, int64(0), deleted)

	require.NotNil(t, fix.senderEmails.activeRow(2, "bison.test", "wksp_1"))
	// 3 was already deleted and stays deleted; deletes only apply to
	// active rows.
	require.NotNil(t, fix.senderEmails.deletedRow(3, "bison.test", "wksp_1"))
}

func TestReconcileWorkspace_ZeroFetchSkipsDeletes(t *testing.T) {
	fix := newSyncFixture(nil)
	workspace := sharedWorkspace("wksp_1", "acme", 101)

	seedAccounts(fix, "wksp_1", []int64{1, 2, 3}, nil)

	restored, deleted, warning, err := fix.service.reconcileWorkspace(context.Background(), &workspace, "bison.test", nil)
	require.NoError(t, err)
	require.Equal(t, int64(0), restored)
	require.Equal(t, int64(0), deleted)
	require.Contains(t, warning, "zero accounts")

	for _, id := range []int64{1, 2, 3} {
		require.NotNil(t, fix.senderEmails.activeRow(id, "bison.test", "wksp_1"))
	}
}

func TestReconcileWorkspace_ScopedToWorkspaceAndInstance(t *testing.T) {
	fix := newSyncFixture(nil)
	workspace := sharedWorkspace("wksp_1", "acme", 101)

	seedAccounts(fix, "wksp_1", []int64{1}, nil)
	seedAccounts(fix, "wksp_2", []int64{1, 9}, nil)

	_, deleted, _, err := fix.service.reconcileWorkspace(context.Background(), &workspace, "bison.test", fetchedSet(1))
	require.NoError(t, err)
	require.Equal(t, int64(0), deleted)

	// The other workspace's rows are untouched.
	require.NotNil(t, fix.senderEmails.activeRow(9, "bison.test", "wksp_2"))
}
