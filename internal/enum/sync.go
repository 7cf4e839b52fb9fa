package enum

type SyncStatus string

const (
	SyncRunning             SyncStatus = "running"
	SyncCompleted           SyncStatus = "completed"
	SyncCompletedWithErrors SyncStatus = "completed_with_errors"
	SyncPartial             SyncStatus = "partial"
	SyncFailed              SyncStatus = "failed"
)

func (t SyncStatus) String() string {
	return string(t)
}

type WorkspaceSyncOutcome string

const (
	WorkspaceSynced  WorkspaceSyncOutcome = "synced"
	WorkspaceFailed  WorkspaceSyncOutcome = "failed"
	WorkspaceSkipped WorkspaceSyncOutcome = "skipped"
)

func (t WorkspaceSyncOutcome) String() string {
	return string(t)
}
