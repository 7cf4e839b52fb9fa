package interfaces

import (
	"context"
)

// SyncService drives the sender-email sync pipeline.
type SyncService interface {
	// RunBatch processes one batch of workspaces and returns its summary.
	// When the request asks for auto-chaining, the continuation for the
	// remaining batches is started in the background after the lock is
	// released.
	RunBatch(ctx context.Context, req SyncBatchRequest) *SyncBatchResult

	// Run processes batches from the request offset until no workspaces
	// remain, advancing the durable cursor after each batch. Used by the
	// scheduler.
	Run(ctx context.Context, req SyncBatchRequest) *SyncBatchResult
}

type SyncBatchRequest struct {
	BatchOffset     int    `json:"batch_offset"`
	BatchSize       int    `json:"batch_size"`
	SkipViewRefresh bool   `json:"skip_view_refresh"`
	JobID           string `json:"job_id"`
	AutoChained     bool   `json:"auto_chained"`
}

type SyncBatchResult struct {
	Success                bool   `json:"success"`
	JobID                  string `json:"job_id"`
	Status                 string `json:"status"`
	Message                string `json:"message,omitempty"`
	Error                  string `json:"error,omitempty"`
	TotalWorkspacesInBatch int    `json:"total_workspaces_in_batch"`
	WorkspacesProcessed    int    `json:"workspaces_processed"`
	WorkspacesSkipped      int    `json:"workspaces_skipped"`
	TotalAccountsSynced    int    `json:"total_accounts_synced"`
	DurationMs             int64  `json:"duration_ms"`
	HasMoreBatches         bool   `json:"has_more_batches"`
	NextBatchOffset        int    `json:"next_batch_offset"`
}
