package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"

	"github.com/outboundhq/senderstack/config"
	"github.com/outboundhq/senderstack/interfaces"
	"github.com/outboundhq/senderstack/internal/enum"
	coreerrors "github.com/outboundhq/senderstack/internal/errors"
	"github.com/outboundhq/senderstack/internal/logger"
	"github.com/outboundhq/senderstack/internal/models"
	"github.com/outboundhq/senderstack/internal/repository"
	"github.com/outboundhq/senderstack/internal/tracing"
)

// Service is the batch orchestrator for the sender-email sync pipeline.
// One RunBatch call is one unit of work: acquire the lock, process a slice
// of the workspace registry, persist progress, release the lock, and hand
// off to the continuation when workspaces remain.
type Service struct {
	cfg    *config.SyncConfig
	log    logger.Logger
	repos  *repository.Repositories
	bison  interfaces.BisonClientFactory
	events interfaces.SyncEventPublisher

	// chain starts the continuation for the remaining batches. Replaced in
	// tests; the default runs in a background goroutine.
	chain func(req interfaces.SyncBatchRequest)
}

func NewSyncService(cfg *config.SyncConfig, log logger.Logger, repos *repository.Repositories, bisonFactory interfaces.BisonClientFactory, events interfaces.SyncEventPublisher) *Service {
	s := &Service{
		cfg:    cfg,
		log:    log,
		repos:  repos,
		bison:  bisonFactory,
		events: events,
	}
	s.chain = func(req interfaces.SyncBatchRequest) {
		go func() {
			defer tracing.RecoverAndLogToJaeger(s.log)
			s.Run(context.Background(), req)
		}()
	}
	return s
}

// workspaceOutcome is what one workspace contributed to the batch.
type workspaceOutcome struct {
	workspace string
	outcome   enum.WorkspaceSyncOutcome
	accounts  int
	warning   string
	err       error
}

// Run drives batches from the request offset until no workspaces remain,
// advancing the durable cursor batch by batch. A batch that times out or
// fails stops the loop; re-running is the recovery path.
func (s *Service) Run(ctx context.Context, req interfaces.SyncBatchRequest) *interfaces.SyncBatchResult {
	req.AutoChained = false

	result := s.RunBatch(ctx, req)
	for result.Success && result.HasMoreBatches && result.Status == enum.SyncRunning.String() {
		req.JobID = result.JobID
		req.BatchOffset = result.NextBatchOffset
		result = s.RunBatch(ctx, req)
	}
	return result
}

// RunBatch processes one batch of workspaces.
func (s *Service) RunBatch(ctx context.Context, req interfaces.SyncBatchRequest) *interfaces.SyncBatchResult {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.RunBatch")
	defer span.Finish()
	tracing.TagComponentService(span)

	start := time.Now()

	if req.BatchSize <= 0 {
		req.BatchSize = s.cfg.BatchSize
	}
	jobID := req.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}
	tracing.TagJobId(span, jobID)
	span.SetTag("batch.offset", req.BatchOffset)
	span.SetTag("batch.size", req.BatchSize)

	result := &interfaces.SyncBatchResult{
		JobID:           jobID,
		NextBatchOffset: req.BatchOffset,
	}

	// Lock contention is not an error: another run is already doing the
	// work, so exit cleanly.
	staleThreshold := time.Duration(s.cfg.LockStaleMinutes) * time.Minute
	acquired, err := s.repos.SyncLockRepository.TryAcquire(ctx, s.cfg.LockName, jobID, staleThreshold)
	if err != nil {
		return s.failResult(ctx, result, nil, start, err)
	}
	if !acquired {
		s.log.Infof("sync skipped, lock %s is held by another job", s.cfg.LockName)
		result.Success = true
		result.Status = enum.SyncCompleted.String()
		result.Message = "skipped: another sync is already running"
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}

	// The lock is released exactly once: either early before chaining, or
	// here on the way out.
	lockReleased := false
	releaseLock := func() {
		if lockReleased {
			return
		}
		lockReleased = true
		if _, err := s.repos.SyncLockRepository.Release(context.Background(), s.cfg.LockName, jobID); err != nil {
			s.log.Errorf("failed to release sync lock: %v", err)
		}
	}
	defer releaseLock()

	workspaces, err := s.repos.WorkspaceRepository.GetActiveWorkspaces(ctx)
	if err != nil {
		return s.failResult(ctx, result, nil, start, err)
	}
	total := len(workspaces)

	job, err := s.loadOrCreateJob(ctx, jobID, req, total)
	if err != nil {
		return s.failResult(ctx, result, nil, start, err)
	}

	batch := sliceBatch(workspaces, req.BatchOffset, req.BatchSize)
	result.TotalWorkspacesInBatch = len(batch)
	s.log.Infof("job %s batch offset=%d size=%d of %d workspaces", jobID, req.BatchOffset, len(batch), total)

	outcomes, timedOut := s.processBatch(ctx, job, batch)

	accountsSynced := 0
	processed := 0
	skipped := 0
	failed := 0
	for _, o := range outcomes {
		switch o.outcome {
		case enum.WorkspaceSynced:
			processed++
			accountsSynced += o.accounts
		case enum.WorkspaceSkipped:
			skipped++
		case enum.WorkspaceFailed:
			failed++
		}
		if o.warning != "" {
			job.Warnings = append(job.Warnings, o.warning)
		}
		if o.err != nil {
			job.Errors = append(job.Errors, fmt.Sprintf("%s: %v", o.workspace, o.err))
		}
	}

	job.WorkspacesProcessed += processed
	job.TotalAccountsSynced += accountsSynced
	job.NextBatchOffset = req.BatchOffset + len(batch)
	if timedOut {
		// The skipped tail stays ahead of the cursor and out of the job's
		// consumed counters, so re-triggering with the same job id picks
		// those workspaces back up.
		job.NextBatchOffset = req.BatchOffset + len(batch) - skipped
	} else {
		job.WorkspacesSkipped += skipped
	}

	hasMore := job.NextBatchOffset < total && !timedOut
	isFinal := job.NextBatchOffset >= total

	switch {
	case timedOut:
		// Remaining workspaces were marked skipped; recovery is re-running
		// the job, not auto-chaining out of a timeout state.
		job.Status = enum.SyncPartial
		job.CompletedAt = timePtr(time.Now())
	case isFinal:
		job.Status = s.finalStatus(job, failed)
		job.CompletedAt = timePtr(time.Now())
		if !req.SkipViewRefresh {
			s.refreshViews(ctx, job)
		}
	default:
		job.Status = enum.SyncRunning
	}

	if err := s.repos.SyncJobRepository.Update(ctx, job); err != nil {
		return s.failResult(ctx, result, job, start, err)
	}
	s.updateProgress(ctx, job, "")

	if job.Status != enum.SyncRunning {
		s.publishFinished(ctx, job)
	}

	result.Success = true
	result.Status = job.Status.String()
	result.WorkspacesProcessed = processed
	result.WorkspacesSkipped = skipped
	result.TotalAccountsSynced = accountsSynced
	result.HasMoreBatches = job.NextBatchOffset < total
	result.NextBatchOffset = job.NextBatchOffset
	result.DurationMs = time.Since(start).Milliseconds()
	span.LogFields(
		tracingLog.Int("processed", processed),
		tracingLog.Int("skipped", skipped),
		tracingLog.Int("failed", failed),
		tracingLog.Int("accounts", accountsSynced),
	)

	// Release before chaining so the continuation does not see its own
	// predecessor's lock as contention.
	if hasMore && req.AutoChained {
		releaseLock()
		next := req
		next.JobID = jobID
		next.BatchOffset = job.NextBatchOffset
		s.log.Infof("job %s chaining to offset %d", jobID, next.BatchOffset)
		s.chain(next)
	}

	return result
}

// processBatch runs the batch's workspaces with bounded concurrency and a
// whole-batch wall-clock ceiling checked between dispatches.
func (s *Service) processBatch(ctx context.Context, job *models.SyncJob, batch []models.Workspace) ([]workspaceOutcome, bool) {
	concurrency := s.cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	// The shared credential carries switch state upstream that concurrent
	// syncs would trample, so any shared-credential workspace in the batch
	// forces serial processing.
	for _, ws := range batch {
		if !ws.HasDedicatedAPIKey() && concurrency > 1 {
			s.log.Warnf("batch contains shared-credential workspaces, forcing concurrency to 1")
			concurrency = 1
			break
		}
	}

	batchStart := time.Now()
	batchLimit := time.Duration(s.cfg.BatchTimeLimitSeconds) * time.Second

	outcomes := make([]workspaceOutcome, len(batch))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	// Progress and the lock heartbeat advance on a completion cadence
	// regardless of concurrency, so a long batch cannot let the lock go
	// stale under a live run.
	every := s.cfg.ProgressUpdateEvery
	if every < 1 {
		every = 1
	}
	var progressMu sync.Mutex
	var finished []workspaceOutcome
	noteDone := func(o workspaceOutcome) {
		progressMu.Lock()
		defer progressMu.Unlock()
		finished = append(finished, o)
		if len(finished)%every == 0 || len(finished) == len(batch) {
			s.touchProgress(ctx, job, o.workspace, finished)
		}
	}

	timedOut := false

	for i := range batch {
		// The limit is checked once a worker slot is free, so in serial
		// mode the elapsed time includes every finished workspace.
		sem <- struct{}{}
		if time.Since(batchStart) > batchLimit {
			<-sem
			timedOut = true
			for j := i; j < len(batch); j++ {
				outcomes[j] = workspaceOutcome{
					workspace: batch[j].Name,
					outcome:   enum.WorkspaceSkipped,
					warning:   fmt.Sprintf("workspace %s skipped: batch time limit reached", batch[j].Name),
				}
			}
			s.log.Warnf("job %s batch time limit reached, skipping %d workspaces", job.ID, len(batch)-i)
			break
		}

		wg.Add(1)
		go func(idx int, ws models.Workspace) {
			defer wg.Done()
			defer func() { <-sem }()
			defer tracing.RecoverAndLogToJaeger(s.log)
			outcome := s.processWorkspace(ctx, &ws)
			outcomes[idx] = outcome
			noteDone(outcome)
		}(i, batch[i])
	}

	wg.Wait()
	if timedOut {
		s.touchProgress(ctx, job, "", outcomes)
	}
	return outcomes, timedOut
}

// processWorkspace fetches and reconciles a single workspace under its own
// timeout. Failures are recorded, not fatal to the batch.
func (s *Service) processWorkspace(ctx context.Context, workspace *models.Workspace) workspaceOutcome {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.processWorkspace")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagWorkspace(span, workspace.Name)

	wsCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.WorkspaceTimeoutSeconds)*time.Second)
	defer cancel()

	fetched, err := s.fetchWorkspaceAccounts(wsCtx, workspace)
	if err != nil {
		if wsCtx.Err() == context.DeadlineExceeded {
			err = errors.Wrapf(coreerrors.ErrWorkspaceTimedOut, "after %ds: %v", s.cfg.WorkspaceTimeoutSeconds, err)
		}
		tracing.TraceErr(span, err)
		s.log.Errorf("workspace %s sync failed: %v", workspace.Name, err)
		return workspaceOutcome{workspace: workspace.Name, outcome: enum.WorkspaceFailed, err: err}
	}

	// Reconciliation only runs on a complete fetch; a failed or partial
	// pagination must never trigger deletions.
	_, _, warning, err := s.reconcileWorkspace(wsCtx, workspace, s.bison.Instance(), fetched.fetchedIDs)
	if err != nil {
		tracing.TraceErr(span, err)
		return workspaceOutcome{workspace: workspace.Name, outcome: enum.WorkspaceFailed, accounts: fetched.accountsFetched, err: err}
	}

	s.log.Infof("workspace %s synced %d accounts over %d pages", workspace.Name, fetched.accountsFetched, fetched.pageCount)
	return workspaceOutcome{
		workspace: workspace.Name,
		outcome:   enum.WorkspaceSynced,
		accounts:  fetched.accountsFetched,
		warning:   warning,
	}
}

func (s *Service) loadOrCreateJob(ctx context.Context, jobID string, req interfaces.SyncBatchRequest, total int) (*models.SyncJob, error) {
	job, err := s.repos.SyncJobRepository.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job != nil {
		job.TotalWorkspaces = total
		return job, nil
	}

	job = &models.SyncJob{
		ID:              jobID,
		Status:          enum.SyncRunning,
		TotalWorkspaces: total,
		NextBatchOffset: req.BatchOffset,
		StartedAt:       time.Now(),
	}
	if err := s.repos.SyncJobRepository.Create(ctx, job); err != nil {
		return nil, err
	}
	s.updateProgress(ctx, job, "")

	if s.events != nil {
		if err := s.events.PublishJobStarted(ctx, job); err != nil {
			s.log.Warnf("failed to publish job started event: %v", err)
		}
	}
	return job, nil
}

func (s *Service) finalStatus(job *models.SyncJob, failedInBatch int) enum.SyncStatus {
	switch {
	case failedInBatch > 0 || len(job.Errors) > 0:
		return enum.SyncCompletedWithErrors
	case job.WorkspacesSkipped > 0:
		return enum.SyncPartial
	default:
		return enum.SyncCompleted
	}
}

// refreshViews recomputes the downstream materialized views after the final
// batch. A stale view is preferred over a stuck job, so failures are logged
// and swallowed.
func (s *Service) refreshViews(ctx context.Context, job *models.SyncJob) {
	if err := s.repos.SenderEmailRepository.RefreshOverviewView(ctx); err != nil {
		s.log.Errorf("failed to refresh sender emails overview: %v", err)
		job.Warnings = append(job.Warnings, fmt.Sprintf("view refresh failed: %v", err))
	}
	if err := s.repos.SenderEmailRepository.RefreshActiveOverviewView(ctx); err != nil {
		s.log.Errorf("failed to refresh active sender emails overview: %v", err)
		job.Warnings = append(job.Warnings, fmt.Sprintf("active view refresh failed: %v", err))
	}
}

// touchProgress writes the live progress projection and refreshes the lock
// heartbeat so staleness detection only fires on genuine crashes.
func (s *Service) touchProgress(ctx context.Context, job *models.SyncJob, currentWorkspace string, outcomes []workspaceOutcome) {
	accounts := 0
	completed := 0
	skipped := 0
	for _, o := range outcomes {
		switch o.outcome {
		case enum.WorkspaceSynced:
			completed++
			accounts += o.accounts
		case enum.WorkspaceSkipped:
			skipped++
		}
	}

	progress := &models.SyncProgress{
		JobID:               job.ID,
		Status:              enum.SyncRunning,
		CurrentWorkspace:    currentWorkspace,
		WorkspacesTotal:     job.TotalWorkspaces,
		WorkspacesCompleted: job.WorkspacesProcessed + completed,
		WorkspacesSkipped:   job.WorkspacesSkipped + skipped,
		AccountsSynced:      job.TotalAccountsSynced + accounts,
	}
	if err := s.repos.SyncProgressRepository.Upsert(ctx, progress); err != nil {
		s.log.Warnf("failed to update sync progress: %v", err)
	}

	if ok, err := s.repos.SyncLockRepository.Heartbeat(ctx, s.cfg.LockName, job.ID); err != nil {
		s.log.Warnf("failed to heartbeat sync lock: %v", err)
	} else if !ok {
		s.log.Warnf("sync lock no longer held by job %s", job.ID)
	}
}

func (s *Service) updateProgress(ctx context.Context, job *models.SyncJob, message string) {
	progress := &models.SyncProgress{
		JobID:               job.ID,
		Status:              job.Status,
		WorkspacesTotal:     job.TotalWorkspaces,
		WorkspacesCompleted: job.WorkspacesProcessed,
		WorkspacesSkipped:   job.WorkspacesSkipped,
		AccountsSynced:      job.TotalAccountsSynced,
		Message:             message,
	}
	if err := s.repos.SyncProgressRepository.Upsert(ctx, progress); err != nil {
		s.log.Warnf("failed to update sync progress: %v", err)
	}
}

// failResult marks the job and progress failed and fills the HTTP-facing
// result. The deferred lock release still runs after this.
func (s *Service) failResult(ctx context.Context, result *interfaces.SyncBatchResult, job *models.SyncJob, start time.Time, err error) *interfaces.SyncBatchResult {
	s.log.Errorf("sync job %s failed: %v", result.JobID, err)

	if job == nil {
		loaded, loadErr := s.repos.SyncJobRepository.GetByID(ctx, result.JobID)
		if loadErr == nil {
			job = loaded
		}
	}
	if job != nil {
		job.Status = enum.SyncFailed
		job.Errors = append(job.Errors, err.Error())
		job.CompletedAt = timePtr(time.Now())
		if updErr := s.repos.SyncJobRepository.Update(ctx, job); updErr != nil {
			s.log.Errorf("failed to mark job failed: %v", updErr)
		}
		s.updateProgress(ctx, job, err.Error())
		s.publishFinished(ctx, job)
	}

	result.Success = false
	result.Status = enum.SyncFailed.String()
	result.Error = err.Error()
	result.DurationMs = time.Since(start).Milliseconds()
	return result
}

func (s *Service) publishFinished(ctx context.Context, job *models.SyncJob) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishJobFinished(ctx, job); err != nil {
		s.log.Warnf("failed to publish job finished event: %v", err)
	}
}

func sliceBatch(workspaces []models.Workspace, offset, size int) []models.Workspace {
	if offset >= len(workspaces) || offset < 0 {
		return nil
	}
	end := offset + size
	if end > len(workspaces) {
		end = len(workspaces)
	}
	return workspaces[offset:end]
}

func timePtr(t time.Time) *time.Time {
	return &t
}
