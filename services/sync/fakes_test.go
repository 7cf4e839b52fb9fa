package sync

import (
	"context"
	"sync"
	"time"

	"github.com/outboundhq/senderstack/config"
	"github.com/outboundhq/senderstack/interfaces"
	"github.com/outboundhq/senderstack/internal/logger"
	"github.com/outboundhq/senderstack/internal/models"
	"github.com/outboundhq/senderstack/internal/repository"
	"github.com/outboundhq/senderstack/internal/utils"
)

func testLogger() logger.Logger {
	l := logger.NewAppLogger(&logger.Config{LogLevel: "error", DevMode: true})
	l.InitLogger()
	return l
}

func testSyncConfig() *config.SyncConfig {
	return &config.SyncConfig{
		LockName:                "sender_email_sync",
		LockStaleMinutes:        20,
		BatchSize:               20,
		PageSize:                100,
		MaxPages:                500,
		UpsertChunkSize:         100,
		WorkspaceTimeoutSeconds: 180,
		BatchTimeLimitSeconds:   600,
		Concurrency:             1,
		ProgressUpdateEvery:     5,
	}
}

type fakeWorkspaceRepo struct {
	workspaces []models.Workspace
	err        error
}

func (f *fakeWorkspaceRepo) GetActiveWorkspaces(ctx context.Context) ([]models.Workspace, error) {
	return f.workspaces, f.err
}

func (f *fakeWorkspaceRepo) GetByName(ctx context.Context, name string) (*models.Workspace, error) {
	for i := range f.workspaces {
		if f.workspaces[i].Name == name {
			return &f.workspaces[i], nil
		}
	}
	return nil, nil
}

func (f *fakeWorkspaceRepo) ListAll(ctx context.Context) ([]models.Workspace, error) {
	return f.workspaces, f.err
}

type accountKey struct {
	accountID   int64
	instance    string
	workspaceID string
}

type pricingCall struct {
	workspaceID string
	domain      string
	provider    string
	reseller    string
	price       float64
	dailyLimit  int
	needsReview bool
}

// fakeSenderEmailRepo keeps rows in memory with the same keying and
// soft-delete semantics as the postgres repository.
type fakeSenderEmailRepo struct {
	mu           sync.Mutex
	rows         map[accountKey]*models.SenderEmail
	upsertErr    error
	pricingCalls []pricingCall
	refreshed    int
	refreshErr   error
}

func newFakeSenderEmailRepo() *fakeSenderEmailRepo {
	return &fakeSenderEmailRepo{rows: map[accountKey]*models.SenderEmail{}}
}

func (f *fakeSenderEmailRepo) keyFor(m *models.SenderEmail) accountKey {
	return accountKey{accountID: m.BisonAccountID, instance: m.BisonInstance, workspaceID: m.WorkspaceID}
}

func (f *fakeSenderEmailRepo) seed(accounts ...models.SenderEmail) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range accounts {
		row := accounts[i]
		f.rows[f.keyFor(&row)] = &row
	}
}

func (f *fakeSenderEmailRepo) UpsertBatch(ctx context.Context, accounts []models.SenderEmail) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range accounts {
		row := accounts[i]
		row.DeletedAt = nil
		f.rows[f.keyFor(&row)] = &row
	}
	return nil
}

func (f *fakeSenderEmailRepo) GetActiveAccountIDs(ctx context.Context, workspaceID, instance string) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for key, row := range f.rows {
		if key.workspaceID == workspaceID && key.instance == instance && row.DeletedAt == nil {
			ids = append(ids, key.accountID)
		}
	}
	return ids, nil
}

func (f *fakeSenderEmailRepo) RestoreAccounts(ctx context.Context, workspaceID, instance string, accountIDs []int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var restored int64
	for _, id := range accountIDs {
		key := accountKey{accountID: id, instance: instance, workspaceID: workspaceID}
		if row, ok := f.rows[key]; ok && row.DeletedAt != nil {
			row.DeletedAt = nil
			restored++
		}
	}
	return restored, nil
}

func (f *fakeSenderEmailRepo) SoftDeleteAccountsNotIn(ctx context.Context, workspaceID, instance string, fetchedIDs []int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fetched := map[int64]struct{}{}
	for _, id := range fetchedIDs {
		fetched[id] = struct{}{}
	}
	now := time.Now()
	var deleted int64
	for key, row := range f.rows {
		if key.workspaceID != workspaceID || key.instance != instance || row.DeletedAt != nil {
			continue
		}
		if _, ok := fetched[key.accountID]; !ok {
			row.DeletedAt = &now
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeSenderEmailRepo) ApplyDomainPricing(ctx context.Context, workspaceID, instance, domain, provider, reseller string, price float64, dailyLimit int, needsReview bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pricingCalls = append(f.pricingCalls, pricingCall{
		workspaceID: workspaceID,
		domain:      domain,
		provider:    provider,
		reseller:    reseller,
		price:       price,
		dailyLimit:  dailyLimit,
		needsReview: needsReview,
	})
	for key, row := range f.rows {
		if key.workspaceID == workspaceID && key.instance == instance &&
			row.Domain == domain && row.Provider == provider && row.Reseller == reseller && row.DeletedAt == nil {
			row.Price = price
			row.PricingNeedsReview = needsReview
			if dailyLimit > 0 {
				row.DailyLimit = dailyLimit
			}
		}
	}
	return nil
}

func (f *fakeSenderEmailRepo) GetBillingRollup(ctx context.Context) ([]interfaces.WorkspaceBillingRollup, error) {
	return nil, nil
}

func (f *fakeSenderEmailRepo) RefreshOverviewView(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed++
	return f.refreshErr
}

func (f *fakeSenderEmailRepo) RefreshActiveOverviewView(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed++
	return f.refreshErr
}

func (f *fakeSenderEmailRepo) activeRow(accountID int64, instance, workspaceID string) *models.SenderEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[accountKey{accountID: accountID, instance: instance, workspaceID: workspaceID}]
	if !ok || row.DeletedAt != nil {
		return nil
	}
	copied := *row
	return &copied
}

func (f *fakeSenderEmailRepo) deletedRow(accountID int64, instance, workspaceID string) *models.SenderEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[accountKey{accountID: accountID, instance: instance, workspaceID: workspaceID}]
	if !ok || row.DeletedAt == nil {
		return nil
	}
	copied := *row
	return &copied
}

type fakeSyncJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*models.SyncJob
}

func newFakeSyncJobRepo() *fakeSyncJobRepo {
	return &fakeSyncJobRepo{jobs: map[string]*models.SyncJob{}}
}

func (f *fakeSyncJobRepo) Create(ctx context.Context, job *models.SyncJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *job
	f.jobs[job.ID] = &copied
	return nil
}

func (f *fakeSyncJobRepo) GetByID(ctx context.Context, id string) (*models.SyncJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, nil
	}
	copied := *job
	return &copied, nil
}

func (f *fakeSyncJobRepo) Update(ctx context.Context, job *models.SyncJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *job
	f.jobs[job.ID] = &copied
	return nil
}

func (f *fakeSyncJobRepo) ListRecent(ctx context.Context, limit int) ([]models.SyncJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var jobs []models.SyncJob
	for _, job := range f.jobs {
		jobs = append(jobs, *job)
	}
	return jobs, nil
}

type fakeSyncProgressRepo struct {
	mu      sync.Mutex
	latest  map[string]*models.SyncProgress
	upserts int
}

func newFakeSyncProgressRepo() *fakeSyncProgressRepo {
	return &fakeSyncProgressRepo{latest: map[string]*models.SyncProgress{}}
}

func (f *fakeSyncProgressRepo) Upsert(ctx context.Context, progress *models.SyncProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *progress
	f.latest[progress.JobID] = &copied
	f.upserts++
	return nil
}

func (f *fakeSyncProgressRepo) GetByJobID(ctx context.Context, jobID string) (*models.SyncProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	progress, ok := f.latest[jobID]
	if !ok {
		return nil, nil
	}
	copied := *progress
	return &copied, nil
}

// fakeSyncLockRepo mirrors the row lock semantics: one holder, re-entrant
// per job id, released only by the holder.
type fakeSyncLockRepo struct {
	mu          sync.Mutex
	holder      string
	acquires    int
	heartbeats  int
	releases    int
	denyAcquire bool
}

func (f *fakeSyncLockRepo) TryAcquire(ctx context.Context, lockName, jobID string, staleThreshold time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.denyAcquire {
		return false, nil
	}
	if f.holder != "" && f.holder != jobID {
		return false, nil
	}
	f.holder = jobID
	f.acquires++
	return true, nil
}

func (f *fakeSyncLockRepo) Heartbeat(ctx context.Context, lockName, jobID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heartbeats++
	return f.holder == jobID, nil
}

func (f *fakeSyncLockRepo) Release(ctx context.Context, lockName, jobID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases++
	if f.holder != jobID {
		return false, nil
	}
	f.holder = ""
	return true, nil
}

func (f *fakeSyncLockRepo) currentHolder() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.holder
}

// fakeBisonClient serves canned pages for whichever workspace was selected
// last, recording switch calls the way the shared-credential client would.
type fakeBisonClient struct {
	mu               sync.Mutex
	pagesByWorkspace map[int][][]interfaces.BisonSenderEmail
	currentWorkspace int
	switchCalls      []int
	switchErrFor     map[int]error
	listErr          error
	listCalls        int
}

func (f *fakeBisonClient) SwitchWorkspace(ctx context.Context, workspaceID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.switchCalls = append(f.switchCalls, workspaceID)
	if err := f.switchErrFor[workspaceID]; err != nil {
		return err
	}
	f.currentWorkspace = workspaceID
	return nil
}

func (f *fakeBisonClient) ListSenderEmails(ctx context.Context, page, perPage int) (*interfaces.BisonSenderEmailPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}

	pages := f.pagesByWorkspace[f.currentWorkspace]
	result := &interfaces.BisonSenderEmailPage{
		Meta: interfaces.BisonPageMeta{CurrentPage: page, LastPage: len(pages), PerPage: perPage},
	}
	if page >= 1 && page <= len(pages) {
		result.Data = pages[page-1]
	}
	if page < len(pages) {
		next := "next"
		result.Links.Next = &next
	}
	return result, nil
}

type fakeBisonFactory struct {
	client   *fakeBisonClient
	instance string
}

func (f *fakeBisonFactory) ClientForAPIKey(apiKey string) interfaces.BisonClient {
	return f.client
}

func (f *fakeBisonFactory) Instance() string {
	if f.instance == "" {
		return "bison.test"
	}
	return f.instance
}

type syncFixture struct {
	service      *Service
	workspaces   *fakeWorkspaceRepo
	senderEmails *fakeSenderEmailRepo
	jobs         *fakeSyncJobRepo
	progress     *fakeSyncProgressRepo
	lock         *fakeSyncLockRepo
	bison        *fakeBisonFactory
}

func newSyncFixture(cfg *config.SyncConfig) *syncFixture {
	if cfg == nil {
		cfg = testSyncConfig()
	}
	fix := &syncFixture{
		workspaces:   &fakeWorkspaceRepo{},
		senderEmails: newFakeSenderEmailRepo(),
		jobs:         newFakeSyncJobRepo(),
		progress:     newFakeSyncProgressRepo(),
		lock:         &fakeSyncLockRepo{},
		bison:        &fakeBisonFactory{client: &fakeBisonClient{pagesByWorkspace: map[int][][]interfaces.BisonSenderEmail{}}},
	}
	repos := &repository.Repositories{
		WorkspaceRepository:    fix.workspaces,
		SenderEmailRepository:  fix.senderEmails,
		SyncJobRepository:      fix.jobs,
		SyncProgressRepository: fix.progress,
		SyncLockRepository:     fix.lock,
	}
	fix.service = NewSyncService(cfg, testLogger(), repos, fix.bison, nil)
	// Chaining runs inline so tests observe the full run synchronously.
	fix.service.chain = func(req interfaces.SyncBatchRequest) {
		fix.service.RunBatch(context.Background(), req)
	}
	return fix
}

func sharedWorkspace(id string, name string, bisonID int) models.Workspace {
	return models.Workspace{ID: id, Name: name, BisonWorkspaceID: bisonID, Active: true}
}

func dedicatedWorkspace(id string, name string, bisonID int) models.Workspace {
	ws := sharedWorkspace(id, name, bisonID)
	ws.APIKey = utils.StringPtr("key-" + name)
	return ws
}

func bisonAccount(id int64, email string, tags ...string) interfaces.BisonSenderEmail {
	acct := interfaces.BisonSenderEmail{ID: id, Email: email, Status: "connected"}
	for i, name := range tags {
		acct.Tags = append(acct.Tags, interfaces.BisonTag{ID: int64(i + 1), Name: name})
	}
	return acct
}
