package cron

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/caarlos0/env/v6"
	cronv3 "github.com/robfig/cron/v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"github.com/outboundhq/senderstack/config"
	"github.com/outboundhq/senderstack/interfaces"
	cron_config "github.com/outboundhq/senderstack/internal/cron/config"
	"github.com/outboundhq/senderstack/internal/logger"
	"github.com/outboundhq/senderstack/internal/tracing"
	"github.com/outboundhq/senderstack/services/reports"
)

// CONSTANTS
const (
	// GroupSenderstack is the group for senderstack related jobs
	GroupSenderstack = "senderstack"

	// LeaseDuration is how long a lease lasts before needing renewal
	LeaseDuration = 15 * time.Second
	// RenewDeadline is how long a leader has to renew its lease
	RenewDeadline = 10 * time.Second
	// RetryPeriod is how long to wait between leadership attempts
	RetryPeriod = 2 * time.Second
)

// LOCK MANAGEMENT
var jobLocks = struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}{
	locks: map[string]*sync.Mutex{
		GroupSenderstack: new(sync.Mutex),
	},
}

type CronManager struct {
	cfg     *config.Config
	log     logger.Logger
	cron    *cronv3.Cron
	k8s     kubernetes.Interface
	stopCh  chan struct{}
	jobIDs  map[string]cronv3.EntryID
	sync    interfaces.SyncService
	billing *reports.BillingReportService
}

func NewCronManager(cfg *config.Config, log logger.Logger, k8s kubernetes.Interface, syncService interfaces.SyncService, billing *reports.BillingReportService) *CronManager {
	return &CronManager{
		cfg:     cfg,
		log:     log,
		k8s:     k8s,
		stopCh:  make(chan struct{}),
		jobIDs:  make(map[string]cronv3.EntryID),
		sync:    syncService,
		billing: billing,
	}
}

// Start initializes and starts the cron manager with leader election
// If k8s is nil, it will start in local mode without leader election
func (cm *CronManager) Start(podName, namespace string) error {
	if cm.k8s == nil || os.Getenv("LOCAL_DEV") == "true" {
		cm.log.Info("Starting cron manager in local mode")
		cm.StartCron()
		return nil
	}

	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      "senderstack-cron-leader",
			Namespace: namespace,
		},
		Client: cm.k8s.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: podName,
		},
	}

	// Channel to track leader election errors
	errCh := make(chan error, 1)

	go func() {
		le, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
			Lock:            lock,
			ReleaseOnCancel: true,
			LeaseDuration:   LeaseDuration,
			RenewDeadline:   RenewDeadline,
			RetryPeriod:     RetryPeriod,
			Callbacks: leaderelection.LeaderCallbacks{
				OnStartedLeading: func(ctx context.Context) {
					cm.StartCron()
				},
				OnStoppedLeading: func() {
					cm.log.Info("Leader lost - stopping crons")
					cm.Stop()
				},
				OnNewLeader: func(identity string) {
					cm.log.Infof("New leader elected: %s", identity)
				},
			},
		})
		if err != nil {
			errCh <- err
			return
		}

		ctx := context.Background()
		le.Run(ctx)
	}()

	// Wait briefly to see if leader election fails immediately
	select {
	case err := <-errCh:
		cm.log.Warnf("Leader election failed, falling back to local mode: %v", err)
		cm.StartCron()
	case <-time.After(5 * time.Second):
		// Leader election seems to be working, continue normally
	}

	return nil
}

// Stop gracefully stops the cron manager
func (cm *CronManager) Stop() {
	if cm.cron != nil {
		cm.log.Info("Stopping cron manager")
		ctx := cm.cron.Stop()
		// Wait for jobs to finish
		<-ctx.Done()
	}
	close(cm.stopCh)
}

// registerJobs adds all cron jobs to the scheduler
func (cm *CronManager) registerJobs(c *cronv3.Cron) {
	var cronConfig cron_config.Config
	if err := env.Parse(&cronConfig); err != nil {
		cm.log.Fatalf("Failed to parse cron config from environment: %v", err)
	}

	if cronConfig.CronScheduleHeartbeat != "" {
		podName := os.Getenv("POD_NAME")
		if podName == "" {
			podName = "local"
		}
		id, err := c.AddFunc(cronConfig.CronScheduleHeartbeat, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.log.Infof("Cron heartbeat from pod: %s", podName)
		})
		if err != nil {
			cm.log.Fatalf("Could not add heartbeat cron job: %v", err)
		}
		cm.jobIDs["heartbeat"] = id
		cm.log.Infof("Registered heartbeat job with schedule: %s", cronConfig.CronScheduleHeartbeat)
	}

	if cronConfig.CronScheduleSenderEmailSync != "" {
		id, err := c.AddFunc(cronConfig.CronScheduleSenderEmailSync, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			jobLocks.locks[GroupSenderstack].Lock()
			defer jobLocks.locks[GroupSenderstack].Unlock()
			cm.runSenderEmailSync()
		})
		if err != nil {
			cm.log.Fatalf("Could not add sender email sync cron job: %v", err)
		}
		cm.jobIDs["sender_email_sync"] = id
		cm.log.Infof("Registered sender email sync job with schedule: %s", cronConfig.CronScheduleSenderEmailSync)
	}

	if cronConfig.CronScheduleBillingReport != "" {
		id, err := c.AddFunc(cronConfig.CronScheduleBillingReport, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			jobLocks.locks[GroupSenderstack].Lock()
			defer jobLocks.locks[GroupSenderstack].Unlock()
			cm.runBillingReport()
		})
		if err != nil {
			cm.log.Fatalf("Could not add billing report cron job: %v", err)
		}
		cm.jobIDs["billing_report"] = id
		cm.log.Infof("Registered billing report job with schedule: %s", cronConfig.CronScheduleBillingReport)
	}
}

// StartCron initializes and starts the cron scheduler
func (cm *CronManager) StartCron() {
	cm.log.Info("Starting cron manager")
	cronOptions := []cronv3.Option{
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger), // Skip if still running
			cronv3.Recover(cronv3.DefaultLogger),            // Default recovery as backup
		),
	}
	c := cronv3.New(cronOptions...)
	cm.registerJobs(c)
	c.Start()
	cm.cron = c
}

func (cm *CronManager) runSenderEmailSync() {
	cm.log.Info("Running scheduled sender email sync")

	ctx := context.Background()

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.runSenderEmailSync")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	result := cm.sync.Run(ctx, interfaces.SyncBatchRequest{})
	if !result.Success {
		cm.log.Errorf("Scheduled sync failed: %s", result.Error)
		return
	}

	cm.log.Infof("Scheduled sync finished: job=%s status=%s accounts=%d", result.JobID, result.Status, result.TotalAccountsSynced)
}

func (cm *CronManager) runBillingReport() {
	cm.log.Info("Running scheduled billing report export")

	ctx := context.Background()

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.runBillingReport")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	key, err := cm.billing.Generate(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("Failed to generate billing report: %v", err)
		return
	}

	cm.log.Infof("Billing report exported: %s", key)
}
