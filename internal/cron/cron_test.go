package cron

import (
	"os"
	"testing"

	cronv3 "github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"k8s.io/client-go/kubernetes"

	"github.com/outboundhq/senderstack/config"
	"github.com/outboundhq/senderstack/internal/logger"
)

type mockKubernetesInterface struct {
	kubernetes.Interface
	mock.Mock
}

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func TestNewCronManager(t *testing.T) {
	cfg := &config.Config{
		Logger: &logger.Config{
			LogLevel: "info",
		},
	}
	log := getLogger()
	k8s := &mockKubernetesInterface{}

	cm := NewCronManager(cfg, log, k8s, nil, nil)

	assert.NotNil(t, cm)
	assert.Equal(t, cfg, cm.cfg)
	assert.Equal(t, log, cm.log)
	assert.Equal(t, k8s, cm.k8s)
	assert.NotNil(t, cm.jobIDs)
}

func TestCronManager_RegisterJobs(t *testing.T) {
	os.Setenv("CRON_SCHEDULE_SENDER_EMAIL_SYNC", "0 */30 * * * *")
	os.Setenv("CRON_SCHEDULE_BILLING_REPORT", "0 0 2 * * *")
	defer os.Unsetenv("CRON_SCHEDULE_SENDER_EMAIL_SYNC")
	defer os.Unsetenv("CRON_SCHEDULE_BILLING_REPORT")

	cfg := &config.Config{
		Logger: &logger.Config{
			LogLevel: "info",
		},
	}
	log := getLogger()
	k8s := &mockKubernetesInterface{}
	cm := NewCronManager(cfg, log, k8s, nil, nil)

	mockCron := cronv3.New(cronv3.WithSeconds())

	syncId, err := mockCron.AddFunc("0 */30 * * * *", func() {})
	assert.NoError(t, err)
	cm.jobIDs["sender_email_sync"] = syncId

	billingId, err := mockCron.AddFunc("0 0 2 * * *", func() {})
	assert.NoError(t, err)
	cm.jobIDs["billing_report"] = billingId

	cm.cron = mockCron

	assert.NotNil(t, cm.cron)
	assert.Equal(t, 2, len(cm.jobIDs))
}

func TestCronManager_Stop(t *testing.T) {
	cfg := &config.Config{
		Logger: &logger.Config{
			LogLevel: "info",
		},
	}
	log := getLogger()
	k8s := &mockKubernetesInterface{}
	cm := NewCronManager(cfg, log, k8s, nil, nil)

	mockCron := cronv3.New()
	mockCron.Start()
	cm.cron = mockCron

	cm.Stop()

	select {
	case <-cm.stopCh:
		// Channel is closed as expected
	default:
		t.Error("Stop channel was not closed")
	}
}
