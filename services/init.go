package services

import (
	"github.com/outboundhq/senderstack/config"
	"github.com/outboundhq/senderstack/interfaces"
	"github.com/outboundhq/senderstack/internal/logger"
	"github.com/outboundhq/senderstack/internal/repository"
	"github.com/outboundhq/senderstack/services/bison"
	"github.com/outboundhq/senderstack/services/events"
	"github.com/outboundhq/senderstack/services/reports"
	"github.com/outboundhq/senderstack/services/storage"
	"github.com/outboundhq/senderstack/services/sync"
)

type Services struct {
	BisonClientFactory   interfaces.BisonClientFactory
	EventPublisher       interfaces.SyncEventPublisher
	StorageService       interfaces.StorageService
	SyncService          interfaces.SyncService
	BillingReportService *reports.BillingReportService
}

func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	bisonFactory, err := bison.NewClientFactory(cfg.BisonConfig)
	if err != nil {
		return nil, err
	}

	publisher, err := events.NewRabbitMQPublisher(cfg.AppConfig.RabbitMQURL, log, nil)
	if err != nil {
		return nil, err
	}

	var storageService interfaces.StorageService
	if cfg.R2StorageConfig.AccountID != "" {
		storageService = storage.NewR2StorageService(
			cfg.R2StorageConfig.AccountID,
			cfg.R2StorageConfig.AccessKeyID,
			cfg.R2StorageConfig.AccessKeySecret,
			cfg.R2StorageConfig.ReportsBucket,
		)
	}

	services := Services{
		BisonClientFactory:   bisonFactory,
		EventPublisher:       publisher,
		StorageService:       storageService,
		SyncService:          sync.NewSyncService(cfg.SyncConfig, log, repos, bisonFactory, publisher),
		BillingReportService: reports.NewBillingReportService(log, repos.SenderEmailRepository, storageService),
	}

	return &services, nil
}
