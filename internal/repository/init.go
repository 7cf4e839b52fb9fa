package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/outboundhq/senderstack/interfaces"
	"github.com/outboundhq/senderstack/internal/database"
	"github.com/outboundhq/senderstack/internal/models"
)

type Repositories struct {
	WorkspaceRepository    interfaces.WorkspaceRepository
	SenderEmailRepository  interfaces.SenderEmailRepository
	SyncJobRepository      interfaces.SyncJobRepository
	SyncProgressRepository interfaces.SyncProgressRepository
	SyncLockRepository     interfaces.SyncLockRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		WorkspaceRepository:    NewWorkspaceRepository(db),
		SenderEmailRepository:  NewSenderEmailRepository(db),
		SyncJobRepository:      NewSyncJobRepository(db),
		SyncProgressRepository: NewSyncProgressRepository(db),
		SyncLockRepository:     NewSyncLockRepository(db),
	}
}

func MigrateDB(dbConfig *database.DatabaseConfig, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxOpenConns(5)

	err = db.AutoMigrate(
		&models.Workspace{},
		&models.SenderEmail{},
		&models.SyncJob{},
		&models.SyncProgress{},
		&models.SyncLock{},
	)

	sqlDB.Close()

	sqlDB, _ = db.DB()
	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConn)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConn)
	sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)

	return err
}
