package config

import (
	"github.com/outboundhq/senderstack/internal/logger"
	"github.com/outboundhq/senderstack/internal/tracing"
	"github.com/outboundhq/senderstack/services/bison"
)

type AppConfig struct {
	APIPort     string `env:"PORT" envDefault:"11333"`
	APIKey      string `env:"API_KEY,required"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
}

type DatabaseConfig struct {
	Host            string `env:"SENDERSTACK_POSTGRES_HOST,required"`
	Port            string `env:"SENDERSTACK_POSTGRES_PORT,required"`
	User            string `env:"SENDERSTACK_POSTGRES_USER,required"`
	DBName          string `env:"SENDERSTACK_POSTGRES_DB_NAME,required"`
	Password        string `env:"SENDERSTACK_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"SENDERSTACK_POSTGRES_DB_MAX_CONN"`
	MaxIdleConn     int    `env:"SENDERSTACK_POSTGRES_DB_MAX_IDLE_CONN"`
	ConnMaxLifetime int    `env:"SENDERSTACK_POSTGRES_DB_CONN_MAX_LIFETIME"`
	LogLevel        string `env:"SENDERSTACK_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"SENDERSTACK_POSTGRES_SSL_MODE" envDefault:"require"`
}

type SyncConfig struct {
	LockName                string `env:"SYNC_LOCK_NAME" envDefault:"sender_email_sync"`
	// Must comfortably exceed ProgressUpdateEvery * WorkspaceTimeoutSeconds,
	// the widest possible gap between heartbeats of a live run.
	LockStaleMinutes        int    `env:"SYNC_LOCK_STALE_MINUTES" envDefault:"20"`
	BatchSize               int    `env:"SYNC_BATCH_SIZE" envDefault:"20"`
	PageSize                int    `env:"SYNC_PAGE_SIZE" envDefault:"100"`
	MaxPages                int    `env:"SYNC_MAX_PAGES" envDefault:"500"`
	UpsertChunkSize         int    `env:"SYNC_UPSERT_CHUNK_SIZE" envDefault:"100"`
	WorkspaceTimeoutSeconds int    `env:"SYNC_WORKSPACE_TIMEOUT_SECONDS" envDefault:"180"`
	BatchTimeLimitSeconds   int    `env:"SYNC_BATCH_TIME_LIMIT_SECONDS" envDefault:"600"`
	Concurrency             int    `env:"SYNC_CONCURRENCY" envDefault:"1"`
	ProgressUpdateEvery     int    `env:"SYNC_PROGRESS_UPDATE_EVERY" envDefault:"5"`
}

type R2StorageConfig struct {
	AccountID       string `env:"CLOUDFLARE_R2_ACCOUNT_ID"`
	AccessKeyID     string `env:"CLOUDFLARE_R2_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"CLOUDFLARE_R2_ACCESS_KEY_SECRET"`
	ReportsBucket   string `env:"BUCKET_NAME_REPORTS" envDefault:"senderstack-reports"`
}

type Config struct {
	AppConfig       *AppConfig
	Logger          *logger.Config
	Tracing         *tracing.JaegerConfig
	DatabaseConfig  *DatabaseConfig
	BisonConfig     *bison.Config
	SyncConfig      *SyncConfig
	R2StorageConfig *R2StorageConfig
}
