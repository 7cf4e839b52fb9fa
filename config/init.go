package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/outboundhq/senderstack/internal/logger"
	"github.com/outboundhq/senderstack/internal/tracing"
	"github.com/outboundhq/senderstack/services/bison"
)

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:       &AppConfig{},
		Logger:          &logger.Config{},
		Tracing:         &tracing.JaegerConfig{},
		DatabaseConfig:  &DatabaseConfig{},
		BisonConfig:     &bison.Config{},
		SyncConfig:      &SyncConfig{},
		R2StorageConfig: &R2StorageConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		log.Fatalf("Error loading senderstack config: %v", err)
	}

	return config, nil
}
