package main

import (
	"github.com/yoockh/labourline/config"
	"github.com/yoockh/labourline/internal/logger"
)

func runMigrate() error {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Error("invalid configuration")
		return err
	}

	if err := config.InitPostgres(cfg.PostgresURI, log); err != nil {
		log.WithError(err).Error("PostgreSQL init error")
		return err
	}
	if err := config.AutoMigrate(); err != nil {
		log.WithError(err).Error("migration failed")
		return err
	}
	log.Info("PostgreSQL tables migrated")

	if cfg.MongoURI != "" {
		if err := config.InitMongo(cfg); err != nil {
			log.WithError(err).Error("MongoDB init error")
			return err
		}
		if err := config.EnsureMongoIndexes(cfg.MongoDB); err != nil {
			log.WithError(err).Error("MongoDB index setup failed")
			return err
		}
		log.Info("MongoDB indexes ensured")
	}
	return nil
}
