package config

import (
	"errors"

	"github.com/yoockh/labourline/internal/models"
)

// AutoMigrate creates or updates the relational tables.
func AutoMigrate() error {
	if PostgresDB == nil {
		return errors.New("PostgresDB is nil; call InitPostgres() first")
	}
	return PostgresDB.AutoMigrate(
		&models.Worker{},
		&models.Job{},
		&models.CallLog{},
		&models.PipelineFailure{},
	)
}
