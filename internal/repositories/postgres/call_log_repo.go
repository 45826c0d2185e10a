package postgres

import (
	"context"

	"github.com/yoockh/labourline/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CallLogRepository interface {
	// Save inserts the log. A later save for the same call id only updates the
	// status, so a replayed finalization keeps the original duration.
	Save(ctx context.Context, l *models.CallLog) error
}

type callLogRepo struct {
	db *gorm.DB
}

func NewCallLogRepo(db *gorm.DB) CallLogRepository {
	return &callLogRepo{db: db}
}

func (r *callLogRepo) Save(ctx context.Context, l *models.CallLog) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "call_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status"}),
		}).
		Create(l).Error
}
