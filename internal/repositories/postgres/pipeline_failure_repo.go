package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/labourline/internal/models"
	"github.com/yoockh/labourline/internal/utils"
	"gorm.io/gorm"
)

type PipelineFailureRepository interface {
	Create(ctx context.Context, f *models.PipelineFailure) error
	GetByID(ctx context.Context, id uint) (*models.PipelineFailure, error)
	ListUnresolved(ctx context.Context, limit int) ([]models.PipelineFailure, error)
	// MarkResolved flips an unresolved row to resolved. A row that is missing
	// or already resolved returns utils.ErrNotFound, so it doubles as a claim.
	MarkResolved(ctx context.Context, id uint, at time.Time) error
	Reopen(ctx context.Context, id uint) error
}

type pipelineFailureRepo struct {
	db *gorm.DB
}

func NewPipelineFailureRepo(db *gorm.DB) PipelineFailureRepository {
	return &pipelineFailureRepo{db: db}
}

func (r *pipelineFailureRepo) Create(ctx context.Context, f *models.PipelineFailure) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *pipelineFailureRepo) GetByID(ctx context.Context, id uint) (*models.PipelineFailure, error) {
	var f models.PipelineFailure
	err := r.db.WithContext(ctx).
		Where("failure_id = ?", id).
		Take(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &f, err
}

func (r *pipelineFailureRepo) ListUnresolved(ctx context.Context, limit int) ([]models.PipelineFailure, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []models.PipelineFailure
	err := r.db.WithContext(ctx).
		Where("resolved = ?", false).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *pipelineFailureRepo) MarkResolved(ctx context.Context, id uint, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.PipelineFailure{}).
		Where("failure_id = ? AND resolved = ?", id, false).
		Updates(map[string]any{"resolved": true, "resolved_at": at.UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *pipelineFailureRepo) Reopen(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.PipelineFailure{}).
		Where("failure_id = ?", id).
		Updates(map[string]any{"resolved": false, "resolved_at": nil}).Error
}
