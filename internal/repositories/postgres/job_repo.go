package postgres

import (
	"context"
	"errors"

	"github.com/yoockh/labourline/internal/models"
	"github.com/yoockh/labourline/internal/utils"
	"gorm.io/gorm"
)

type JobRepository interface {
	Create(ctx context.Context, j *models.Job) error
	GetByID(ctx context.Context, id uint) (*models.Job, error)
	// FindBySkill returns jobs whose type of work or description contains
	// skill (case-insensitive), newest first.
	FindBySkill(ctx context.Context, skill string) ([]models.Job, error)
}

type jobRepo struct {
	db *gorm.DB
}

func NewJobRepo(db *gorm.DB) JobRepository {
	return &jobRepo{db: db}
}

func (r *jobRepo) Create(ctx context.Context, j *models.Job) error {
	return r.db.WithContext(ctx).Create(j).Error
}

func (r *jobRepo) GetByID(ctx context.Context, id uint) (*models.Job, error) {
	var j models.Job
	err := r.db.WithContext(ctx).
		Where("job_id = ?", id).
		Take(&j).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &j, err
}

func (r *jobRepo) FindBySkill(ctx context.Context, skill string) ([]models.Job, error) {
	pattern := likePattern(skill)

	var out []models.Job
	err := r.db.WithContext(ctx).
		Where("LOWER(type_of_work) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern).
		Order("created_at DESC").
		Limit(candidateLimit).
		Find(&out).Error
	return out, err
}
