package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/yoockh/labourline/internal/models"
	"github.com/yoockh/labourline/internal/utils"
	"gorm.io/gorm"
)

// candidateLimit bounds how many rows a skill search may return.
const candidateLimit = 200

type WorkerRepository interface {
	Create(ctx context.Context, w *models.Worker) error
	GetByID(ctx context.Context, id uint) (*models.Worker, error)
	// FindBySkill returns workers whose expertise or bio contains skill
	// (case-insensitive), newest first.
	FindBySkill(ctx context.Context, skill string) ([]models.Worker, error)
}

type workerRepo struct {
	db *gorm.DB
}

func NewWorkerRepo(db *gorm.DB) WorkerRepository {
	return &workerRepo{db: db}
}

func (r *workerRepo) Create(ctx context.Context, w *models.Worker) error {
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *workerRepo) GetByID(ctx context.Context, id uint) (*models.Worker, error) {
	var w models.Worker
	err := r.db.WithContext(ctx).
		Where("worker_id = ?", id).
		Take(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &w, err
}

func (r *workerRepo) FindBySkill(ctx context.Context, skill string) ([]models.Worker, error) {
	pattern := likePattern(skill)

	var out []models.Worker
	err := r.db.WithContext(ctx).
		Where("LOWER(work_expertise) LIKE ? OR LOWER(bio) LIKE ?", pattern, pattern).
		Order("created_at DESC").
		Limit(candidateLimit).
		Find(&out).Error
	return out, err
}

// likePattern builds a lower-cased substring pattern with LIKE wildcards escaped.
func likePattern(q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	q = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(q)
	return "%" + q + "%"
}
