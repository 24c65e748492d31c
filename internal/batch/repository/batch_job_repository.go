package repository

import (
	"errors"
	"time"

	"mailpilot-backend/internal/batch/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type batchJobRepository struct {
	db *gorm.DB
}

func NewBatchJobRepository(db *gorm.DB) BatchJobRepository {
	return &batchJobRepository{db: db}
}

func (r *batchJobRepository) Create(job *domain.BatchJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	return r.db.Create(job).Error
}

func (r *batchJobRepository) Update(job *domain.BatchJob) error {
	job.UpdatedAt = time.Now()
	return r.db.Save(job).Error
}

func (r *batchJobRepository) UpdateFields(id string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	return r.db.Model(&domain.BatchJob{}).Where("id = ?", id).Updates(fields).Error
}

func (r *batchJobRepository) GetByID(id string) (*domain.BatchJob, error) {
	var job domain.BatchJob
	err := r.db.Where("id = ?", id).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (r *batchJobRepository) ListByUser(userID string, limit int) ([]domain.BatchJob, error) {
	var jobs []domain.BatchJob
	q := r.db.Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}
