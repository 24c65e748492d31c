package repository

import "mailpilot-backend/internal/batch/domain"

type BatchJobRepository interface {
	Create(job *domain.BatchJob) error
	Update(job *domain.BatchJob) error
	// UpdateFields applies a partial update to one job row.
	UpdateFields(id string, fields map[string]interface{}) error
	// GetByID returns (nil, nil) when no job matches.
	GetByID(id string) (*domain.BatchJob, error)
	ListByUser(userID string, limit int) ([]domain.BatchJob, error)
}
