package repository

import (
	"time"

	"mailpilot-backend/internal/batch/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type rateLimitRepository struct {
	db *gorm.DB
}

func NewRateLimitRepository(db *gorm.DB) RateLimitRepository {
	return &rateLimitRepository{db: db}
}

func (r *rateLimitRepository) CountSince(userID, tag string, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&domain.RateLimitEntry{}).
		Where("user_id = ? AND tag = ? AND called_at >= ?", userID, tag, since).
		Count(&count).Error
	return count, err
}

func (r *rateLimitRepository) Record(userID, tag string, at time.Time) error {
	entry := domain.RateLimitEntry{
		ID:       uuid.New().String(),
		UserID:   userID,
		Tag:      tag,
		CalledAt: at,
	}
	return r.db.Create(&entry).Error
}

func (r *rateLimitRepository) PurgeBefore(cutoff time.Time) error {
	return r.db.Where("called_at < ?", cutoff).Delete(&domain.RateLimitEntry{}).Error
}
