package repository

import (
	"errors"
	"time"

	"mailpilot-backend/internal/batch/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type labelRepository struct {
	db *gorm.DB
}

func NewLabelRepository(db *gorm.DB) LabelRepository {
	return &labelRepository{db: db}
}

func (r *labelRepository) GetByName(userID, name string) (*domain.LabelRecord, error) {
	var label domain.LabelRecord
	err := r.db.Where("user_id = ? AND name = ?", userID, name).First(&label).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &label, nil
}

func (r *labelRepository) Upsert(label *domain.LabelRecord) (bool, error) {
	now := time.Now()
	attrs := domain.LabelRecord{
		ID:              uuid.New().String(),
		ProviderLabelID: label.ProviderLabelID,
		IsAuto:          label.IsAuto,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var existing domain.LabelRecord
	result := r.db.Where(domain.LabelRecord{UserID: label.UserID, Name: label.Name}).
		Attrs(attrs).
		FirstOrCreate(&existing)
	if result.Error != nil {
		return false, result.Error
	}

	created := result.RowsAffected > 0

	// A reconciled label can learn its provider id later.
	if !created && label.ProviderLabelID != "" && existing.ProviderLabelID != label.ProviderLabelID {
		existing.ProviderLabelID = label.ProviderLabelID
		existing.UpdatedAt = time.Now()
		if err := r.db.Save(&existing).Error; err != nil {
			return false, err
		}
	}

	*label = existing
	return created, nil
}

func (r *labelRepository) ListByUser(userID string) ([]domain.LabelRecord, error) {
	var labels []domain.LabelRecord
	if err := r.db.Where("user_id = ?", userID).Order("name ASC").Find(&labels).Error; err != nil {
		return nil, err
	}
	return labels, nil
}
