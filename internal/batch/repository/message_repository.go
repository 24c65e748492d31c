package repository

import (
	"time"

	"mailpilot-backend/internal/batch/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Upsert(msg *domain.MessageRecord) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	now := time.Now()
	msg.CreatedAt = now
	msg.UpdatedAt = now

	// Re-fetching a message refreshes its metadata but must not reset
	// the processed/synced flags or a stored analysis.
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "provider_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"subject", "sender", "recipient", "snippet", "timestamp", "updated_at",
		}),
	}).Create(msg).Error
}

func (r *messageRepository) Update(msg *domain.MessageRecord) error {
	msg.UpdatedAt = time.Now()
	return r.db.Save(msg).Error
}

func (r *messageRepository) ListUnprocessed(userID string, limit int) ([]domain.MessageRecord, error) {
	var msgs []domain.MessageRecord
	q := r.db.Where("user_id = ? AND processed = ?", userID, false).Order("timestamp DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *messageRepository) ListUnsynced(userID string, limit int) ([]domain.MessageRecord, error) {
	var msgs []domain.MessageRecord
	q := r.db.Where("user_id = ? AND processed = ? AND synced = ?", userID, true, false).Order("timestamp DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *messageRepository) DistinctSuggestedLabels(userID string, limit int) ([]string, error) {
	var labels []string
	q := r.db.Model(&domain.MessageRecord{}).
		Where("user_id = ? AND processed = ? AND analysis_suggested_label <> ''", userID, true).
		Distinct("analysis_suggested_label")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("analysis_suggested_label", &labels).Error; err != nil {
		return nil, err
	}
	return labels, nil
}
