package repository

import "mailpilot-backend/internal/batch/domain"

type MessageRepository interface {
	// Upsert inserts the record or refreshes its metadata when the
	// (user, provider id) pair already exists.
	Upsert(msg *domain.MessageRecord) error
	Update(msg *domain.MessageRecord) error
	ListUnprocessed(userID string, limit int) ([]domain.MessageRecord, error)
	ListUnsynced(userID string, limit int) ([]domain.MessageRecord, error)
	// DistinctSuggestedLabels returns the non-empty suggested labels of
	// processed messages, deduplicated.
	DistinctSuggestedLabels(userID string, limit int) ([]string, error)
}
