package repository

import "mailpilot-backend/internal/batch/domain"

type LabelRepository interface {
	// GetByName returns (nil, nil) when no record matches.
	GetByName(userID, name string) (*domain.LabelRecord, error)
	// Upsert creates the record when missing. The returned flag reports
	// whether a new row was inserted.
	Upsert(label *domain.LabelRecord) (created bool, err error)
	ListByUser(userID string) ([]domain.LabelRecord, error)
}
