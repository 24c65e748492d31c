package usecase

import (
	"context"

	"mailpilot-backend/internal/batch/domain"
)

// Classifier produces a classification for one message. Implementations
// never fail; they degrade internally.
type Classifier interface {
	Classify(ctx context.Context, subject, sender, snippet, userID string) *domain.ClassificationResult
}

// Notifier is told when a batch reaches a terminal state.
type Notifier interface {
	BatchFinished(userID string, job *domain.BatchJob)
}

// BatchUsecase is the orchestration surface.
type BatchUsecase interface {
	// SetNotifier attaches an optional terminal-state notifier.
	SetNotifier(n Notifier)
	// CreateBatch validates and records a job, returning its id.
	CreateBatch(userID, operation string, opts domain.BatchOptions) (string, error)
	// ExecuteBatch runs a created job to a terminal state.
	ExecuteBatch(ctx context.Context, batchID string, cred *domain.Credential) (*domain.BatchCounters, error)
	GetBatchStatus(userID, batchID string) (*domain.BatchJob, error)
	ListBatchHistory(userID string, limit int) ([]domain.BatchJob, error)
}
