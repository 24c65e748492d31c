package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"mailpilot-backend/internal/batch/domain"
	"mailpilot-backend/internal/batch/repository"
)

const (
	defaultBatchSize = 50
	batchChunkSize   = 5
)

// operationCeilings caps batchSize per operation.
var operationCeilings = map[domain.BatchOperation]int{
	domain.OperationFetchEmails:    500,
	domain.OperationAnalyzeEmails:  200,
	domain.OperationCreateLabels:   100,
	domain.OperationAssignLabels:   200,
	domain.OperationOrganizeLabels: 100,
	domain.OperationFullProcess:    200,
}

type batchUsecase struct {
	jobs       repository.BatchJobRepository
	messages   repository.MessageRepository
	provider   domain.MailProvider
	guard      *CredentialGuard
	resolver   *LabelResolver
	labels     repository.LabelRepository
	classifier Classifier
	notifier   Notifier
	chunkDelay time.Duration
}

func NewBatchUsecase(
	jobs repository.BatchJobRepository,
	messages repository.MessageRepository,
	labels repository.LabelRepository,
	provider domain.MailProvider,
	guard *CredentialGuard,
	resolver *LabelResolver,
	classifier Classifier,
	chunkDelay time.Duration,
) BatchUsecase {
	return &batchUsecase{
		jobs:       jobs,
		messages:   messages,
		labels:     labels,
		provider:   provider,
		guard:      guard,
		resolver:   resolver,
		classifier: classifier,
		chunkDelay: chunkDelay,
	}
}

// SetNotifier attaches an optional terminal-state notifier.
func (u *batchUsecase) SetNotifier(n Notifier) {
	u.notifier = n
}

func (u *batchUsecase) CreateBatch(userID, operation string, opts domain.BatchOptions) (string, error) {
	op, ok := domain.ParseOperation(operation)
	if !ok {
		return "", domain.NewValidationError("operation", fmt.Sprintf("unknown operation %q", operation))
	}

	if opts.BatchSize == 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.BatchSize < 1 {
		return "", domain.NewValidationError("batchSize", "must be at least 1")
	}
	if ceiling := operationCeilings[op]; opts.BatchSize > ceiling {
		return "", domain.NewValidationError("batchSize", fmt.Sprintf("must not exceed %d for %s", ceiling, op))
	}
	if opts.Limit < 0 {
		return "", domain.NewValidationError("limit", "must not be negative")
	}

	job := &domain.BatchJob{
		UserID:    userID,
		Operation: op,
		Options:   opts,
		Status:    domain.StatusCreated,
		Errors:    domain.StringArray{},
	}
	if err := u.jobs.Create(job); err != nil {
		return "", fmt.Errorf("failed to create batch job: %w", err)
	}

	log.Printf("[BatchOrchestrator] Created batch %s (%s) for user %s", job.ID, op, userID)
	return job.ID, nil
}

func (u *batchUsecase) ExecuteBatch(ctx context.Context, batchID string, cred *domain.Credential) (*domain.BatchCounters, error) {
	job, err := u.jobs.GetByID(batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch job: %w", err)
	}
	if job == nil {
		return nil, domain.ErrJobNotFound
	}
	if job.Status != domain.StatusCreated {
		return nil, domain.NewValidationError("status", fmt.Sprintf("batch is %s, only created batches can be executed", job.Status))
	}

	now := time.Now()
	job.Status = domain.StatusRunning
	job.StartTime = &now
	if err := u.jobs.UpdateFields(job.ID, map[string]interface{}{
		"status":     domain.StatusRunning,
		"start_time": now,
	}); err != nil {
		return nil, fmt.Errorf("failed to mark batch running: %w", err)
	}

	log.Printf("[BatchOrchestrator] Executing batch %s (%s)", job.ID, job.Operation)

	runErr := u.dispatch(ctx, job, cred)

	end := time.Now()
	job.EndTime = &end
	if runErr != nil {
		job.Status = domain.StatusFailed
		job.Errors = append(job.Errors, runErr.Error())
	} else {
		job.Status = domain.StatusCompleted
	}

	if err := u.jobs.Update(job); err != nil {
		log.Printf("[BatchOrchestrator] Failed to persist final state of batch %s: %v", job.ID, err)
	}

	if u.notifier != nil {
		u.notifier.BatchFinished(job.UserID, job)
	}

	if runErr != nil {
		log.Printf("[BatchOrchestrator] Batch %s failed: %v", job.ID, runErr)
		return &job.Counters, runErr
	}

	log.Printf("[BatchOrchestrator] Batch %s completed: %d processed, %d labels created",
		job.ID, job.Counters.EmailsProcessed, job.Counters.LabelsCreated)
	return &job.Counters, nil
}

func (u *batchUsecase) dispatch(ctx context.Context, job *domain.BatchJob, cred *domain.Credential) error {
	switch job.Operation {
	case domain.OperationFetchEmails:
		return u.runFetchEmails(ctx, job, cred)
	case domain.OperationAnalyzeEmails:
		return u.runAnalyzeEmails(ctx, job)
	case domain.OperationCreateLabels:
		return u.runCreateLabels(ctx, job, cred)
	case domain.OperationAssignLabels:
		return u.runAssignLabels(ctx, job, cred)
	case domain.OperationOrganizeLabels:
		return u.runOrganizeLabels(ctx, job, cred)
	case domain.OperationFullProcess:
		return u.runFullProcess(ctx, job, cred)
	}
	return fmt.Errorf("unhandled operation %q", job.Operation)
}

func (u *batchUsecase) GetBatchStatus(userID, batchID string) (*domain.BatchJob, error) {
	job, err := u.jobs.GetByID(batchID)
	if err != nil {
		return nil, err
	}
	if job == nil || job.UserID != userID {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

func (u *batchUsecase) ListBatchHistory(userID string, limit int) ([]domain.BatchJob, error) {
	return u.jobs.ListByUser(userID, limit)
}

// checkpoint persists intermediate progress so a poller sees counters
// move while the batch runs.
func (u *batchUsecase) checkpoint(job *domain.BatchJob) {
	if err := u.jobs.UpdateFields(job.ID, map[string]interface{}{
		"emails_processed": job.Counters.EmailsProcessed,
		"emails_total":     job.Counters.EmailsTotal,
		"labels_created":   job.Counters.LabelsCreated,
		"labels_used":      job.Counters.LabelsUsed,
	}); err != nil {
		log.Printf("[BatchOrchestrator] Checkpoint failed for batch %s: %v", job.ID, err)
	}
}

// throttle sleeps between sub-batches to stay polite with provider
// quotas. issued is the number of items handled so far.
func (u *batchUsecase) throttle(ctx context.Context, issued int) error {
	if issued == 0 || issued%batchChunkSize != 0 || u.chunkDelay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(u.chunkDelay):
		return nil
	}
}
