package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"

	"mailpilot-backend/internal/batch/domain"
)

// Operation bodies. Per-item failures are recorded on the job and the
// run continues; step-level failures (auth beyond repair, store down)
// abort and fail the batch.

func (u *batchUsecase) runFetchEmails(ctx context.Context, job *domain.BatchJob, cred *domain.Credential) error {
	opts := job.Options
	total := opts.BatchSize
	pageSize := int64(total)
	if pageSize > 100 {
		pageSize = 100
	}

	fetched := 0
	pageToken := ""
	for fetched < total {
		var page *domain.MessagePage
		err := u.guard.WithCredential(ctx, job.UserID, cred, func(ctx context.Context, cred *domain.Credential) error {
			var listErr error
			page, listErr = u.provider.ListMessages(ctx, cred, opts.Query, pageToken, pageSize)
			return listErr
		})
		if err != nil {
			return fmt.Errorf("failed to list messages: %w", err)
		}

		for _, providerID := range page.ProviderIDs {
			if fetched >= total {
				break
			}
			if err := u.fetchOne(ctx, job, cred, providerID); err != nil {
				if errors.Is(err, domain.ErrRequiresReauth) {
					return err
				}
				job.Errors = append(job.Errors, fmt.Sprintf("message %s: %v", providerID, err))
				continue
			}
			fetched++
			job.Counters.EmailsProcessed++
			if err := u.throttle(ctx, fetched); err != nil {
				return err
			}
		}

		u.checkpoint(job)

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	job.Counters.EmailsTotal = fetched
	return nil
}

func (u *batchUsecase) fetchOne(ctx context.Context, job *domain.BatchJob, cred *domain.Credential, providerID string) error {
	var meta *domain.MessageMeta
	err := u.guard.WithCredential(ctx, job.UserID, cred, func(ctx context.Context, cred *domain.Credential) error {
		var metaErr error
		meta, metaErr = u.provider.GetMessageMetadata(ctx, cred, providerID)
		return metaErr
	})
	if err != nil {
		return err
	}

	return u.messages.Upsert(&domain.MessageRecord{
		UserID:     job.UserID,
		ProviderID: meta.ProviderID,
		Subject:    meta.Subject,
		Sender:     meta.Sender,
		Recipient:  meta.Recipient,
		Snippet:    meta.Snippet,
		Timestamp:  meta.Timestamp,
	})
}

func (u *batchUsecase) runAnalyzeEmails(ctx context.Context, job *domain.BatchJob) error {
	limit := job.Options.Limit
	if limit <= 0 {
		limit = job.Options.BatchSize
	}

	msgs, err := u.messages.ListUnprocessed(job.UserID, limit)
	if err != nil {
		return fmt.Errorf("failed to list unprocessed messages: %w", err)
	}

	if job.Counters.EmailsTotal == 0 {
		job.Counters.EmailsTotal = len(msgs)
	}

	for i := range msgs {
		msg := &msgs[i]
		result := u.classifier.Classify(ctx, msg.Subject, msg.Sender, msg.Snippet, job.UserID)
		msg.Analysis = *result
		msg.Processed = true

		if err := u.messages.Update(msg); err != nil {
			job.Errors = append(job.Errors, fmt.Sprintf("message %s: store failed: %v", msg.ProviderID, err))
			continue
		}
		job.Counters.EmailsProcessed++

		if err := u.throttle(ctx, i+1); err != nil {
			return err
		}
		if (i+1)%batchChunkSize == 0 {
			u.checkpoint(job)
		}
	}

	u.checkpoint(job)
	return nil
}

func (u *batchUsecase) runCreateLabels(ctx context.Context, job *domain.BatchJob, cred *domain.Credential) error {
	names, err := u.messages.DistinctSuggestedLabels(job.UserID, job.Options.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to collect suggested labels: %w", err)
	}

	for i, name := range names {
		_, created, err := u.resolver.Resolve(ctx, job.UserID, cred, name)
		if err != nil {
			if errors.Is(err, domain.ErrRequiresReauth) {
				return err
			}
			job.Errors = append(job.Errors, fmt.Sprintf("label %q: %v", name, err))
			continue
		}
		if created {
			job.Counters.LabelsCreated++
		} else {
			job.Counters.LabelsUsed++
		}

		if err := u.throttle(ctx, i+1); err != nil {
			return err
		}
	}

	u.checkpoint(job)
	return nil
}

func (u *batchUsecase) runAssignLabels(ctx context.Context, job *domain.BatchJob, cred *domain.Credential) error {
	msgs, err := u.messages.ListUnsynced(job.UserID, job.Options.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list unsynced messages: %w", err)
	}

	for i := range msgs {
		msg := &msgs[i]

		name := msg.Analysis.SuggestedLabel
		if name == "" {
			name = msg.Analysis.Category
		}
		if name == "" {
			name = domain.CategoryOther
		}

		labelID, created, err := u.resolver.Resolve(ctx, job.UserID, cred, name)
		if err != nil {
			if errors.Is(err, domain.ErrRequiresReauth) {
				return err
			}
			job.Errors = append(job.Errors, fmt.Sprintf("message %s: resolve label %q: %v", msg.ProviderID, name, err))
			continue
		}
		if created {
			job.Counters.LabelsCreated++
		}

		err = u.guard.WithCredential(ctx, job.UserID, cred, func(ctx context.Context, cred *domain.Credential) error {
			return u.provider.ModifyMessageLabels(ctx, cred, msg.ProviderID, []string{labelID})
		})
		if err != nil {
			if errors.Is(err, domain.ErrRequiresReauth) {
				return err
			}
			job.Errors = append(job.Errors, fmt.Sprintf("message %s: apply label: %v", msg.ProviderID, err))
			continue
		}

		msg.Synced = true
		if err := u.messages.Update(msg); err != nil {
			// Label is applied provider-side; the next run will retry
			// and the provider treats re-adding a label as a no-op.
			log.Printf("[BatchOrchestrator] Failed to mark message %s synced: %v", msg.ProviderID, err)
		}

		job.Counters.EmailsProcessed++
		job.Counters.LabelsUsed++

		if err := u.throttle(ctx, i+1); err != nil {
			return err
		}
		if (i+1)%batchChunkSize == 0 {
			u.checkpoint(job)
		}
	}

	u.checkpoint(job)
	return nil
}

// runOrganizeLabels reconciles provider-side labels into the store.
func (u *batchUsecase) runOrganizeLabels(ctx context.Context, job *domain.BatchJob, cred *domain.Credential) error {
	var providerLabels []domain.ProviderLabel
	err := u.guard.WithCredential(ctx, job.UserID, cred, func(ctx context.Context, cred *domain.Credential) error {
		var listErr error
		providerLabels, listErr = u.provider.ListLabels(ctx, cred)
		return listErr
	})
	if err != nil {
		return fmt.Errorf("failed to list provider labels: %w", err)
	}

	reconciled := 0
	for _, pl := range providerLabels {
		if reconciled >= job.Options.BatchSize {
			break
		}
		if _, err := u.labels.Upsert(&domain.LabelRecord{
			UserID:          job.UserID,
			Name:            pl.Name,
			ProviderLabelID: pl.ID,
			IsAuto:          false,
		}); err != nil {
			job.Errors = append(job.Errors, fmt.Sprintf("label %q: %v", pl.Name, err))
			continue
		}
		reconciled++
		job.Counters.LabelsUsed++
	}

	u.checkpoint(job)
	return nil
}

// runFullProcess chains fetch, analyze, create and assign. The first
// step error aborts the chain.
func (u *batchUsecase) runFullProcess(ctx context.Context, job *domain.BatchJob, cred *domain.Credential) error {
	if err := u.runFetchEmails(ctx, job, cred); err != nil {
		return fmt.Errorf("fetch step: %w", err)
	}
	if err := u.runAnalyzeEmails(ctx, job); err != nil {
		return fmt.Errorf("analyze step: %w", err)
	}
	if err := u.runCreateLabels(ctx, job, cred); err != nil {
		return fmt.Errorf("create labels step: %w", err)
	}
	if err := u.runAssignLabels(ctx, job, cred); err != nil {
		return fmt.Errorf("assign labels step: %w", err)
	}
	return nil
}
