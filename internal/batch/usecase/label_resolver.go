package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"mailpilot-backend/internal/batch/domain"
	"mailpilot-backend/internal/batch/repository"
)

// LabelResolver upserts labels by (user, name): store lookup first,
// then provider-side create through the guard, memoized per resolver.
type LabelResolver struct {
	labels repository.LabelRepository
	guard  *CredentialGuard

	mu    sync.Mutex
	cache map[string]string // userID+"\x00"+name -> provider label id
}

func NewLabelResolver(labels repository.LabelRepository, guard *CredentialGuard) *LabelResolver {
	return &LabelResolver{
		labels: labels,
		guard:  guard,
		cache:  make(map[string]string),
	}
}

// Resolve returns the provider label id for name, creating the label
// when needed. The created flag reports whether a provider-side label
// was newly created by this call.
func (r *LabelResolver) Resolve(ctx context.Context, userID string, cred *domain.Credential, name string) (string, bool, error) {
	key := userID + "\x00" + name

	r.mu.Lock()
	if id, ok := r.cache[key]; ok {
		r.mu.Unlock()
		return id, false, nil
	}
	r.mu.Unlock()

	record, err := r.labels.GetByName(userID, name)
	if err != nil {
		return "", false, fmt.Errorf("label lookup failed: %w", err)
	}
	if record != nil && record.ProviderLabelID != "" {
		r.remember(key, record.ProviderLabelID)
		return record.ProviderLabelID, false, nil
	}

	providerID, created, err := r.createProviderLabel(ctx, userID, cred, name)
	if err != nil {
		return "", false, err
	}

	if _, err := r.labels.Upsert(&domain.LabelRecord{
		UserID:          userID,
		Name:            name,
		ProviderLabelID: providerID,
		IsAuto:          true,
	}); err != nil {
		// Provider side is already consistent; log and keep going.
		log.Printf("[LabelResolver] Failed to store label %q for user %s: %v", name, userID, err)
	}

	r.remember(key, providerID)
	return providerID, created, nil
}

func (r *LabelResolver) createProviderLabel(ctx context.Context, userID string, cred *domain.Credential, name string) (string, bool, error) {
	var providerID string
	created := false

	err := r.guard.WithCredential(ctx, userID, cred, func(ctx context.Context, cred *domain.Credential) error {
		label, err := r.guard.provider.CreateLabel(ctx, cred, name)
		if err == nil {
			providerID = label.ID
			created = true
			return nil
		}
		if !errors.Is(err, domain.ErrLabelExists) {
			return err
		}
		// Someone created it out of band; find it by listing.
		labels, listErr := r.guard.provider.ListLabels(ctx, cred)
		if listErr != nil {
			return listErr
		}
		for _, l := range labels {
			if l.Name == name {
				providerID = l.ID
				return nil
			}
		}
		return fmt.Errorf("label %q reported existing but not listed", name)
	})
	if err != nil {
		return "", false, err
	}
	return providerID, created, nil
}

func (r *LabelResolver) remember(key, id string) {
	r.mu.Lock()
	r.cache[key] = id
	r.mu.Unlock()
}
