package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"

	authrepo "mailpilot-backend/internal/auth/repository"
	"mailpilot-backend/internal/batch/domain"
)

// CredentialGuard wraps provider calls with an at-most-once token
// refresh. On the first auth failure it refreshes, persists the new
// credential, and retries the call once. A failed refresh or a second
// auth failure surfaces ErrRequiresReauth.
type CredentialGuard struct {
	provider domain.MailProvider
	users    authrepo.UserRepository
}

func NewCredentialGuard(provider domain.MailProvider, users authrepo.UserRepository) *CredentialGuard {
	return &CredentialGuard{provider: provider, users: users}
}

// WithCredential runs op, handling credential expiry. cred is mutated
// in place when a refresh succeeds so later calls reuse the new token.
func (g *CredentialGuard) WithCredential(ctx context.Context, userID string, cred *domain.Credential, op func(ctx context.Context, cred *domain.Credential) error) error {
	err := op(ctx, cred)
	if err == nil || !errors.Is(err, domain.ErrAuthExpired) {
		return err
	}

	log.Printf("[CredentialGuard] Access token expired for user %s, refreshing", userID)

	refreshed, refreshErr := g.provider.RefreshCredential(ctx, cred.RefreshToken)
	if refreshErr != nil {
		return fmt.Errorf("%w: refresh failed: %v", domain.ErrRequiresReauth, refreshErr)
	}

	// Providers often omit the refresh token on renewal.
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = cred.RefreshToken
	}
	*cred = *refreshed

	// Persist so the next batch starts from the fresh credential. A
	// store failure is not fatal: the in-memory credential still works
	// for the rest of this run.
	if persistErr := g.users.UpdateTokens(userID, cred.AccessToken, cred.RefreshToken, cred.Expiry); persistErr != nil {
		log.Printf("[CredentialGuard] Failed to persist refreshed tokens for user %s: %v", userID, persistErr)
	}

	err = op(ctx, cred)
	if errors.Is(err, domain.ErrAuthExpired) {
		return fmt.Errorf("%w: token rejected after refresh", domain.ErrRequiresReauth)
	}
	return err
}
