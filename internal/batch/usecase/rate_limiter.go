package usecase

import (
	"log"
	"time"

	"mailpilot-backend/internal/batch/repository"
)

// RateLimiter enforces a per-user sliding window over recorded calls.
type RateLimiter struct {
	repo    repository.RateLimitRepository
	ceiling int
	window  time.Duration
	now     func() time.Time
}

func NewRateLimiter(repo repository.RateLimitRepository, ceiling int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		repo:    repo,
		ceiling: ceiling,
		window:  window,
		now:     time.Now,
	}
}

// Allow checks the window before recording, so the ceiling counts calls
// actually issued. A store failure allows the call: losing a few AI
// requests over quota is cheaper than stalling a whole batch on a
// database hiccup.
func (l *RateLimiter) Allow(userID, tag string) bool {
	now := l.now()
	since := now.Add(-l.window)

	count, err := l.repo.CountSince(userID, tag, since)
	if err != nil {
		log.Printf("[RateLimiter] Count failed for user %s, allowing call: %v", userID, err)
		return true
	}
	if count >= int64(l.ceiling) {
		return false
	}

	if err := l.repo.Record(userID, tag, now); err != nil {
		log.Printf("[RateLimiter] Record failed for user %s: %v", userID, err)
	}

	// Entries older than the window never matter again.
	if err := l.repo.PurgeBefore(since); err != nil {
		log.Printf("[RateLimiter] Purge failed: %v", err)
	}
	return true
}
