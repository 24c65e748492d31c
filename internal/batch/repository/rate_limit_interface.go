package repository

import "time"

type RateLimitRepository interface {
	CountSince(userID, tag string, since time.Time) (int64, error)
	Record(userID, tag string, at time.Time) error
	PurgeBefore(cutoff time.Time) error
}
