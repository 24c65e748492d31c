package domain

import "time"

// RateLimitEntry is one recorded call in the sliding-window rate limit.
type RateLimitEntry struct {
	ID       string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID   string    `gorm:"type:varchar(36);index:idx_rate_user_tag" json:"userId"`
	Tag      string    `gorm:"type:varchar(32);index:idx_rate_user_tag" json:"tag"`
	CalledAt time.Time `gorm:"index" json:"calledAt"`
}
