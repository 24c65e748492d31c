package domain

import "time"

// MessageRecord is the stored copy of one provider message's metadata,
// plus its classification state.
type MessageRecord struct {
	ID         string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID     string `gorm:"type:varchar(36);uniqueIndex:idx_user_provider;not null" json:"userId"`
	ProviderID string `gorm:"type:varchar(64);uniqueIndex:idx_user_provider;not null" json:"providerId"`

	Subject   string    `gorm:"type:text" json:"subject"`
	Sender    string    `gorm:"type:text" json:"sender"`
	Recipient string    `gorm:"type:text" json:"recipient"`
	Snippet   string    `gorm:"type:text" json:"snippet"`
	Timestamp time.Time `json:"timestamp"`

	// Processed: classification ran. Synced: label applied provider-side.
	Processed bool `gorm:"default:false;index" json:"processed"`
	Synced    bool `gorm:"default:false;index" json:"synced"`

	Analysis ClassificationResult `gorm:"embedded;embeddedPrefix:analysis_" json:"analysis"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
