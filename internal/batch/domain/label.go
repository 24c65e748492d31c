package domain

import "time"

// LabelRecord maps a label name to its provider-side identifier for one
// user. IsAuto marks labels created by the triage pipeline, as opposed
// to labels reconciled from the provider.
type LabelRecord struct {
	ID              string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID          string `gorm:"type:varchar(36);uniqueIndex:idx_user_label;not null" json:"userId"`
	Name            string `gorm:"type:varchar(64);uniqueIndex:idx_user_label;not null" json:"name"`
	ProviderLabelID string `gorm:"type:varchar(64)" json:"providerLabelId"`
	IsAuto          bool   `gorm:"default:false" json:"isAuto"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
