package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type BatchOperation string

const (
	OperationFetchEmails    BatchOperation = "fetchEmails"
	OperationAnalyzeEmails  BatchOperation = "analyzeEmails"
	OperationCreateLabels   BatchOperation = "createLabels"
	OperationAssignLabels   BatchOperation = "assignLabels"
	OperationOrganizeLabels BatchOperation = "organizeLabels"
	OperationFullProcess    BatchOperation = "fullProcess"
)

// ParseOperation maps a request string to a known operation.
func ParseOperation(s string) (BatchOperation, bool) {
	switch BatchOperation(s) {
	case OperationFetchEmails, OperationAnalyzeEmails, OperationCreateLabels,
		OperationAssignLabels, OperationOrganizeLabels, OperationFullProcess:
		return BatchOperation(s), true
	}
	return "", false
}

type BatchStatus string

const (
	StatusCreated   BatchStatus = "created"
	StatusRunning   BatchStatus = "running"
	StatusCompleted BatchStatus = "completed"
	StatusFailed    BatchStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s BatchStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// BatchOptions is the caller-supplied tuning for a batch, stored as JSON
// in a text column.
type BatchOptions struct {
	Query     string `json:"query,omitempty"`
	BatchSize int    `json:"batchSize,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

func (o BatchOptions) Value() (driver.Value, error) {
	return json.Marshal(o)
}

func (o *BatchOptions) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, o)
	case string:
		return json.Unmarshal([]byte(v), o)
	case nil:
		*o = BatchOptions{}
		return nil
	}
	return errors.New("unsupported type for BatchOptions")
}

// StringArray stores a slice of strings as JSON in a text column.
type StringArray []string

func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	return json.Marshal(a)
}

func (a *StringArray) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	case nil:
		*a = StringArray{}
		return nil
	}
	return errors.New("unsupported type for StringArray")
}

// BatchCounters accumulates progress across a batch run.
type BatchCounters struct {
	EmailsProcessed int `gorm:"default:0" json:"emailsProcessed"`
	EmailsTotal     int `gorm:"default:0" json:"emailsTotal"`
	LabelsCreated   int `gorm:"default:0" json:"labelsCreated"`
	LabelsUsed      int `gorm:"default:0" json:"labelsUsed"`
}

// Merge adds another set of counters into this one.
func (c *BatchCounters) Merge(other BatchCounters) {
	c.EmailsProcessed += other.EmailsProcessed
	c.EmailsTotal += other.EmailsTotal
	c.LabelsCreated += other.LabelsCreated
	c.LabelsUsed += other.LabelsUsed
}

type BatchJob struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string         `gorm:"type:varchar(36);index;not null" json:"userId"`
	Operation BatchOperation `gorm:"type:varchar(32);not null" json:"operation"`
	Options   BatchOptions   `gorm:"type:text" json:"options"`
	Status    BatchStatus    `gorm:"type:varchar(16);default:'created'" json:"status"`

	Counters BatchCounters `gorm:"embedded" json:"counters"`
	Errors   StringArray   `gorm:"type:text" json:"errors"`

	StartTime *time.Time `json:"startTime,omitempty"`
	EndTime   *time.Time `json:"endTime,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
