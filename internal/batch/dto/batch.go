package dto

import "mailpilot-backend/internal/batch/domain"

type CreateBatchRequest struct {
	Operation string              `json:"operation" binding:"required"`
	Options   domain.BatchOptions `json:"options"`
}

type CreateBatchResponse struct {
	BatchID string `json:"batchId"`
	Status  string `json:"status"`
}

type ExecuteBatchResponse struct {
	BatchID  string               `json:"batchId"`
	Status   string               `json:"status"`
	Counters domain.BatchCounters `json:"counters"`
	Errors   []string             `json:"errors,omitempty"`
}

type BatchListResponse struct {
	Batches []domain.BatchJob `json:"batches"`
	Total   int               `json:"total"`
}
