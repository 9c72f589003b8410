package models

import (
	"time"

	"github.com/google/uuid"
)

// Job is one vendor-sync unit of work: a vendor id, its requested item codes
// and the values needed to resolve the vendor's config template.
type Job struct {
	VendorID       int64             `json:"vendorId"`
	ConfigPath     string            `json:"configPath,omitempty"` // URL or file path of the config document
	ConfigJSON     []byte            `json:"-"`                    // inline config, used instead of ConfigPath when set
	ItemCodes      []string          `json:"itemCodes"`
	TemplateValues map[string]string `json:"templateValues"`
	Protocol       Protocol          `json:"protocol"`
	DataFilePath   string            `json:"dataFilePath,omitempty"` // local target for CSV/FTP downloads
}

// ExecutionSummary reports per-Job bookkeeping to the caller.
type ExecutionSummary struct {
	RequestItemCodeCount  int `json:"RequestItemCodeCount"`
	ResponseItemCodeCount int `json:"ResponseItemCodeCount"`
	FailedBatches         int `json:"FailedBatches"`
}

// ResponseInfo is the vendor-table bookkeeping pair for one Job.
type ResponseInfo struct {
	VendorID     int64  `json:"vendor_id"`
	ResponseCode int    `json:"response_code"`
	ResponseText string `json:"response_text,omitempty"`
}

// VendorCodeStatus carries the per-code error classification handed to the
// Sink alongside canonical records.
type VendorCodeStatus struct {
	VendorID         int64  `json:"vendor_id"`
	VendorCode       string `json:"vendor_code"`
	InternalID       int64  `json:"internal_id"`
	Error            bool   `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// SyncJobStatus is the lifecycle state of a tracked sync job.
type SyncJobStatus string

const (
	SyncStatusPending   SyncJobStatus = "PENDING"
	SyncStatusRunning   SyncJobStatus = "RUNNING"
	SyncStatusCompleted SyncJobStatus = "COMPLETED"
	SyncStatusFailed    SyncJobStatus = "FAILED"
	SyncStatusCancelled SyncJobStatus = "CANCELLED"
)

// SyncJob is the in-memory record of one Job execution, exposed over the API.
type SyncJob struct {
	ID          uuid.UUID        `json:"id"`
	VendorID    int64            `json:"vendorId"`
	Protocol    Protocol         `json:"protocol"`
	Status      SyncJobStatus    `json:"status"`
	Error       string           `json:"error,omitempty"`
	Summary     ExecutionSummary `json:"summary"`
	RecordCount int              `json:"recordCount"`
	StartedAt   time.Time        `json:"startedAt"`
	FinishedAt  *time.Time       `json:"finishedAt,omitempty"`
}
