package models

import "time"

// ReportStatus tracks the lifecycle of an export job.
type ReportStatus string

const (
	ReportStatusQueued    ReportStatus = "QUEUED"
	ReportStatusCompleted ReportStatus = "COMPLETED"
	ReportStatusFailed    ReportStatus = "FAILED"
)

// ReportJob describes a review-log export and, once completed, holds the
// rendered document.
type ReportJob struct {
	ID          string       `json:"id"`
	Format      string       `json:"format"`
	Status      ReportStatus `json:"status"`
	FileName    string       `json:"file_name,omitempty"`
	ContentType string       `json:"content_type,omitempty"`
	Error       string       `json:"error,omitempty"`
	Content     []byte       `json:"-"`
	RequestedBy string       `json:"requested_by"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}
