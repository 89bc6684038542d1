package dto

import "github.com/JonkiPro/popcorn-sub004/internal/models"

// ReportFormat selects the rendering backend for review-log exports.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "CSV"
	ReportFormatPDF ReportFormat = "PDF"
)

// CreateReportRequest asks for an asynchronous export of the review log.
type CreateReportRequest struct {
	Format  ReportFormat      `json:"format" validate:"required"`
	MovieID string            `json:"movie_id"`
	Status  models.DataStatus `json:"status"`
}
