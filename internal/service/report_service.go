package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JonkiPro/popcorn-sub004/internal/dto"
	"github.com/JonkiPro/popcorn-sub004/internal/models"
	"github.com/JonkiPro/popcorn-sub004/pkg/config"
	appErrors "github.com/JonkiPro/popcorn-sub004/pkg/errors"
	"github.com/JonkiPro/popcorn-sub004/pkg/export"
	"github.com/JonkiPro/popcorn-sub004/pkg/jobs"
)

var reportHeaders = []string{"ID", "Movie", "Field", "New Value", "Status", "Submitted By", "Submitted At", "Verified By", "Verified At"}

type contributionLister interface {
	List(ctx context.Context, filter models.ContributionFilter) ([]models.Contribution, error)
}

// ReportService renders the review log to CSV or PDF asynchronously. Jobs and
// their rendered documents live in memory only; a restart drops them and the
// caller simply requests the export again.
type ReportService struct {
	contributions contributionLister
	csv           *export.CSVExporter
	pdf           *export.PDFExporter
	queue         *jobs.Queue
	validator     *validator.Validate
	logger        *zap.Logger

	mu      sync.RWMutex
	reports map[string]*models.ReportJob
}

type reportPayload struct {
	Format  dto.ReportFormat
	MovieID string
	Status  models.DataStatus
}

// NewReportService constructs the service and its worker queue. Call Start
// before requesting reports and Stop on shutdown.
func NewReportService(contributions contributionLister, validate *validator.Validate, logger *zap.Logger, cfg config.ReportsConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	s := &ReportService{
		contributions: contributions,
		csv:           export.NewCSVExporter(),
		pdf:           export.NewPDFExporter(),
		validator:     validate,
		logger:        logger,
		reports:       make(map[string]*models.ReportJob),
	}
	s.queue = jobs.NewQueue("review-log-export", s.process, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		OnExhausted: func(job jobs.Job, err error) {
			s.fail(job.ID, err)
		},
	})
	return s
}

// Start launches the export workers.
func (s *ReportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop halts the export workers. Reports still queued at that point fail
// terminally; the caller requests the export again after a restart.
func (s *ReportService) Stop() {
	s.queue.Stop()

	now := time.Now().UTC()
	s.mu.Lock()
	for _, report := range s.reports {
		if report.Status == models.ReportStatusQueued {
			report.Status = models.ReportStatusFailed
			report.Error = "export aborted by shutdown"
			report.CompletedAt = &now
		}
	}
	s.mu.Unlock()
}

// Request enqueues a review-log export and returns the queued job descriptor.
func (s *ReportService) Request(ctx context.Context, req dto.CreateReportRequest, requestedBy string) (*models.ReportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}
	format := dto.ReportFormat(strings.ToUpper(string(req.Format)))
	if format != dto.ReportFormatCSV && format != dto.ReportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be CSV or PDF")
	}
	if req.Status != "" && !validReportStatus(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown contribution status")
	}

	report := &models.ReportJob{
		ID:          uuid.NewString(),
		Format:      string(format),
		Status:      models.ReportStatusQueued,
		RequestedBy: requestedBy,
		CreatedAt:   time.Now().UTC(),
	}
	s.mu.Lock()
	s.reports[report.ID] = report
	s.mu.Unlock()

	job := jobs.Job{
		ID:      report.ID,
		Type:    "review-log-export",
		Payload: reportPayload{Format: format, MovieID: req.MovieID, Status: req.Status},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.fail(report.ID, err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report")
	}
	return report, nil
}

// Get returns the report descriptor, including content once completed.
func (s *ReportService) Get(ctx context.Context, id string) (*models.ReportJob, error) {
	s.mu.RLock()
	report, ok := s.reports[id]
	s.mu.RUnlock()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
	}
	copied := *report
	return &copied, nil
}

func (s *ReportService) process(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(reportPayload)
	if !ok {
		s.fail(job.ID, fmt.Errorf("unexpected payload type %T", job.Payload))
		return nil
	}

	filter := models.ContributionFilter{
		MovieID: payload.MovieID,
		Status:  payload.Status,
		Limit:   1000,
	}
	contributions, err := s.contributions.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("load review log: %w", err)
	}

	dataset := export.Dataset{Headers: reportHeaders, Rows: make([]map[string]string, 0, len(contributions))}
	for i := range contributions {
		dataset.Rows = append(dataset.Rows, reportRow(&contributions[i]))
	}

	var content []byte
	var fileName, contentType string
	switch payload.Format {
	case dto.ReportFormatPDF:
		content, err = s.pdf.Render(dataset, "Review Log")
		fileName = fmt.Sprintf("review-log-%s.pdf", job.ID)
		contentType = "application/pdf"
	default:
		content, err = s.csv.Render(dataset)
		fileName = fmt.Sprintf("review-log-%s.csv", job.ID)
		contentType = "text/csv"
	}
	if err != nil {
		// Rendering is deterministic, retrying cannot help.
		s.fail(job.ID, fmt.Errorf("render report: %w", err))
		return nil
	}

	now := time.Now().UTC()
	s.mu.Lock()
	if report, ok := s.reports[job.ID]; ok {
		report.Status = models.ReportStatusCompleted
		report.FileName = fileName
		report.ContentType = contentType
		report.Content = content
		report.CompletedAt = &now
	}
	s.mu.Unlock()
	return nil
}

func (s *ReportService) fail(id string, err error) {
	now := time.Now().UTC()
	s.mu.Lock()
	if report, ok := s.reports[id]; ok && report.Status == models.ReportStatusQueued {
		report.Status = models.ReportStatusFailed
		report.Error = err.Error()
		report.CompletedAt = &now
	}
	s.mu.Unlock()
}

func reportRow(c *models.Contribution) map[string]string {
	row := map[string]string{
		"ID":           c.ID,
		"Movie":        c.MovieID,
		"Field":        string(c.Field),
		"New Value":    c.NewValue,
		"Status":       string(c.Status),
		"Submitted By": c.SubmittedBy,
		"Submitted At": c.SubmittedAt.Format(time.RFC3339),
	}
	if c.VerifiedBy != nil {
		row["Verified By"] = *c.VerifiedBy
	}
	if c.VerifiedAt != nil {
		row["Verified At"] = c.VerifiedAt.Format(time.RFC3339)
	}
	return row
}

func validReportStatus(status models.DataStatus) bool {
	switch status {
	case models.StatusPending, models.StatusAccepted, models.StatusRejected:
		return true
	}
	return false
}
