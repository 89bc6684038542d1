package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JonkiPro/popcorn-sub004/internal/dto"
	"github.com/JonkiPro/popcorn-sub004/internal/models"
	"github.com/JonkiPro/popcorn-sub004/pkg/config"
	appErrors "github.com/JonkiPro/popcorn-sub004/pkg/errors"
)

type stubReviewLog struct {
	contributions []models.Contribution
	err           error
}

func (s *stubReviewLog) List(_ context.Context, filter models.ContributionFilter) ([]models.Contribution, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Contribution
	for i := range s.contributions {
		if filter.Matches(&s.contributions[i]) {
			out = append(out, s.contributions[i])
		}
	}
	return out, nil
}

func newTestReportService(t *testing.T, log *stubReviewLog) *ReportService {
	t.Helper()
	svc := NewReportService(log, nil, nil, config.ReportsConfig{
		WorkerConcurrency: 1,
		WorkerRetries:     1,
		RetryDelay:        10 * time.Millisecond,
	})
	svc.Start(context.Background())
	t.Cleanup(svc.Stop)
	return svc
}

func waitForReport(t *testing.T, svc *ReportService, id string) *models.ReportJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		report, err := svc.Get(context.Background(), id)
		require.NoError(t, err)
		if report.Status != models.ReportStatusQueued {
			return report
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("report %s never left QUEUED", id)
	return nil
}

func TestReportServiceRendersCSV(t *testing.T) {
	verifiedAt := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)
	verifier := "verifier-1"
	log := &stubReviewLog{contributions: []models.Contribution{
		{
			ID:          "contrib-1",
			MovieID:     "movie-1",
			Field:       models.FieldSynopsis,
			NewValue:    "A better synopsis",
			SubmittedBy: "user-1",
			Status:      models.StatusAccepted,
			SubmittedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
			VerifiedBy:  &verifier,
			VerifiedAt:  &verifiedAt,
		},
	}}
	svc := newTestReportService(t, log)

	report, err := svc.Request(context.Background(), dto.CreateReportRequest{Format: dto.ReportFormatCSV}, "admin-1")
	require.NoError(t, err)
	require.Equal(t, models.ReportStatusQueued, report.Status)

	done := waitForReport(t, svc, report.ID)
	require.Equal(t, models.ReportStatusCompleted, done.Status)
	require.Equal(t, "text/csv", done.ContentType)
	require.True(t, strings.HasSuffix(done.FileName, ".csv"))

	body := string(done.Content)
	require.Contains(t, body, "contrib-1")
	require.Contains(t, body, "SYNOPSIS")
	require.Contains(t, body, "verifier-1")
}

func TestReportServiceRendersPDF(t *testing.T) {
	svc := newTestReportService(t, &stubReviewLog{})

	report, err := svc.Request(context.Background(), dto.CreateReportRequest{Format: dto.ReportFormatPDF}, "admin-1")
	require.NoError(t, err)

	done := waitForReport(t, svc, report.ID)
	require.Equal(t, models.ReportStatusCompleted, done.Status)
	require.Equal(t, "application/pdf", done.ContentType)
	require.True(t, strings.HasPrefix(string(done.Content), "%PDF"))
}

func TestReportServiceRejectsUnknownFormat(t *testing.T) {
	svc := newTestReportService(t, &stubReviewLog{})

	_, err := svc.Request(context.Background(), dto.CreateReportRequest{Format: "XLSX"}, "admin-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServiceFailsAfterRetriesExhausted(t *testing.T) {
	log := &stubReviewLog{err: errors.New("store unavailable")}
	svc := newTestReportService(t, log)

	report, err := svc.Request(context.Background(), dto.CreateReportRequest{Format: dto.ReportFormatCSV}, "admin-1")
	require.NoError(t, err)

	// The lister keeps failing, so once retries run out the report must
	// transition to FAILED instead of lingering in QUEUED.
	done := waitForReport(t, svc, report.ID)
	require.Equal(t, models.ReportStatusFailed, done.Status)
	require.Contains(t, done.Error, "store unavailable")
	require.NotNil(t, done.CompletedAt)
}

type blockedReviewLog struct{}

func (b *blockedReviewLog) List(ctx context.Context, _ models.ContributionFilter) ([]models.Contribution, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestReportServiceStopFailsQueuedReports(t *testing.T) {
	svc := NewReportService(&blockedReviewLog{}, nil, nil, config.ReportsConfig{
		WorkerConcurrency: 1,
		WorkerRetries:     1,
		RetryDelay:        10 * time.Millisecond,
	})
	svc.Start(context.Background())

	first, err := svc.Request(context.Background(), dto.CreateReportRequest{Format: dto.ReportFormatCSV}, "admin-1")
	require.NoError(t, err)
	second, err := svc.Request(context.Background(), dto.CreateReportRequest{Format: dto.ReportFormatCSV}, "admin-1")
	require.NoError(t, err)

	svc.Stop()

	for _, id := range []string{first.ID, second.ID} {
		report, err := svc.Get(context.Background(), id)
		require.NoError(t, err)
		require.Equal(t, models.ReportStatusFailed, report.Status)
		require.NotEmpty(t, report.Error)
	}
}

func TestReportServiceGetUnknownReport(t *testing.T) {
	svc := newTestReportService(t, &stubReviewLog{})

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
