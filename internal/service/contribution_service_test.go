package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JonkiPro/popcorn-sub004/internal/dto"
	"github.com/JonkiPro/popcorn-sub004/internal/models"
	"github.com/JonkiPro/popcorn-sub004/internal/repository"
	"github.com/JonkiPro/popcorn-sub004/pkg/config"
	appErrors "github.com/JonkiPro/popcorn-sub004/pkg/errors"
)

type stubContributionStore struct {
	contributions map[string]*models.Contribution
	merged        map[string]string
	movieMissing  bool
	lastFilter    models.ContributionFilter
}

func newStubContributionStore() *stubContributionStore {
	return &stubContributionStore{
		contributions: make(map[string]*models.Contribution),
		merged:        make(map[string]string),
	}
}

func (s *stubContributionStore) Create(_ context.Context, c *models.Contribution) error {
	if c.ID == "" {
		c.ID = "contrib-" + time.Now().Format("150405.000000000")
	}
	if c.SubmittedAt.IsZero() {
		c.SubmittedAt = time.Now().UTC()
	}
	copied := *c
	s.contributions[c.ID] = &copied
	return nil
}

func (s *stubContributionStore) GetByID(_ context.Context, id string) (*models.Contribution, error) {
	c, ok := s.contributions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *c
	return &copied, nil
}

func (s *stubContributionStore) List(_ context.Context, filter models.ContributionFilter) ([]models.Contribution, error) {
	s.lastFilter = filter
	var out []models.Contribution
	for _, c := range s.contributions {
		if filter.Matches(c) {
			out = append(out, *c)
		}
	}
	return out, nil
}

// Resolve mirrors the conditional-update semantics of the SQL repository:
// the flip only happens while the stored row is still PENDING, and a failed
// merge leaves the row untouched.
func (s *stubContributionStore) Resolve(_ context.Context, params repository.ResolveContributionParams) error {
	c, ok := s.contributions[params.ID]
	if !ok || c.Status != models.StatusPending {
		return repository.ErrStatusConflict
	}
	if params.Merge {
		if s.movieMissing {
			return repository.ErrMovieRowMissing
		}
		s.merged[params.MovieID+"/"+string(params.Field)] = params.NewValue
	}
	c.Status = params.Status
	verifiedBy := params.VerifiedBy
	verifiedAt := params.VerifiedAt
	c.VerifiedBy = &verifiedBy
	c.VerifiedAt = &verifiedAt
	return nil
}

type stubMovieChecker struct {
	exists bool
}

func (s *stubMovieChecker) Exists(context.Context, string) (bool, error) {
	return s.exists, nil
}

type stubAudit struct {
	logs []*models.AuditLog
}

func (s *stubAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	s.logs = append(s.logs, log)
	return nil
}

func newTestContributionService(store *stubContributionStore, movies *stubMovieChecker, audit *stubAudit) *ContributionService {
	var log auditLogger
	if audit != nil {
		log = audit
	}
	return NewContributionService(store, movies, log, nil, nil, nil, config.ContributionsConfig{
		MaxPageSize:     200,
		DefaultPageSize: 50,
	})
}

func submitTestContribution(t *testing.T, svc *ContributionService) *models.Contribution {
	t.Helper()
	contribution, err := svc.Submit(context.Background(), dto.SubmitContributionRequest{
		MovieID:  "movie-1",
		Field:    models.FieldSynopsis,
		NewValue: "A better synopsis",
	}, "user-1")
	require.NoError(t, err)
	return contribution
}

func TestContributionServiceSubmit(t *testing.T) {
	store := newStubContributionStore()
	audit := &stubAudit{}
	svc := newTestContributionService(store, &stubMovieChecker{exists: true}, audit)

	contribution := submitTestContribution(t, svc)
	require.Equal(t, models.StatusPending, contribution.Status)
	require.Equal(t, "user-1", contribution.SubmittedBy)
	require.Nil(t, contribution.VerifiedBy)
	require.Len(t, audit.logs, 1)
	require.Equal(t, models.AuditActionContributionSubmit, audit.logs[0].Action)
}

func TestContributionServiceSubmitUnknownField(t *testing.T) {
	svc := newTestContributionService(newStubContributionStore(), &stubMovieChecker{exists: true}, nil)

	_, err := svc.Submit(context.Background(), dto.SubmitContributionRequest{
		MovieID:  "movie-1",
		Field:    "RUNTIME",
		NewValue: "120",
	}, "user-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestContributionServiceSubmitMissingMovie(t *testing.T) {
	svc := newTestContributionService(newStubContributionStore(), &stubMovieChecker{exists: false}, nil)

	_, err := svc.Submit(context.Background(), dto.SubmitContributionRequest{
		MovieID:  "movie-unknown",
		Field:    models.FieldSynopsis,
		NewValue: "text",
	}, "user-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestContributionServiceVerifyAcceptMerges(t *testing.T) {
	store := newStubContributionStore()
	svc := newTestContributionService(store, &stubMovieChecker{exists: true}, &stubAudit{})
	contribution := submitTestContribution(t, svc)

	resolved, err := svc.Verify(context.Background(), contribution.ID, dto.VerifyContributionRequest{Decision: models.DecisionAccept}, "verifier-1")
	require.NoError(t, err)
	require.Equal(t, models.StatusAccepted, resolved.Status)
	require.NotNil(t, resolved.VerifiedBy)
	require.Equal(t, "verifier-1", *resolved.VerifiedBy)
	require.NotNil(t, resolved.VerifiedAt)
	require.Equal(t, "A better synopsis", store.merged["movie-1/SYNOPSIS"])
}

func TestContributionServiceVerifyRejectLeavesMovieUntouched(t *testing.T) {
	store := newStubContributionStore()
	svc := newTestContributionService(store, &stubMovieChecker{exists: true}, &stubAudit{})
	contribution := submitTestContribution(t, svc)

	resolved, err := svc.Verify(context.Background(), contribution.ID, dto.VerifyContributionRequest{Decision: models.DecisionReject}, "verifier-1")
	require.NoError(t, err)
	require.Equal(t, models.StatusRejected, resolved.Status)
	require.Empty(t, store.merged)
}

func TestContributionServiceVerifyUnknownDecision(t *testing.T) {
	store := newStubContributionStore()
	svc := newTestContributionService(store, &stubMovieChecker{exists: true}, nil)
	contribution := submitTestContribution(t, svc)

	_, err := svc.Verify(context.Background(), contribution.ID, dto.VerifyContributionRequest{Decision: "DEFER"}, "verifier-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	stored, getErr := svc.Get(context.Background(), contribution.ID)
	require.NoError(t, getErr)
	require.Equal(t, models.StatusPending, stored.Status)
}

func TestContributionServiceVerifyTwiceConflicts(t *testing.T) {
	store := newStubContributionStore()
	svc := newTestContributionService(store, &stubMovieChecker{exists: true}, nil)
	contribution := submitTestContribution(t, svc)

	_, err := svc.Verify(context.Background(), contribution.ID, dto.VerifyContributionRequest{Decision: models.DecisionAccept}, "verifier-1")
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), contribution.ID, dto.VerifyContributionRequest{Decision: models.DecisionReject}, "verifier-2")
	require.Error(t, err)
	require.True(t, errors.Is(err, appErrors.ErrAlreadyResolved) || appErrors.FromError(err).Code == appErrors.ErrAlreadyResolved.Code)
}

func TestContributionServiceVerifyLostRace(t *testing.T) {
	store := newStubContributionStore()
	svc := newTestContributionService(store, &stubMovieChecker{exists: true}, nil)
	contribution := submitTestContribution(t, svc)

	// Another verifier resolves the row between the read and the update.
	store.contributions[contribution.ID].Status = models.StatusRejected

	_, err := svc.Verify(context.Background(), contribution.ID, dto.VerifyContributionRequest{Decision: models.DecisionAccept}, "verifier-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrAlreadyResolved.Code, appErrors.FromError(err).Code)
}

func TestContributionServiceVerifyMergeFailureKeepsPendingAndRetries(t *testing.T) {
	store := newStubContributionStore()
	svc := newTestContributionService(store, &stubMovieChecker{exists: true}, nil)
	contribution := submitTestContribution(t, svc)

	store.movieMissing = true
	_, err := svc.Verify(context.Background(), contribution.ID, dto.VerifyContributionRequest{Decision: models.DecisionAccept}, "verifier-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrMergeFailed.Code, appErrors.FromError(err).Code)

	stored, getErr := svc.Get(context.Background(), contribution.ID)
	require.NoError(t, getErr)
	require.Equal(t, models.StatusPending, stored.Status)

	// The failure is retryable once the movie row is back.
	store.movieMissing = false
	resolved, err := svc.Verify(context.Background(), contribution.ID, dto.VerifyContributionRequest{Decision: models.DecisionAccept}, "verifier-1")
	require.NoError(t, err)
	require.Equal(t, models.StatusAccepted, resolved.Status)
	require.Equal(t, "A better synopsis", store.merged["movie-1/SYNOPSIS"])
}

func TestContributionServiceVerifyMissingContribution(t *testing.T) {
	svc := newTestContributionService(newStubContributionStore(), &stubMovieChecker{exists: true}, nil)

	_, err := svc.Verify(context.Background(), "no-such-id", dto.VerifyContributionRequest{Decision: models.DecisionAccept}, "verifier-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestContributionServiceListClampsLimit(t *testing.T) {
	store := newStubContributionStore()
	svc := newTestContributionService(store, &stubMovieChecker{exists: true}, nil)

	_, err := svc.List(context.Background(), dto.ContributionQuery{Limit: 0})
	require.NoError(t, err)
	require.Equal(t, 50, store.lastFilter.Limit)

	_, err = svc.List(context.Background(), dto.ContributionQuery{Limit: 10000})
	require.NoError(t, err)
	require.Equal(t, 200, store.lastFilter.Limit)
}

func TestContributionServiceListPassesCriteria(t *testing.T) {
	store := newStubContributionStore()
	svc := newTestContributionService(store, &stubMovieChecker{exists: true}, &stubAudit{})
	submitTestContribution(t, svc)

	from := time.Now().Add(-time.Hour)
	to := time.Now().Add(time.Hour)
	list, err := svc.List(context.Background(), dto.ContributionQuery{
		MovieID: "movie-1",
		Field:   models.FieldSynopsis,
		Status:  models.StatusPending,
		From:    &from,
		To:      &to,
	})
	require.NoError(t, err)
	require.Len(t, list, 1)

	// An inverted range matches nothing rather than erroring.
	list, err = svc.List(context.Background(), dto.ContributionQuery{From: &to, To: &from})
	require.NoError(t, err)
	require.Empty(t, list)
}
