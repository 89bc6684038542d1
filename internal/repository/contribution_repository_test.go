package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/JonkiPro/popcorn-sub004/internal/models"
)

func newContributionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func contributionRows(id string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "movie_id", "field", "new_value", "submitted_by", "status", "submitted_at", "verified_by", "verified_at"}).
		AddRow(id, "movie-1", "SYNOPSIS", "A better synopsis", "user-1", "PENDING", time.Now(), nil, nil)
}

func TestContributionRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newContributionRepoMock(t)
	defer cleanup()

	repo := NewContributionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO contributions")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	contribution := &models.Contribution{
		MovieID:     "movie-1",
		Field:       models.FieldSynopsis,
		NewValue:    "A better synopsis",
		SubmittedBy: "user-1",
	}
	require.NoError(t, repo.Create(context.Background(), contribution))
	require.NotEmpty(t, contribution.ID)
	require.Equal(t, models.StatusPending, contribution.Status)
	require.False(t, contribution.SubmittedAt.IsZero())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, movie_id, field")).
		WithArgs(contribution.ID).
		WillReturnRows(contributionRows(contribution.ID))

	found, err := repo.GetByID(context.Background(), contribution.ID)
	require.NoError(t, err)
	require.Equal(t, contribution.ID, found.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContributionRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newContributionRepoMock(t)
	defer cleanup()

	repo := NewContributionRepository(db)
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("movie_id = $1 AND field = $2 AND status = $3 AND submitted_at >= $4 AND submitted_at <= $5")).
		WithArgs("movie-1", "SYNOPSIS", "PENDING", from, to).
		WillReturnRows(contributionRows("contrib-1"))

	list, err := repo.List(context.Background(), models.ContributionFilter{
		MovieID: "movie-1",
		Field:   models.FieldSynopsis,
		Status:  models.StatusPending,
		From:    &from,
		To:      &to,
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "contrib-1", list[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContributionRepositoryListEmptyFilter(t *testing.T) {
	db, mock, cleanup := newContributionRepoMock(t)
	defer cleanup()

	repo := NewContributionRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM contributions ORDER BY submitted_at DESC LIMIT 50 OFFSET 0")).
		WillReturnRows(contributionRows("contrib-1"))

	list, err := repo.List(context.Background(), models.ContributionFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContributionRepositoryResolveAccept(t *testing.T) {
	db, mock, cleanup := newContributionRepoMock(t)
	defer cleanup()

	repo := NewContributionRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE contributions SET status = $1")).
		WithArgs("ACCEPTED", "verifier-1", now, "contrib-1", "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE movies SET synopsis = $1, updated_at = $2 WHERE id = $3")).
		WithArgs("A better synopsis", now, "movie-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Resolve(context.Background(), ResolveContributionParams{
		ID:         "contrib-1",
		Status:     models.StatusAccepted,
		VerifiedBy: "verifier-1",
		VerifiedAt: now,
		Merge:      true,
		MovieID:    "movie-1",
		Field:      models.FieldSynopsis,
		NewValue:   "A better synopsis",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContributionRepositoryResolveRejectSkipsMerge(t *testing.T) {
	db, mock, cleanup := newContributionRepoMock(t)
	defer cleanup()

	repo := NewContributionRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE contributions SET status = $1")).
		WithArgs("REJECTED", "verifier-1", now, "contrib-1", "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Resolve(context.Background(), ResolveContributionParams{
		ID:         "contrib-1",
		Status:     models.StatusRejected,
		VerifiedBy: "verifier-1",
		VerifiedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContributionRepositoryResolveStatusConflict(t *testing.T) {
	db, mock, cleanup := newContributionRepoMock(t)
	defer cleanup()

	repo := NewContributionRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE contributions SET status = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Resolve(context.Background(), ResolveContributionParams{
		ID:         "contrib-1",
		Status:     models.StatusAccepted,
		VerifiedBy: "verifier-1",
		VerifiedAt: now,
		Merge:      true,
		MovieID:    "movie-1",
		Field:      models.FieldSynopsis,
		NewValue:   "value",
	})
	require.ErrorIs(t, err, ErrStatusConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContributionRepositoryResolveMergeTargetMissing(t *testing.T) {
	db, mock, cleanup := newContributionRepoMock(t)
	defer cleanup()

	repo := NewContributionRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE contributions SET status = $1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE movies SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Resolve(context.Background(), ResolveContributionParams{
		ID:         "contrib-1",
		Status:     models.StatusAccepted,
		VerifiedBy: "verifier-1",
		VerifiedAt: now,
		Merge:      true,
		MovieID:    "movie-missing",
		Field:      models.FieldSynopsis,
		NewValue:   "value",
	})
	require.ErrorIs(t, err, ErrMovieRowMissing)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContributionRepositoryResolveMergeExecFailure(t *testing.T) {
	db, mock, cleanup := newContributionRepoMock(t)
	defer cleanup()

	repo := NewContributionRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE contributions SET status = $1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE movies SET")).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.Resolve(context.Background(), ResolveContributionParams{
		ID:         "contrib-1",
		Status:     models.StatusAccepted,
		VerifiedBy: "verifier-1",
		VerifiedAt: now,
		Merge:      true,
		MovieID:    "movie-1",
		Field:      models.FieldSynopsis,
		NewValue:   "value",
	})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrStatusConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContributionRepositoryCountByStatus(t *testing.T) {
	db, mock, cleanup := newContributionRepoMock(t)
	defer cleanup()

	repo := NewContributionRepository(db)
	rows := sqlmock.NewRows([]string{"status", "total"}).
		AddRow("PENDING", 4).
		AddRow("ACCEPTED", 2)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*)")).WillReturnRows(rows)

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, counts[models.StatusPending])
	require.Equal(t, 2, counts[models.StatusAccepted])
	require.NoError(t, mock.ExpectationsWereMet())
}
