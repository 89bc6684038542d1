package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/JonkiPro/popcorn-sub004/internal/models"
)

// Sentinel errors distinguishing the two empty-update cases of Resolve.
var (
	// ErrStatusConflict means the conditional update matched no PENDING row:
	// the contribution was resolved by a concurrent verification.
	ErrStatusConflict = errors.New("contribution no longer pending")
	// ErrMovieRowMissing means the merge target row was absent; the whole
	// resolution was rolled back.
	ErrMovieRowMissing = errors.New("movie row not found")
)

const contributionColumns = `id, movie_id, field, new_value, submitted_by, status, submitted_at, verified_by, verified_at`

// ContributionRepository persists the contribution review workflow.
type ContributionRepository struct {
	db *sqlx.DB
}

// NewContributionRepository constructs the repository.
func NewContributionRepository(db *sqlx.DB) *ContributionRepository {
	return &ContributionRepository{db: db}
}

// Create inserts a new contribution row.
func (r *ContributionRepository) Create(ctx context.Context, contribution *models.Contribution) error {
	if contribution.ID == "" {
		contribution.ID = uuid.NewString()
	}
	if contribution.Status == "" {
		contribution.Status = models.StatusPending
	}
	if contribution.SubmittedAt.IsZero() {
		contribution.SubmittedAt = time.Now().UTC()
	}
	const query = `INSERT INTO contributions
	(id, movie_id, field, new_value, submitted_by, status, submitted_at, verified_by, verified_at)
	VALUES (:id, :movie_id, :field, :new_value, :submitted_by, :status, :submitted_at, :verified_by, :verified_at)`
	if _, err := r.db.NamedExecContext(ctx, query, contribution); err != nil {
		return fmt.Errorf("create contribution: %w", err)
	}
	return nil
}

// GetByID fetches a contribution by identifier.
func (r *ContributionRepository) GetByID(ctx context.Context, id string) (*models.Contribution, error) {
	query := `SELECT ` + contributionColumns + ` FROM contributions WHERE id = $1`
	var contribution models.Contribution
	if err := r.db.GetContext(ctx, &contribution, query, id); err != nil {
		return nil, err
	}
	return &contribution, nil
}

// List returns contributions matching the filter, newest first. Each present
// criterion narrows the scan; an empty filter returns everything within the
// page bounds. Date bounds are inclusive.
func (r *ContributionRepository) List(ctx context.Context, filter models.ContributionFilter) ([]models.Contribution, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 5)
	builder.WriteString(`SELECT ` + contributionColumns + ` FROM contributions`)

	conditions := make([]string, 0, 5)
	if filter.MovieID != "" {
		args = append(args, filter.MovieID)
		conditions = append(conditions, fmt.Sprintf("movie_id = $%d", len(args)))
	}
	if filter.Field != "" {
		args = append(args, filter.Field)
		conditions = append(conditions, fmt.Sprintf("field = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("submitted_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("submitted_at <= $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY submitted_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var contributions []models.Contribution
	if err := r.db.SelectContext(ctx, &contributions, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	return contributions, nil
}

// ResolveContributionParams groups the columns written by a verification.
type ResolveContributionParams struct {
	ID         string
	Status     models.DataStatus
	VerifiedBy string
	VerifiedAt time.Time

	// Merge is set on the accept path: the proposed value is applied to the
	// movie record inside the same transaction as the status flip.
	Merge    bool
	MovieID  string
	Field    models.MovieField
	NewValue string
}

// Resolve flips a PENDING contribution to its terminal status and, for an
// acceptance, merges the proposed value into the canonical movie record.
// Both writes share one transaction: either the contribution is terminal and
// the movie reflects the value, or neither happened. The status flip is
// conditional on the row still being PENDING, which is what serializes
// concurrent verifications of the same contribution.
func (r *ContributionRepository) Resolve(ctx context.Context, params ResolveContributionParams) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin resolve: %w", err)
	}

	const update = `UPDATE contributions SET status = $1, verified_by = $2, verified_at = $3
	WHERE id = $4 AND status = $5`
	result, err := tx.ExecContext(ctx, update, params.Status, params.VerifiedBy, params.VerifiedAt, params.ID, models.StatusPending)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("update contribution status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("check contribution update rows: %w", err)
	}
	if rows == 0 {
		tx.Rollback() //nolint:errcheck
		return ErrStatusConflict
	}

	if params.Merge {
		column, ok := params.Field.Column()
		if !ok {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("unknown movie field: %s", params.Field)
		}
		merge := fmt.Sprintf(`UPDATE movies SET %s = $1, updated_at = $2 WHERE id = $3`, column)
		result, err = tx.ExecContext(ctx, merge, params.NewValue, params.VerifiedAt, params.MovieID)
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("merge accepted value: %w", err)
		}
		rows, err = result.RowsAffected()
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("check merge rows: %w", err)
		}
		if rows == 0 {
			tx.Rollback() //nolint:errcheck
			return ErrMovieRowMissing
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit resolve: %w", err)
	}
	return nil
}

// CountByStatus aggregates the review backlog for the metrics gauge.
func (r *ContributionRepository) CountByStatus(ctx context.Context) (map[models.DataStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS total FROM contributions GROUP BY status`
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count contributions: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.DataStatus]int)
	for rows.Next() {
		var row struct {
			Status models.DataStatus `db:"status"`
			Total  int               `db:"total"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scan contribution count: %w", err)
		}
		counts[row.Status] = row.Total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contribution counts: %w", err)
	}
	return counts, nil
}
