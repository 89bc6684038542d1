package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/JonkiPro/popcorn-sub004/internal/models"
)

const movieColumns = `id, title, original_title, synopsis, genre, country, language, release_date, budget, box_office, website, created_at, updated_at`

// MovieRepository persists canonical movie records.
type MovieRepository struct {
	db *sqlx.DB
}

// NewMovieRepository constructs the repository.
func NewMovieRepository(db *sqlx.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// Create inserts a new movie row.
func (r *MovieRepository) Create(ctx context.Context, movie *models.Movie) error {
	if movie.ID == "" {
		movie.ID = uuid.NewString()
	}
	if movie.CreatedAt.IsZero() {
		movie.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO movies
	(id, title, original_title, synopsis, genre, country, language, release_date, budget, box_office, website, created_at, updated_at)
	VALUES (:id, :title, :original_title, :synopsis, :genre, :country, :language, :release_date, :budget, :box_office, :website, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, movie); err != nil {
		return fmt.Errorf("create movie: %w", err)
	}
	return nil
}

// GetByID fetches a movie by identifier.
func (r *MovieRepository) GetByID(ctx context.Context, id string) (*models.Movie, error) {
	query := `SELECT ` + movieColumns + ` FROM movies WHERE id = $1`
	var movie models.Movie
	if err := r.db.GetContext(ctx, &movie, query, id); err != nil {
		return nil, err
	}
	return &movie, nil
}

// Exists reports whether a movie row is present.
func (r *MovieRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM movies WHERE id = $1)`, id); err != nil {
		return false, fmt.Errorf("check movie exists: %w", err)
	}
	return exists, nil
}

// List returns movies matching the query, paginated and sorted by title.
func (r *MovieRepository) List(ctx context.Context, query models.MovieListQuery) ([]models.Movie, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 1)
	builder.WriteString(`SELECT ` + movieColumns + ` FROM movies`)
	if query.Search != "" {
		args = append(args, "%"+strings.ToLower(query.Search)+"%")
		builder.WriteString(fmt.Sprintf(" WHERE LOWER(title) LIKE $%d OR LOWER(COALESCE(original_title, '')) LIKE $%d", len(args), len(args)))
	}
	builder.WriteString(" ORDER BY title ASC")

	pageSize := query.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	page := query.Page
	if page < 1 {
		page = 1
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize))

	var movies []models.Movie
	if err := r.db.SelectContext(ctx, &movies, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	return movies, nil
}

// Count returns the total number of movies matching the query.
func (r *MovieRepository) Count(ctx context.Context, query models.MovieListQuery) (int, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 1)
	builder.WriteString(`SELECT COUNT(*) FROM movies`)
	if query.Search != "" {
		args = append(args, "%"+strings.ToLower(query.Search)+"%")
		builder.WriteString(fmt.Sprintf(" WHERE LOWER(title) LIKE $%d OR LOWER(COALESCE(original_title, '')) LIKE $%d", len(args), len(args)))
	}
	var total int
	if err := r.db.GetContext(ctx, &total, builder.String(), args...); err != nil {
		return 0, fmt.Errorf("count movies: %w", err)
	}
	return total, nil
}
