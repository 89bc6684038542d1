package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/JonkiPro/popcorn-sub004/internal/dto"
	"github.com/JonkiPro/popcorn-sub004/internal/models"
	appErrors "github.com/JonkiPro/popcorn-sub004/pkg/errors"
)

type movieStore interface {
	Create(ctx context.Context, movie *models.Movie) error
	GetByID(ctx context.Context, id string) (*models.Movie, error)
	List(ctx context.Context, query models.MovieListQuery) ([]models.Movie, error)
	Count(ctx context.Context, query models.MovieListQuery) (int, error)
}

// MovieService serves the canonical movie catalog. Reads go cache-aside
// through Redis when enabled; the contribution accept path invalidates the
// same keys after a merge.
type MovieService struct {
	repo      movieStore
	cache     *CacheService
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMovieService constructs the service.
func NewMovieService(repo movieStore, cache *CacheService, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *MovieService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &MovieService{
		repo:      repo,
		cache:     cache,
		audit:     audit,
		validator: validate,
		logger:    logger,
	}
}

// Create registers a new movie record. Only admins reach this path; everyone
// else changes movies through contributions.
func (s *MovieService) Create(ctx context.Context, req dto.CreateMovieRequest, creatorID string) (*models.Movie, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid movie payload")
	}

	movie := &models.Movie{
		Title:         req.Title,
		OriginalTitle: optional(req.OriginalTitle),
		Synopsis:      optional(req.Synopsis),
		Genre:         optional(req.Genre),
		Country:       optional(req.Country),
		Language:      optional(req.Language),
		ReleaseDate:   optional(req.ReleaseDate),
		Budget:        optional(req.Budget),
		BoxOffice:     optional(req.BoxOffice),
		Website:       optional(req.Website),
	}
	if err := s.repo.Create(ctx, movie); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create movie")
	}

	if s.audit != nil {
		log := &models.AuditLog{
			UserID:     &creatorID,
			Action:     models.AuditActionMovieCreate,
			Resource:   "movie",
			ResourceID: &movie.ID,
			NewValues:  mustJSON(map[string]string{"title": movie.Title}),
			IPAddress:  "system",
			UserAgent:  "movie-service",
		}
		if err := s.audit.CreateAuditLog(ctx, log); err != nil {
			s.logger.Warn("failed to persist audit log", zap.Error(err))
		}
	}
	return movie, nil
}

// Get returns a movie by id, consulting the cache first.
func (s *MovieService) Get(ctx context.Context, id string) (*models.Movie, error) {
	key := movieCacheKey(id)
	if s.cache.Enabled() {
		var cached models.Movie
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("movie cache read failed", zap.String("movie_id", id), zap.Error(err))
		}
	}

	movie, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "movie not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load movie")
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, key, movie); err != nil {
			s.logger.Warn("movie cache write failed", zap.String("movie_id", id), zap.Error(err))
		}
	}
	return movie, nil
}

// List returns a catalog page plus pagination metadata.
func (s *MovieService) List(ctx context.Context, query dto.MovieQuery) ([]models.Movie, *models.Pagination, error) {
	listQuery := models.MovieListQuery{
		Search:   query.Search,
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	movies, err := s.repo.List(ctx, listQuery)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list movies")
	}
	total, err := s.repo.Count(ctx, listQuery)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count movies")
	}

	page := listQuery.Page
	if page <= 0 {
		page = 1
	}
	pageSize := listQuery.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	return movies, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

func movieCacheKey(id string) string {
	return fmt.Sprintf("movies:%s", id)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
