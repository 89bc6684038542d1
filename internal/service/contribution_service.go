package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/JonkiPro/popcorn-sub004/internal/dto"
	"github.com/JonkiPro/popcorn-sub004/internal/models"
	"github.com/JonkiPro/popcorn-sub004/internal/repository"
	"github.com/JonkiPro/popcorn-sub004/pkg/config"
	appErrors "github.com/JonkiPro/popcorn-sub004/pkg/errors"
)

type contributionStore interface {
	Create(ctx context.Context, contribution *models.Contribution) error
	GetByID(ctx context.Context, id string) (*models.Contribution, error)
	List(ctx context.Context, filter models.ContributionFilter) ([]models.Contribution, error)
	Resolve(ctx context.Context, params repository.ResolveContributionParams) error
}

type movieChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ContributionService owns the contribution lifecycle: submission into
// PENDING, filtered listing, and the single verification transition that
// accepts or rejects a proposal.
type ContributionService struct {
	repo      contributionStore
	movies    movieChecker
	audit     auditLogger
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       config.ContributionsConfig
}

// NewContributionService constructs the service.
func NewContributionService(repo contributionStore, movies movieChecker, audit auditLogger, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cfg config.ContributionsConfig) *ContributionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 50
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 200
	}
	return &ContributionService{
		repo:      repo,
		movies:    movies,
		audit:     audit,
		cache:     cache,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Submit stores a new PENDING contribution for the given movie field. Several
// pending proposals may coexist for the same (movie, field); reviewers
// resolve the overlap by accepting at most one.
func (s *ContributionService) Submit(ctx context.Context, req dto.SubmitContributionRequest, proposerID string) (*models.Contribution, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid contribution payload")
	}
	field := models.MovieField(strings.ToUpper(strings.TrimSpace(string(req.Field))))
	if !field.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported movie field")
	}
	exists, err := s.movies.Exists(ctx, req.MovieID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check movie")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "movie not found")
	}

	contribution := &models.Contribution{
		MovieID:     req.MovieID,
		Field:       field,
		NewValue:    req.NewValue,
		SubmittedBy: proposerID,
		Status:      models.StatusPending,
	}
	if err := s.repo.Create(ctx, contribution); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create contribution")
	}

	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &proposerID,
		Action:     models.AuditActionContributionSubmit,
		Resource:   "contribution",
		ResourceID: &contribution.ID,
		NewValues:  mustJSON(map[string]string{"field": string(field), "new_value": req.NewValue}),
	})
	return contribution, nil
}

// List returns contributions matching the query. Reads take no locks; the
// result is a snapshot of committed state and re-querying re-evaluates.
func (s *ContributionService) List(ctx context.Context, query dto.ContributionQuery) ([]models.Contribution, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultPageSize
	}
	if limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}
	filter := models.ContributionFilter{
		MovieID: query.MovieID,
		Field:   query.Field,
		Status:  query.Status,
		From:    query.From,
		To:      query.To,
		Limit:   limit,
		Offset:  query.Offset,
	}
	contributions, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contributions")
	}
	return contributions, nil
}

// Get returns a single contribution by id.
func (s *ContributionService) Get(ctx context.Context, id string) (*models.Contribution, error) {
	contribution, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "contribution not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contribution")
	}
	return contribution, nil
}

// Verify applies the reviewer decision. An acceptance merges the proposed
// value into the canonical movie record in the same transaction that flips
// the status, so the contribution is never marked ACCEPTED without the merge
// nor merged without the mark. A losing concurrent verification surfaces as
// ErrAlreadyResolved; a failed merge leaves the contribution PENDING so the
// same call can be retried.
func (s *ContributionService) Verify(ctx context.Context, id string, req dto.VerifyContributionRequest, verifierID string) (*models.Contribution, error) {
	decision := models.VerificationDecision(strings.ToUpper(strings.TrimSpace(string(req.Decision))))
	target, ok := decision.Outcome()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "decision must be ACCEPT or REJECT")
	}

	contribution, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "contribution not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contribution")
	}
	if contribution.Status != models.StatusPending {
		return nil, appErrors.ErrAlreadyResolved
	}

	now := time.Now().UTC()
	params := repository.ResolveContributionParams{
		ID:         contribution.ID,
		Status:     target,
		VerifiedBy: verifierID,
		VerifiedAt: now,
		Merge:      target == models.StatusAccepted,
		MovieID:    contribution.MovieID,
		Field:      contribution.Field,
		NewValue:   contribution.NewValue,
	}
	if err := s.repo.Resolve(ctx, params); err != nil {
		switch {
		case errors.Is(err, repository.ErrStatusConflict):
			return nil, appErrors.ErrAlreadyResolved
		case errors.Is(err, repository.ErrMovieRowMissing):
			return nil, appErrors.Clone(appErrors.ErrMergeFailed, "movie record not found")
		default:
			if params.Merge {
				return nil, appErrors.Wrap(err, appErrors.ErrMergeFailed.Code, appErrors.ErrMergeFailed.Status, "failed to apply accepted value")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update contribution")
		}
	}

	contribution.Status = target
	contribution.VerifiedBy = &verifierID
	contribution.VerifiedAt = &now

	if target == models.StatusAccepted && s.cache.Enabled() {
		if err := s.cache.Invalidate(ctx, "movies:"+contribution.MovieID+"*"); err != nil {
			s.logger.Warn("failed to invalidate movie cache", zap.String("movie_id", contribution.MovieID), zap.Error(err))
		}
	}

	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &verifierID,
		Action:     models.AuditActionContributionVerify,
		Resource:   "contribution",
		ResourceID: &contribution.ID,
		NewValues:  mustJSON(map[string]string{"decision": string(decision), "status": string(target)}),
	})
	return contribution, nil
}

func (s *ContributionService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	log.IPAddress = "system"
	log.UserAgent = "contribution-service"
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func mustJSON(v interface{}) []byte {
	payload, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return payload
}
