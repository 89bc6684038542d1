package handler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/JonkiPro/popcorn-sub004/internal/dto"
	"github.com/JonkiPro/popcorn-sub004/internal/middleware"
	"github.com/JonkiPro/popcorn-sub004/internal/models"
	appErrors "github.com/JonkiPro/popcorn-sub004/pkg/errors"
	"github.com/JonkiPro/popcorn-sub004/pkg/response"
)

// ContributionHandler exposes the contribution workflow endpoints.
type ContributionHandler struct {
	service contributionService
	metrics verificationObserver
}

type contributionService interface {
	Submit(ctx context.Context, req dto.SubmitContributionRequest, proposerID string) (*models.Contribution, error)
	List(ctx context.Context, query dto.ContributionQuery) ([]models.Contribution, error)
	Get(ctx context.Context, id string) (*models.Contribution, error)
	Verify(ctx context.Context, id string, req dto.VerifyContributionRequest, verifierID string) (*models.Contribution, error)
}

type verificationObserver interface {
	RecordVerification(status string)
}

// NewContributionHandler constructs the handler.
func NewContributionHandler(service contributionService, metrics verificationObserver) *ContributionHandler {
	return &ContributionHandler{service: service, metrics: metrics}
}

// Submit godoc
// @Summary Submit a contribution
// @Description Proposes a new value for a single movie field. The contribution starts in PENDING.
// @Tags contributions
// @Accept json
// @Produce json
// @Param request body dto.SubmitContributionRequest true "Contribution payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /contributions [post]
func (h *ContributionHandler) Submit(c *gin.Context) {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.SubmitContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	contribution, err := h.service.Submit(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, contribution)
}

// List godoc
// @Summary List contributions
// @Description Returns contributions matching the optional filters. All criteria combine as AND.
// @Tags contributions
// @Produce json
// @Param movie_id query string false "Movie identifier"
// @Param field query string false "Movie field"
// @Param status query string false "Contribution status" Enums(PENDING, ACCEPTED, REJECTED)
// @Param from query string false "Inclusive lower submission bound (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "Inclusive upper submission bound (RFC3339 or YYYY-MM-DD)"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /contributions [get]
func (h *ContributionHandler) List(c *gin.Context) {
	query, err := parseContributionQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	contributions, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, 200, contributions, nil)
}

// Get godoc
// @Summary Get a contribution
// @Tags contributions
// @Produce json
// @Param id path string true "Contribution identifier"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /contributions/{id} [get]
func (h *ContributionHandler) Get(c *gin.Context) {
	contribution, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, 200, contribution, nil)
}

// Verify godoc
// @Summary Verify a contribution
// @Description Applies an ACCEPT or REJECT decision. Accepting merges the proposed value into the movie record.
// @Tags contributions
// @Accept json
// @Produce json
// @Param id path string true "Contribution identifier"
// @Param request body dto.VerifyContributionRequest true "Reviewer decision"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 424 {object} response.Envelope
// @Security BearerAuth
// @Router /contributions/{id}/verify [post]
func (h *ContributionHandler) Verify(c *gin.Context) {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.VerifyContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	contribution, err := h.service.Verify(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordVerification(string(contribution.Status))
	}
	response.JSON(c, 200, contribution, nil)
}

func parseContributionQuery(c *gin.Context) (dto.ContributionQuery, error) {
	query := dto.ContributionQuery{
		MovieID: strings.TrimSpace(c.Query("movie_id")),
	}

	if raw := strings.TrimSpace(c.Query("field")); raw != "" {
		field := models.MovieField(strings.ToUpper(raw))
		if !field.Valid() {
			return query, appErrors.Clone(appErrors.ErrValidation, "unsupported movie field")
		}
		query.Field = field
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := models.DataStatus(strings.ToUpper(raw))
		switch status {
		case models.StatusPending, models.StatusAccepted, models.StatusRejected:
			query.Status = status
		default:
			return query, appErrors.Clone(appErrors.ErrValidation, "unknown contribution status")
		}
	}

	from, err := parseBound(c.Query("from"), false)
	if err != nil {
		return query, appErrors.Clone(appErrors.ErrValidation, "invalid 'from' timestamp")
	}
	to, err := parseBound(c.Query("to"), true)
	if err != nil {
		return query, appErrors.Clone(appErrors.ErrValidation, "invalid 'to' timestamp")
	}
	query.From = from
	query.To = to

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return query, appErrors.Clone(appErrors.ErrValidation, "invalid 'limit'")
		}
		query.Limit = limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return query, appErrors.Clone(appErrors.ErrValidation, "invalid 'offset'")
		}
		query.Offset = offset
	}
	return query, nil
}

// parseBound accepts RFC3339 timestamps or bare dates. A date-only upper
// bound is widened to the end of that day so the range stays inclusive.
func parseBound(raw string, upper bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return &ts, nil
	}
	ts, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	if upper {
		ts = ts.Add(24*time.Hour - time.Nanosecond)
	}
	return &ts, nil
}
