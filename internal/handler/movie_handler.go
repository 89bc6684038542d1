package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/JonkiPro/popcorn-sub004/internal/dto"
	"github.com/JonkiPro/popcorn-sub004/internal/middleware"
	"github.com/JonkiPro/popcorn-sub004/internal/models"
	appErrors "github.com/JonkiPro/popcorn-sub004/pkg/errors"
	"github.com/JonkiPro/popcorn-sub004/pkg/response"
)

type movieService interface {
	Create(ctx context.Context, req dto.CreateMovieRequest, creatorID string) (*models.Movie, error)
	Get(ctx context.Context, id string) (*models.Movie, error)
	List(ctx context.Context, query dto.MovieQuery) ([]models.Movie, *models.Pagination, error)
}

// MovieHandler exposes the movie catalog endpoints.
type MovieHandler struct {
	service movieService
}

// NewMovieHandler constructs the handler.
func NewMovieHandler(service movieService) *MovieHandler {
	return &MovieHandler{service: service}
}

// Create godoc
// @Summary Create a movie
// @Description Registers a new canonical movie record. Admin only.
// @Tags movies
// @Accept json
// @Produce json
// @Param request body dto.CreateMovieRequest true "Movie payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /movies [post]
func (h *MovieHandler) Create(c *gin.Context) {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateMovieRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	movie, err := h.service.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, movie)
}

// Get godoc
// @Summary Get a movie
// @Tags movies
// @Produce json
// @Param id path string true "Movie identifier"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /movies/{id} [get]
func (h *MovieHandler) Get(c *gin.Context) {
	movie, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, 200, movie, nil)
}

// List godoc
// @Summary List movies
// @Tags movies
// @Produce json
// @Param search query string false "Title search"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /movies [get]
func (h *MovieHandler) List(c *gin.Context) {
	query := dto.MovieQuery{Search: strings.TrimSpace(c.Query("search"))}
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid 'page'"))
			return
		}
		query.Page = page
	}
	if raw := c.Query("page_size"); raw != "" {
		pageSize, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid 'page_size'"))
			return
		}
		query.PageSize = pageSize
	}

	movies, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, 200, movies, pagination)
}
