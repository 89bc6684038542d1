package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JonkiPro/popcorn-sub004/internal/dto"
	"github.com/JonkiPro/popcorn-sub004/internal/middleware"
	"github.com/JonkiPro/popcorn-sub004/internal/models"
	appErrors "github.com/JonkiPro/popcorn-sub004/pkg/errors"
	"github.com/JonkiPro/popcorn-sub004/pkg/response"
)

type reportService interface {
	Request(ctx context.Context, req dto.CreateReportRequest, requestedBy string) (*models.ReportJob, error)
	Get(ctx context.Context, id string) (*models.ReportJob, error)
}

// ReportHandler exposes asynchronous review-log exports.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs the handler.
func NewReportHandler(service reportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// Create godoc
// @Summary Request a review-log export
// @Description Queues a CSV or PDF export of the contribution review log.
// @Tags reports
// @Accept json
// @Produce json
// @Param request body dto.CreateReportRequest true "Report parameters"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /reports [post]
func (h *ReportHandler) Create(c *gin.Context) {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	report, err := h.service.Request(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, report, nil)
}

// Get godoc
// @Summary Get a report
// @Description Returns report status, or the rendered document when download=true and the report completed.
// @Tags reports
// @Produce json
// @Param id path string true "Report identifier"
// @Param download query bool false "Stream the rendered document"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/{id} [get]
func (h *ReportHandler) Get(c *gin.Context) {
	report, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	if c.Query("download") == "true" {
		if report.Status != models.ReportStatusCompleted {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "report not completed yet"))
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+report.FileName+`"`)
		c.Data(http.StatusOK, report.ContentType, report.Content)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
