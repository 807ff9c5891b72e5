package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gfwl-hub/gfwl-hub-api/internal/dto"
	"github.com/gfwl-hub/gfwl-hub-api/internal/models"
	appErrors "github.com/gfwl-hub/gfwl-hub-api/pkg/errors"
	"github.com/gfwl-hub/gfwl-hub-api/pkg/response"
)

type correctionService interface {
	Submit(ctx context.Context, req dto.CreateCorrectionRequest, actor *models.JWTClaims) (*models.Correction, error)
	List(ctx context.Context, query dto.CorrectionQuery, actor *models.JWTClaims) ([]models.Correction, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Correction, error)
	Review(ctx context.Context, id string, req dto.ReviewCorrectionRequest, actor *models.JWTClaims, ip, userAgent string) (*models.Correction, error)
}

// CorrectionHandler exposes REST endpoints for the correction workflow.
type CorrectionHandler struct {
	service correctionService
}

// NewCorrectionHandler constructs the handler.
func NewCorrectionHandler(service correctionService) *CorrectionHandler {
	return &CorrectionHandler{service: service}
}

// Create godoc
// @Summary Propose a correction to a game field
// @Tags Corrections
// @Accept json
// @Produce json
// @Param payload body dto.CreateCorrectionRequest true "Correction payload"
// @Success 201 {object} response.Envelope
// @Router /corrections [post]
func (h *CorrectionHandler) Create(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "correction service not configured"))
		return
	}
	var req dto.CreateCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid correction payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	correction, err := h.service.Submit(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, correction, nil)
}

// List godoc
// @Summary List corrections
// @Tags Corrections
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param game query string false "Game slug"
// @Param user query string false "Submitter ID"
// @Success 200 {object} response.Envelope
// @Router /corrections [get]
func (h *CorrectionHandler) List(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "correction service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := dto.CorrectionQuery{
		GameSlug: strings.TrimSpace(c.Query("game")),
		UserID:   strings.TrimSpace(c.Query("user")),
	}
	if rawStatus := c.Query("status"); rawStatus != "" {
		parts := strings.Split(rawStatus, ",")
		statuses := make([]models.CorrectionStatus, 0, len(parts))
		for _, part := range parts {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			statuses = append(statuses, models.CorrectionStatus(part))
		}
		query.Status = statuses
	}
	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			query.Limit = limit
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil {
			query.Offset = offset
		}
	}
	corrections, err := h.service.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, corrections, nil)
}

// Get godoc
// @Summary Get correction detail
// @Tags Corrections
// @Produce json
// @Param id path string true "Correction ID"
// @Success 200 {object} response.Envelope
// @Router /corrections/{id} [get]
func (h *CorrectionHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "correction service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	correction, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, correction, nil)
}

// Review godoc
// @Summary Review a pending correction
// @Tags Corrections
// @Accept json
// @Produce json
// @Param id path string true "Correction ID"
// @Param payload body dto.ReviewCorrectionRequest true "Review decision"
// @Success 200 {object} response.Envelope
// @Router /corrections/{id}/review [post]
func (h *CorrectionHandler) Review(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "correction service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ReviewCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
		return
	}
	correction, err := h.service.Review(c.Request.Context(), c.Param("id"), req, claims, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, correction, nil)
}
