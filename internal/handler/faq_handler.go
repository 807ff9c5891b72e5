package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gfwl-hub/gfwl-hub-api/internal/dto"
	"github.com/gfwl-hub/gfwl-hub-api/internal/models"
	appErrors "github.com/gfwl-hub/gfwl-hub-api/pkg/errors"
	"github.com/gfwl-hub/gfwl-hub-api/pkg/response"
)

type faqService interface {
	List(ctx context.Context, actor *models.JWTClaims) ([]models.FAQ, error)
	Create(ctx context.Context, req dto.UpsertFAQRequest, actor *models.JWTClaims) (*models.FAQ, error)
	Update(ctx context.Context, id string, req dto.UpsertFAQRequest, actor *models.JWTClaims) (*models.FAQ, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
}

// FAQHandler exposes help entry endpoints.
type FAQHandler struct {
	service faqService
}

// NewFAQHandler constructs the handler.
func NewFAQHandler(service faqService) *FAQHandler {
	return &FAQHandler{service: service}
}

// List godoc
// @Summary List help entries
// @Tags FAQ
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /faqs [get]
func (h *FAQHandler) List(c *gin.Context) {
	faqs, err := h.service.List(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, faqs, nil)
}

// Create godoc
// @Summary Create a help entry
// @Tags FAQ
// @Accept json
// @Produce json
// @Param payload body dto.UpsertFAQRequest true "FAQ payload"
// @Success 201 {object} response.Envelope
// @Router /faqs [post]
func (h *FAQHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpsertFAQRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid faq payload"))
		return
	}
	faq, err := h.service.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, faq, nil)
}

// Update godoc
// @Summary Update a help entry
// @Tags FAQ
// @Accept json
// @Produce json
// @Param id path string true "FAQ ID"
// @Param payload body dto.UpsertFAQRequest true "FAQ payload"
// @Success 200 {object} response.Envelope
// @Router /faqs/{id} [put]
func (h *FAQHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpsertFAQRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid faq payload"))
		return
	}
	faq, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, faq, nil)
}

// Delete godoc
// @Summary Delete a help entry
// @Tags FAQ
// @Param id path string true "FAQ ID"
// @Success 204
// @Router /faqs/{id} [delete]
func (h *FAQHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
