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

type dashboardService interface {
	Reviewer(ctx context.Context) (*dto.ReviewerDashboard, error)
	User(ctx context.Context, userID string) (*dto.UserDashboard, error)
	Admin(ctx context.Context) (*dto.AdminDashboard, error)
}

// DashboardHandler serves the role-specific summary views.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Get godoc
// @Summary Get the dashboard for the caller's role
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	ctx := c.Request.Context()
	switch claims.Role {
	case models.RoleAdmin:
		dashboard, err := h.service.Admin(ctx)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, dashboard, nil)
	case models.RoleReviewer:
		dashboard, err := h.service.Reviewer(ctx)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, dashboard, nil)
	default:
		dashboard, err := h.service.User(ctx, claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, dashboard, nil)
	}
}
