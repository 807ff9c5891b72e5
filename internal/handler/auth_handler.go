package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gfwl-hub/gfwl-hub-api/internal/models"
	"github.com/gfwl-hub/gfwl-hub-api/internal/service"
	appErrors "github.com/gfwl-hub/gfwl-hub-api/pkg/errors"
	"github.com/gfwl-hub/gfwl-hub-api/pkg/response"
)

const (
	stateCookieName = "oauth_state"
	stateCookieAge  = 10 * 60
)

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Login godoc
// @Summary Start an OAuth sign-in
// @Description Redirects to the provider's consent page
// @Tags Authentication
// @Param provider path string true "Provider (discord or google)"
// @Success 307
// @Failure 404 {object} response.Envelope
// @Router /auth/{provider}/login [get]
func (h *AuthHandler) Login(c *gin.Context) {
	state, err := h.service.GenerateState()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "failed to generate state"))
		return
	}

	url, err := h.service.LoginURL(c.Param("provider"), state)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookieName, state, stateCookieAge, "/", "", false, true)
	c.Redirect(http.StatusTemporaryRedirect, url)
}

// Callback godoc
// @Summary Complete an OAuth sign-in
// @Description Exchanges the provider code for access and refresh tokens
// @Tags Authentication
// @Produce json
// @Param provider path string true "Provider (discord or google)"
// @Param code query string true "Authorization code"
// @Param state query string true "Anti-forgery state"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/{provider}/callback [get]
func (h *AuthHandler) Callback(c *gin.Context) {
	state := c.Query("state")
	cookie, err := c.Cookie(stateCookieName)
	if err != nil || state == "" || state != cookie {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "state mismatch"))
		return
	}
	c.SetCookie(stateCookieName, "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "missing authorization code"))
		return
	}

	res, err := h.service.HandleCallback(c.Request.Context(), c.Param("provider"), code, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Refresh godoc
// @Summary Refresh access token
// @Description Exchange refresh token for a new access token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RefreshTokenRequest true "Refresh payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid refresh payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.RefreshToken(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Logout godoc
// @Summary Logout current session
// @Description Revoke the presented refresh token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body map[string]string true "Refresh token"
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "refresh token required"))
		return
	}

	if err := h.service.Logout(c.Request.Context(), payload.RefreshToken, claims.UserID, c.ClientIP(), c.GetHeader("User-Agent")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Me godoc
// @Summary Get current user
// @Description Returns the authenticated user's info
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	info := models.UserInfo{
		ID:          claims.UserID,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		Role:        claims.Role,
	}

	response.JSON(c, http.StatusOK, info, nil)
}
