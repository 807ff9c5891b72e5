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

type gameService interface {
	Get(ctx context.Context, slug string, actor *models.JWTClaims) (*models.Game, error)
	List(ctx context.Context, query dto.GameQuery, actor *models.JWTClaims) ([]models.Game, *models.Pagination, error)
	Create(ctx context.Context, req dto.CreateGameRequest, actor *models.JWTClaims, ip, userAgent string) (*models.Game, error)
	Update(ctx context.Context, slug string, req dto.UpdateGameRequest, actor *models.JWTClaims, ip, userAgent string) (*models.Game, error)
	Publish(ctx context.Context, slug string, actor *models.JWTClaims, ip, userAgent string) (*models.Game, error)
}

// GameHandler exposes catalogue endpoints.
type GameHandler struct {
	service gameService
}

// NewGameHandler constructs the handler.
func NewGameHandler(service gameService) *GameHandler {
	return &GameHandler{service: service}
}

// List godoc
// @Summary List catalogue entries
// @Tags Games
// @Produce json
// @Param search query string false "Title search"
// @Param published query bool false "Published filter (privileged only)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /games [get]
func (h *GameHandler) List(c *gin.Context) {
	query := dto.GameQuery{Search: strings.TrimSpace(c.Query("search"))}
	if raw := c.Query("published"); raw != "" {
		if published, err := strconv.ParseBool(raw); err == nil {
			query.Published = &published
		}
	}
	if raw := c.Query("page"); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil {
			query.Page = page
		}
	}
	if raw := c.Query("page_size"); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil {
			query.PageSize = size
		}
	}

	games, pagination, err := h.service.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, games, pagination)
}

// Get godoc
// @Summary Get a catalogue entry
// @Tags Games
// @Produce json
// @Param slug path string true "Game slug"
// @Success 200 {object} response.Envelope
// @Router /games/{slug} [get]
func (h *GameHandler) Get(c *gin.Context) {
	game, err := h.service.Get(c.Request.Context(), c.Param("slug"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, game, nil)
}

// Create godoc
// @Summary Register a new title
// @Tags Games
// @Accept json
// @Produce json
// @Param payload body dto.CreateGameRequest true "Game payload"
// @Success 201 {object} response.Envelope
// @Router /games [post]
func (h *GameHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid game payload"))
		return
	}
	game, err := h.service.Create(c.Request.Context(), req, claims, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, game, nil)
}

// Update godoc
// @Summary Edit catalogue fields directly
// @Tags Games
// @Accept json
// @Produce json
// @Param slug path string true "Game slug"
// @Param payload body dto.UpdateGameRequest true "Patch payload"
// @Success 200 {object} response.Envelope
// @Router /games/{slug} [patch]
func (h *GameHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid game payload"))
		return
	}
	game, err := h.service.Update(c.Request.Context(), c.Param("slug"), req, claims, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, game, nil)
}

// Publish godoc
// @Summary Publish a draft title
// @Tags Games
// @Produce json
// @Param slug path string true "Game slug"
// @Success 200 {object} response.Envelope
// @Router /games/{slug}/publish [post]
func (h *GameHandler) Publish(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	game, err := h.service.Publish(c.Request.Context(), c.Param("slug"), claims, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, game, nil)
}
