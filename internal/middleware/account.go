package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/gfwl-hub/gfwl-hub-api/internal/models"
	appErrors "github.com/gfwl-hub/gfwl-hub-api/pkg/errors"
	"github.com/gfwl-hub/gfwl-hub-api/pkg/response"
)

type accountStatusFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// ActiveAccount re-checks the caller's account status on each request so that
// blocking or deleting a user takes effect before their access token expires.
// Suspended accounts keep read access; write checks happen in the services.
func ActiveAccount(users accountStatusFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		user, err := users.FindByID(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if user.Status == models.StatusBlocked || user.Status == models.StatusDeleted {
			response.Error(c, appErrors.ErrAccountSuspended)
			c.Abort()
			return
		}

		// Role changes apply immediately, not on the next token refresh.
		claims.Role = user.Role
		c.Next()
	}
}
