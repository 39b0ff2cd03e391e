package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cleanshift/models"
	"github.com/yeremiapane/cleanshift/utils"
)

// dashboardToken prefers a bearer header and falls back to ?token=, since browsers
// cannot set headers on a websocket upgrade.
func dashboardToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Query("token")
}

// WebSocketAuthMiddleware admits admin and worker dashboards to the live hub.
func WebSocketAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := dashboardToken(c)
		if token == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Token missing"))
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(token)
		if err != nil || claims.UserID == 0 {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Invalid or expired token"))
			c.Abort()
			return
		}
		if claims.Role != models.RoleAdmin && claims.Role != models.RoleWorker {
			utils.RespondError(c, http.StatusForbidden, errors.New("No live dashboard for this role"))
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Next()
	}
}
