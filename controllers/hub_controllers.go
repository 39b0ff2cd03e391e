package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/cleanshift/hub"
	"github.com/yeremiapane/cleanshift/models"
	"github.com/yeremiapane/cleanshift/utils"
)

type HubController struct {
	Hub      *hub.Hub
	upgrader websocket.Upgrader
}

// NewHubController accepts websocket upgrades from allowedOrigin, or from any
// origin when it is empty or "*".
func NewHubController(h *hub.Hub, allowedOrigin string) *HubController {
	return &HubController{
		Hub: h,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" || allowedOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
	}
}

// Connect -> live dashboard websocket endpoint
func (hc *HubController) Connect(c *gin.Context) {
	role := c.GetString("role")
	if role != models.RoleAdmin && role != models.RoleWorker {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}
	if p := c.Param("role"); p != "" && p != role {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := hc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Printf("Websocket upgrade failed: %v", err)
		return
	}

	hc.Hub.Register(ws, role, userID)
	utils.InfoLogger.Printf("Dashboard client connected (role=%s, clients=%d)", role, hc.Hub.ClientCount())

	// drain until the peer goes away
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	hc.Hub.Unregister(ws)
}
