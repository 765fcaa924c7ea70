package handlers

import (
	"github.com/bidzi/bidzi-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// WebSocketHandler upgrades the connection and attaches it to the hub. Auth
// middleware has already resolved the user from the token query param.
func WebSocketHandler(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		userType := c.GetString("userType")

		services.HandleWebSocket(hub, c.Writer, c.Request, userId, userType)
	}
}
