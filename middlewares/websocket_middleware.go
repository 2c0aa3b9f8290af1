package middlewares

import (
	"github.com/andikamaulana/portal-sekolah/utils"
	"github.com/gin-gonic/gin"
)

// WebSocketAuthMiddleware -> token lewat query string karena browser tidak
// bisa set header di handshake websocket
func WebSocketAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.AbortWithStatus(401)
			return
		}

		claims, err := utils.ValidateToken(token)
		if err != nil {
			c.AbortWithStatus(401)
			return
		}

		c.Set("role", claims.Role)
		c.Set("user_id", claims.UserID)

		c.Next()
	}
}
