package middleware

import (
	"net/http"
	"strings"

	"pawhub/utils"

	"github.com/gin-gonic/gin"
)

// ViewerKey is the gin context key holding the calling participant's id.
const ViewerKey = "userID"

// ViewerMiddleware identifies the caller from the viewer header. Authentication happens
// upstream; this layer only requires that an identity was forwarded.
func ViewerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(utils.ViewerHeader))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{
				Message: "Missing viewer identity",
				Code:    "unauthenticated",
			})
			return
		}
		c.Set(ViewerKey, userID)
		c.Next()
	}
}

// ViewerID returns the id stored by ViewerMiddleware.
func ViewerID(c *gin.Context) string {
	return c.GetString(ViewerKey)
}
