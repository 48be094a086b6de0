package handlers

import (
	"pawhub/middleware"
	"pawhub/services/hub"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SocketHandler upgrades GET /ws for the calling participant.
type SocketHandler struct {
	Hub *hub.Hub
}

func NewSocketHandler(h *hub.Hub) *SocketHandler {
	return &SocketHandler{Hub: h}
}

func (h *SocketHandler) ServeWS(c *gin.Context) {
	if err := h.Hub.Serve(c.Writer, c.Request, middleware.ViewerID(c)); err != nil {
		// The upgrader already wrote the HTTP error.
		getLogger(c).Warn("websocket upgrade failed", zap.Error(err))
	}
}
