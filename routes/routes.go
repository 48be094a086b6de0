package routes

import (
	"net/http"
	"time"

	"pawhub/handlers"
	"pawhub/middleware"
	"pawhub/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterBookingRoutes registers the booking workflow endpoints.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/bookings")
	{
		api.Use(middleware.ViewerMiddleware())
		api.POST("", hb.CreateBookingHandler)
		api.GET("/:id", hb.GetBookingHandler)
		api.PUT("/:id/terms", hb.UpdateTermsHandler)
		api.POST("/:id/approve", hb.ApproveBookingHandler)
		api.POST("/:id/request-changes", hb.RequestChangesHandler)
		api.POST("/:id/complete", hb.CompleteBookingHandler)
		api.POST("/:id/review", hb.SubmitReviewHandler)
		api.POST("/:id/actions", hb.BookingActionHandler)
	}
}

// RegisterConversationRoutes registers conversation history and messaging endpoints.
func RegisterConversationRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/conversations")
	{
		api.Use(middleware.ViewerMiddleware())
		api.POST("", hb.CreateConversationHandler)
		api.GET("/:id/messages", hb.ListMessagesHandler)
		api.POST("/:id/messages", hb.SendMessageHandler)
		api.GET("/:id/incomplete-bookings", hb.IncompleteBookingsHandler)
	}
}

// RegisterParticipantRoutes registers the caller's own participant record.
func RegisterParticipantRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/participants")
	{
		api.Use(middleware.ViewerMiddleware())
		api.PUT("/me", hb.SaveProfileHandler)
		api.DELETE("/me", hb.DeleteAccountHandler)
	}
}

// RegisterSocketRoute registers the realtime socket.
func RegisterSocketRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/ws", middleware.ViewerMiddleware(), hb.WebSocketHandler)
}

// RegisterHealthRoute registers a health-check endpoint backed by the background monitor.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		status := utils.GetHealthStatus()
		code := http.StatusOK
		if !status.Healthy() {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "message": "Hi, I'm PawHub"})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle, maxRequestsPerMin int) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", utils.ViewerHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware(maxRequestsPerMin))

	RegisterHealthRoute(r)
	RegisterBookingRoutes(r, hb)
	RegisterConversationRoutes(r, hb)
	RegisterParticipantRoutes(r, hb)
	RegisterSocketRoute(r, hb)
}
