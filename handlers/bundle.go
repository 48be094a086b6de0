// File: pawhub/handlers/bundle.go
package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Booking endpoints
	CreateBookingHandler      gin.HandlerFunc
	GetBookingHandler         gin.HandlerFunc
	UpdateTermsHandler        gin.HandlerFunc
	ApproveBookingHandler     gin.HandlerFunc
	RequestChangesHandler     gin.HandlerFunc
	CompleteBookingHandler    gin.HandlerFunc
	BookingActionHandler      gin.HandlerFunc
	SubmitReviewHandler       gin.HandlerFunc
	IncompleteBookingsHandler gin.HandlerFunc

	// Conversation endpoints
	CreateConversationHandler gin.HandlerFunc
	ListMessagesHandler       gin.HandlerFunc
	SendMessageHandler        gin.HandlerFunc

	// Participant endpoints
	SaveProfileHandler   gin.HandlerFunc
	DeleteAccountHandler gin.HandlerFunc

	// Realtime
	WebSocketHandler gin.HandlerFunc
}

// NewHandlerBundle wires the handler methods into the bundle.
func NewHandlerBundle(b *BookingHandler, m *MessageHandler, s *SocketHandler) *HandlerBundle {
	return &HandlerBundle{
		CreateBookingHandler:      b.CreateBookingHandler,
		GetBookingHandler:         b.GetBookingHandler,
		UpdateTermsHandler:        b.UpdateTermsHandler,
		ApproveBookingHandler:     b.ApproveHandler,
		RequestChangesHandler:     b.RequestChangesHandler,
		CompleteBookingHandler:    b.CompleteHandler,
		BookingActionHandler:      b.ActionHandler,
		SubmitReviewHandler:       b.ReviewHandler,
		IncompleteBookingsHandler: b.IncompleteBookingsHandler,

		CreateConversationHandler: m.CreateConversationHandler,
		ListMessagesHandler:       m.ListMessagesHandler,
		SendMessageHandler:        m.SendMessageHandler,

		SaveProfileHandler:   m.SaveProfileHandler,
		DeleteAccountHandler: m.DeleteAccountHandler,

		WebSocketHandler: s.ServeWS,
	}
}
