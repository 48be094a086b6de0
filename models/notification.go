package models

import "time"

// Notification types pushed to participants.
const (
	NotificationBookingMessage = "booking_message"
	NotificationChatMessage    = "chat_message"
	NotificationCompletionDue  = "completion_due"
)

type Notification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data"`
	CreatedAt time.Time         `json:"createdAt"`
}

// CompletionDuePayload is the asynq payload fired at a booking's latest occurrence end.
type CompletionDuePayload struct {
	BookingID      string `json:"bookingId"`
	ProviderID     string `json:"providerId"`
	ConversationID string `json:"conversationId"`
}
