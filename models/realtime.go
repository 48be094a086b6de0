package models

// Realtime event types carried over the socket.
const (
	EventNewMessage    = "new_message"
	EventMessageUpdate = "message_update"
	EventBookingUpdate = "booking_update"
	// EventReconnected is raised locally when the socket comes back after a drop. Events sent
	// while it was down are lost, so subscribers refetch.
	EventReconnected = "reconnected"
)

// RealtimeEvent is the envelope pushed to connected participants. Events are tagged with the
// conversation they belong to so clients can route them to the right open thread.
type RealtimeEvent struct {
	Type           string               `json:"type"`
	ConversationID string               `json:"conversation_id"`
	Message        *ConversationMessage `json:"message,omitempty"`
	BookingID      string               `json:"booking_id,omitempty"`
	Status         BookingStatus        `json:"status,omitempty"`
}
