package conversation

import (
	"pawhub/models"
)

// Action is a typed mutation of the conversation store. Every change to the message list
// goes through Store.Dispatch with one of the actions below.
type Action interface {
	actionName() string
}

// OpenConversation switches the store to a conversation. It is the only action besides
// CloseConversation allowed to empty the list.
type OpenConversation struct {
	ConversationID string
	ViewerID       string
}

// CloseConversation tears the thread down.
type CloseConversation struct{}

// PageLoaded merges one page of history into the list by creation time. Page 1 may land on a
// list seeded from cache and carry messages newer than it.
type PageLoaded struct {
	Generation uint64
	Page       int
	Messages   []models.ConversationMessage
	HasMore    bool
}

// PageRequested marks a history fetch in flight. It is rejected while another fetch for the
// same generation is running or when no more pages exist.
type PageRequested struct {
	Generation uint64
	Page       int
}

// PageFailed clears the in-flight flag after a history fetch error.
type PageFailed struct {
	Generation uint64
	Page       int
}

// MessagePushed is a new_message event from the realtime feed.
type MessagePushed struct {
	Message models.ConversationMessage
}

// MessageUpdated is a message_update event; it only patches messages already shown.
type MessageUpdated struct {
	Message models.ConversationMessage
}

// SendPending inserts an optimistic message at the head.
type SendPending struct {
	Message models.ConversationMessage
}

// SendAcked replaces the optimistic entry with the stored message in one step.
type SendAcked struct {
	Generation uint64
	ClientRef  string
	Message    models.ConversationMessage
}

// SendFailed removes the optimistic entry.
type SendFailed struct {
	Generation uint64
	ClientRef  string
}

// BookingStatusChanged records the live status of a booking for overlay evaluation.
type BookingStatusChanged struct {
	BookingID string
	Status    models.BookingStatus
}

// StatusesLoaded records booking statuses read from the API for the bookings in the thread.
type StatusesLoaded struct {
	Generation uint64
	Statuses   map[string]models.BookingStatus
}

// CacheRestored seeds an empty list from the persisted last-known-good copy.
type CacheRestored struct {
	Generation uint64
	Messages   []models.ConversationMessage
}

// Resynced merges the newest page fetched after the realtime feed reconnects. It fills gaps
// left while disconnected without touching pagination.
type Resynced struct {
	Generation uint64
	Messages   []models.ConversationMessage
}

// IntegrityCheck is the periodic backstop tick; it mutates nothing by itself.
type IntegrityCheck struct{}

func (OpenConversation) actionName() string     { return "open_conversation" }
func (CloseConversation) actionName() string    { return "close_conversation" }
func (PageLoaded) actionName() string           { return "page_loaded" }
func (PageRequested) actionName() string        { return "page_requested" }
func (PageFailed) actionName() string           { return "page_failed" }
func (MessagePushed) actionName() string        { return "message_pushed" }
func (MessageUpdated) actionName() string       { return "message_updated" }
func (SendPending) actionName() string          { return "send_pending" }
func (SendAcked) actionName() string            { return "send_acked" }
func (SendFailed) actionName() string           { return "send_failed" }
func (BookingStatusChanged) actionName() string { return "booking_status_changed" }
func (StatusesLoaded) actionName() string       { return "statuses_loaded" }
func (CacheRestored) actionName() string        { return "cache_restored" }
func (Resynced) actionName() string             { return "resynced" }
func (IntegrityCheck) actionName() string       { return "integrity_check" }
