package models

import "time"

// MessageVariant is the kind of a conversation message.
type MessageVariant string

const (
	VariantRequest          MessageVariant = "request"
	VariantApproval         MessageVariant = "approval"
	VariantRequestChanges   MessageVariant = "request_changes"
	VariantBookingConfirmed MessageVariant = "booking_confirmed"
	VariantReviewRequest    MessageVariant = "review_request"
	VariantPlainText        MessageVariant = "plain_text"
	VariantImage            MessageVariant = "image"
)

// AllVariants lists every message variant.
var AllVariants = []MessageVariant{
	VariantRequest,
	VariantApproval,
	VariantRequestChanges,
	VariantBookingConfirmed,
	VariantReviewRequest,
	VariantPlainText,
	VariantImage,
}

// BookingSnapshot is the booking as it was when a message was created. It is never mutated
// after ingestion; use Clone before handing it out.
type BookingSnapshot struct {
	BookingID   string        `bson:"booking_id" json:"booking_id"`
	Status      BookingStatus `bson:"status" json:"status"`
	ServiceType string        `bson:"service_type,omitempty" json:"service_type,omitempty"`
	Occurrences []Occurrence  `bson:"occurrences" json:"occurrences"`
	CostSummary CostSummary   `bson:"cost_summary" json:"cost_summary"`
	Pets        []Pet         `bson:"pets" json:"pets"`
}

// Clone returns a deep copy of the snapshot.
func (s *BookingSnapshot) Clone() *BookingSnapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Occurrences = cloneOccurrences(s.Occurrences)
	c.Pets = cloneSlice(s.Pets)
	return &c
}

// ConversationMessage is one entry of the append-only conversation log.
type ConversationMessage struct {
	ID             string           `bson:"id" json:"message_id"`
	ConversationID string           `bson:"conversation_id" json:"conversation_id"`
	SenderID       string           `bson:"sender_id" json:"sender_id"`
	Variant        MessageVariant   `bson:"type" json:"type"`
	Content        string           `bson:"content,omitempty" json:"content,omitempty"`
	ImageURLs      []string         `bson:"image_urls,omitempty" json:"image_urls,omitempty"`
	Booking        *BookingSnapshot `bson:"booking_data,omitempty" json:"booking_data,omitempty"`
	ReviewerID     string           `bson:"reviewer_id,omitempty" json:"reviewer_id,omitempty"`
	ClientRef      string           `bson:"client_ref,omitempty" json:"client_ref,omitempty"`
	CreatedAt      time.Time        `bson:"created_at" json:"created_at"`

	// Derived on the client; never persisted.
	SenderIsSelf         bool `bson:"-" json:"sender_is_self,omitempty"`
	ChangeRequestPending bool `bson:"-" json:"change_request_pending,omitempty"`
	Pending              bool `bson:"-" json:"pending,omitempty"`
}

// BookingID returns the id of the booking the message refers to, if any.
func (m *ConversationMessage) BookingID() string {
	if m.Booking == nil {
		return ""
	}
	return m.Booking.BookingID
}

// Clone returns a deep copy so the caller cannot reach into a store's list.
func (m ConversationMessage) Clone() ConversationMessage {
	c := m
	c.ImageURLs = cloneSlice(m.ImageURLs)
	c.Booking = m.Booking.Clone()
	return c
}

// MessagePage is one page of history, newest first.
type MessagePage struct {
	Messages []ConversationMessage `json:"messages"`
	HasMore  bool                  `json:"has_more"`
}

// SendMessageRequest is the body of a message send. ClientRef is echoed back on the stored
// message so the sender can resolve its optimistic copy.
type SendMessageRequest struct {
	ClientRef string   `json:"client_ref" validate:"required"`
	Content   string   `json:"content"`
	Images    []string `json:"images,omitempty"`
}
