// File: models/review.go
package models

import "time"

// Review is the feedback one participant leaves for the other after a completed booking.
type Review struct {
	ID             string    `bson:"id" json:"review_id"`
	BookingID      string    `bson:"booking_id" json:"booking_id"`
	ConversationID string    `bson:"conversation_id" json:"conversation_id"`
	ReviewerID     string    `bson:"reviewer_id" json:"reviewer_id"`
	IsProfessional bool      `bson:"is_professional" json:"is_professional"` // true when the provider reviews the client
	Rating         int       `bson:"rating" json:"rating"`                   // 1..5
	Text           string    `bson:"review_text" json:"review_text"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}

// ReviewSubmission is the body of a submitBookingReview call.
type ReviewSubmission struct {
	BookingID      string `json:"booking_id" validate:"required"`
	Rating         int    `json:"rating" validate:"required,min=1,max=5"`
	ReviewText     string `json:"review_text" validate:"required,notblank"`
	IsProfessional bool   `json:"is_professional"`
	ConversationID string `json:"conversation_id"`
}
