package models

import "time"

// ChangeRequestBody is the body of POST /api/bookings/:id/request-changes.
type ChangeRequestBody struct {
	Message string `json:"message" validate:"required,notblank"`
}

// ActionBody is the body of POST /api/bookings/:id/actions.
type ActionBody struct {
	Action string `json:"action" validate:"required"`
}

// CreateBookingRequest is the body of POST /api/bookings, sent by the provider to draft an offer.
type CreateBookingRequest struct {
	ClientID       string            `json:"client_id" validate:"required"`
	ConversationID string            `json:"conversation_id" validate:"required"`
	ServiceType    string            `json:"service_type" validate:"required,notblank"`
	Occurrences    []OccurrenceInput `json:"occurrences" validate:"required,min=1,dive"`
	Pets           []Pet             `json:"pets" validate:"required,min=1,dive"`
}

// UpdateTermsRequest is the body of PUT /api/bookings/:id/terms, a provider edit of an offer.
type UpdateTermsRequest struct {
	ServiceType string            `json:"service_type" validate:"required,notblank"`
	Occurrences []OccurrenceInput `json:"occurrences" validate:"required,min=1,dive"`
	Pets        []Pet             `json:"pets" validate:"required,min=1,dive"`
}

type OccurrenceInput struct {
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end" validate:"required,gtfield=Start"`
	Rates Rates     `json:"rates"`
}

// CreateConversationRequest opens a conversation between the caller and another participant.
type CreateConversationRequest struct {
	ParticipantID string `json:"participant_id" validate:"required"`
}

// ParticipantProfile is the body of PUT /api/participants/me.
type ParticipantProfile struct {
	Name     string `json:"name" validate:"required,notblank"`
	FCMToken string `json:"fcm_token"`
}
