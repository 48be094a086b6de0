package models

import "time"

// BookingStatus is the approval-lifecycle state of a booking.
type BookingStatus string

const (
	StatusDraft                           BookingStatus = "Draft"
	StatusPendingInitialProviderChanges   BookingStatus = "Pending Initial Provider Changes"
	StatusPendingProviderChanges          BookingStatus = "Pending Provider Changes"
	StatusPendingClientApproval           BookingStatus = "Pending Client Approval"
	StatusConfirmed                       BookingStatus = "Confirmed"
	StatusConfirmedPendingProviderChanges BookingStatus = "Confirmed Pending Provider Changes"
	StatusConfirmedPendingClientApproval  BookingStatus = "Confirmed Pending Client Approval"
	StatusCompleted                       BookingStatus = "Completed"
	StatusDenied                          BookingStatus = "Denied"
	StatusCancelled                       BookingStatus = "Cancelled"
)

// AllStatuses lists every booking status in lifecycle order.
var AllStatuses = []BookingStatus{
	StatusDraft,
	StatusPendingInitialProviderChanges,
	StatusPendingProviderChanges,
	StatusPendingClientApproval,
	StatusConfirmed,
	StatusConfirmedPendingProviderChanges,
	StatusConfirmedPendingClientApproval,
	StatusCompleted,
	StatusDenied,
	StatusCancelled,
}

// PlaceholderOccurrenceID marks an occurrence synthesized for a booking fetched without any.
const PlaceholderOccurrenceID = "placeholder"

// Booking is a contracted engagement between a client and a provider.
type Booking struct {
	ID             string        `bson:"id" json:"booking_id"`
	Status         BookingStatus `bson:"status" json:"status"`
	ClientID       string        `bson:"client_id" json:"client_id"`
	ProviderID     string        `bson:"provider_id" json:"provider_id"`
	ConversationID string        `bson:"conversation_id" json:"conversation_id"`
	ServiceType    string        `bson:"service_type" json:"service_type"`
	Occurrences    []Occurrence  `bson:"occurrences" json:"occurrences"`
	CostSummary    CostSummary   `bson:"cost_summary" json:"cost_summary"`
	Pets           []Pet         `bson:"pets" json:"pets"`
	CreatedAt      time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `bson:"updated_at" json:"updated_at"`
}

// Occurrence is one scheduled span within a booking, carrying its own rates.
type Occurrence struct {
	ID          string    `bson:"occurrence_id" json:"occurrence_id"`
	Start       time.Time `bson:"start" json:"start"`
	End         time.Time `bson:"end" json:"end"`
	Rates       Rates     `bson:"rates" json:"rates"`
	Placeholder bool      `bson:"placeholder,omitempty" json:"placeholder,omitempty"`
}

// Rates is the per-occurrence price breakdown.
type Rates struct {
	BaseRate             float64          `bson:"base_rate" json:"base_rate"`
	AdditionalAnimalRate float64          `bson:"additional_animal_rate" json:"additional_animal_rate"`
	AppliesAfter         int              `bson:"applies_after" json:"applies_after"` // extra-animal rate kicks in after this many pets
	HolidayRate          float64          `bson:"holiday_rate" json:"holiday_rate"`
	AdditionalRates      []AdditionalRate `bson:"additional_rates" json:"additional_rates"`
}

type AdditionalRate struct {
	Title       string  `bson:"title" json:"title"`
	Description string  `bson:"description,omitempty" json:"description,omitempty"`
	Amount      float64 `bson:"amount" json:"amount"`
}

// CostSummary holds the computed totals of a booking. Zero value means "not computed yet".
type CostSummary struct {
	Subtotal            float64 `bson:"subtotal" json:"subtotal"`
	PlatformFee         float64 `bson:"platform_fee" json:"platform_fee"`
	Taxes               float64 `bson:"taxes" json:"taxes"`
	TotalClientCost     float64 `bson:"total_client_cost" json:"total_client_cost"`
	TotalProviderPayout float64 `bson:"total_provider_payout" json:"total_provider_payout"`
}

type Pet struct {
	ID      string `bson:"pet_id" json:"pet_id"`
	Name    string `bson:"name" json:"name" validate:"required"`
	Species string `bson:"species" json:"species" validate:"required"`
	Breed   string `bson:"breed,omitempty" json:"breed,omitempty"`
}

// LatestOccurrenceEnd returns the end of the last real occurrence, or the zero time.
func (b *Booking) LatestOccurrenceEnd() time.Time {
	var latest time.Time
	for _, o := range b.Occurrences {
		if o.Placeholder {
			continue
		}
		if o.End.After(latest) {
			latest = o.End
		}
	}
	return latest
}

// CounterpartOf returns the other participant of the booking.
func (b *Booking) CounterpartOf(userID string) string {
	if userID == b.ClientID {
		return b.ProviderID
	}
	return b.ClientID
}

// Snapshot copies the booking into an immutable message payload.
func (b *Booking) Snapshot() BookingSnapshot {
	return BookingSnapshot{
		BookingID:   b.ID,
		Status:      b.Status,
		ServiceType: b.ServiceType,
		Occurrences: cloneOccurrences(b.Occurrences),
		CostSummary: b.CostSummary,
		Pets:        cloneSlice(b.Pets),
	}
}

func cloneOccurrences(in []Occurrence) []Occurrence {
	if in == nil {
		return nil
	}
	out := make([]Occurrence, len(in))
	for i, o := range in {
		out[i] = o
		out[i].Rates.AdditionalRates = cloneSlice(o.Rates.AdditionalRates)
	}
	return out
}

// cloneSlice copies in, keeping the nil/empty distinction.
func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
