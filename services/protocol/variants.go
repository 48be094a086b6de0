// Package protocol is the catalogue of conversation-message variants that carry booking
// snapshots, and the rules for which variant supersedes which.
package protocol

import (
	"encoding/json"
	"fmt"

	"pawhub/models"
	"pawhub/services/booking"
)

// IsKnown reports whether v is part of the catalogue.
func IsKnown(v models.MessageVariant) bool {
	for _, known := range models.AllVariants {
		if v == known {
			return true
		}
	}
	return false
}

// IsBookingVariant reports whether messages of this variant embed a booking snapshot.
func IsBookingVariant(v models.MessageVariant) bool {
	switch v {
	case models.VariantRequest,
		models.VariantApproval,
		models.VariantRequestChanges,
		models.VariantBookingConfirmed,
		models.VariantReviewRequest:
		return true
	}
	return false
}

// IsActionable is true for the variants that compete for "newest for this booking".
func IsActionable(v models.MessageVariant) bool {
	switch v {
	case models.VariantApproval, models.VariantRequestChanges, models.VariantBookingConfirmed:
		return true
	}
	return false
}

// Supersedes reports whether a newer message of variant newer makes an older message of
// variant older stale, assuming both reference the same booking.
func Supersedes(newer, older models.MessageVariant) bool {
	switch older {
	case models.VariantBookingConfirmed:
		return newer == models.VariantBookingConfirmed || newer == models.VariantApproval
	case models.VariantApproval, models.VariantRequestChanges:
		return IsActionable(newer)
	}
	return false
}

// Resolves reports whether a message of this variant settles an open change request.
func Resolves(v models.MessageVariant) bool {
	return v == models.VariantApproval || v == models.VariantBookingConfirmed
}

// DecodeSnapshot parses a booking_data payload and applies the defaulting rules.
func DecodeSnapshot(raw json.RawMessage) (*models.BookingSnapshot, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var snap models.BookingSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode booking_data: %w", err)
	}
	booking.NormalizeSnapshot(&snap)
	return &snap, nil
}

// Ingest prepares a message received from any source for the thread: the snapshot is
// deep-copied and normalized so later changes to the source cannot reach it.
func Ingest(m models.ConversationMessage, viewerID string) models.ConversationMessage {
	out := m.Clone()
	if out.Booking != nil {
		booking.NormalizeSnapshot(out.Booking)
	}
	if viewerID != "" {
		out.SenderIsSelf = out.SenderID == viewerID
	}
	return out
}
