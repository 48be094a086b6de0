package overlay

import (
	"time"

	"pawhub/models"
	"pawhub/services/booking"
	"pawhub/services/protocol"
)

// Viewer is the participant the thread is rendered for.
type Viewer struct {
	UserID string
	Role   booking.Actor
}

// Buttons is the set of actions a message offers the viewer.
type Buttons struct {
	Approve        bool `json:"approve"`
	RequestChanges bool `json:"request_changes"`
	Edit           bool `json:"edit"`
	Review         bool `json:"review"`
}

// Any reports whether at least one button is shown.
func (b Buttons) Any() bool {
	return b.Approve || b.RequestChanges || b.Edit || b.Review
}

// Annotation is the render-time decoration of one message.
type Annotation struct {
	MessageID string
	Facts     Facts
	Decision  Decision
	Buttons   Buttons
}

// Annotate computes one Annotation per message of a newest-first list. statuses holds the
// live status per booking id; a booking missing from it falls back to its snapshot status.
func Annotate(list []models.ConversationMessage, statuses map[string]models.BookingStatus, viewer Viewer) []Annotation {
	idx := protocol.NewThreadIndex(list)
	out := make([]Annotation, len(list))
	for i, m := range list {
		out[i].MessageID = m.ID
		if m.Pending || !protocol.IsBookingVariant(m.Variant) || m.BookingID() == "" {
			continue
		}
		status := liveStatus(m, statuses)
		f := Facts{
			BookingIsConfirmedNow:          booking.IsConfirmed(status),
			BookingIsCompletedNow:          status == models.StatusCompleted,
			IsNewestForBooking:             idx.IsNewestForBooking(i),
			HasPendingChangeRequest:        idx.HasPendingChangeRequest(i),
			IsAfterConfirmation:            idx.IsAfterConfirmation(i),
			HasNewerConfirmationOrApproval: idx.HasNewerConfirmationOrApproval(i),
		}
		d := Decide(m.Variant, f)
		out[i].Facts = f
		out[i].Decision = d
		out[i].Buttons = buttonsFor(m, status, d, viewer)
	}
	return out
}

func liveStatus(m models.ConversationMessage, statuses map[string]models.BookingStatus) models.BookingStatus {
	if s, ok := statuses[m.BookingID()]; ok && s != "" {
		return s
	}
	return m.Booking.Status
}

func buttonsFor(m models.ConversationMessage, status models.BookingStatus, d Decision, viewer Viewer) Buttons {
	var b Buttons

	// The review card is its own affordance and ignores the overlay.
	if m.Variant == models.VariantReviewRequest {
		b.Review = status == models.StatusCompleted && m.ReviewerID != "" && m.ReviewerID == viewer.UserID
		return b
	}
	if !d.ButtonsEnabled {
		return b
	}

	tc := booking.TransitionContext{Now: time.Now()}
	switch viewer.Role {
	case booking.ActorClient:
		if m.Variant == models.VariantApproval {
			b.Approve = booking.Can(status, booking.ActionApprove, booking.ActorClient, tc)
			b.RequestChanges = booking.Can(status, booking.ActionRequestChanges, booking.ActorClient, tc)
		}
	case booking.ActorProvider:
		b.Edit = booking.EditableByProvider(status)
	}
	return b
}
