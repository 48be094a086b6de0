package protocol

import (
	"time"

	"pawhub/models"
)

// ThreadIndex answers per-message questions about a newest-first thread: whether a message
// is the newest actionable one for its booking, whether an unresolved change request follows
// it, and where it sits relative to the booking's latest confirmation.
type ThreadIndex struct {
	entries        []threadEntry
	lastConfirmed  map[string]time.Time
	actionableByID map[string][]int
}

type threadEntry struct {
	bookingID          string
	newest             bool
	pendingChange      bool
	newerConfOrApprove bool
	afterConfirmation  bool
}

// NewThreadIndex indexes list, which must be ordered newest first.
func NewThreadIndex(list []models.ConversationMessage) *ThreadIndex {
	idx := &ThreadIndex{
		entries:        make([]threadEntry, len(list)),
		lastConfirmed:  make(map[string]time.Time),
		actionableByID: make(map[string][]int),
	}

	for _, m := range list {
		if m.Variant != models.VariantBookingConfirmed || m.Pending {
			continue
		}
		id := m.BookingID()
		if id == "" {
			continue
		}
		if cur, ok := idx.lastConfirmed[id]; !ok || m.CreatedAt.After(cur) {
			idx.lastConfirmed[id] = m.CreatedAt
		}
	}

	seenActionable := make(map[string]bool)
	seenConfOrApprove := make(map[string]bool)
	seenResolver := make(map[string]bool)
	pendingChange := make(map[string]bool)

	for i, m := range list {
		id := m.BookingID()
		if id == "" || !IsBookingVariant(m.Variant) {
			continue
		}
		e := threadEntry{
			bookingID:          id,
			newest:             !seenActionable[id],
			pendingChange:      pendingChange[id],
			newerConfOrApprove: seenConfOrApprove[id],
		}
		if confirmedAt, ok := idx.lastConfirmed[id]; ok {
			e.afterConfirmation = m.CreatedAt.After(confirmedAt)
		}
		idx.entries[i] = e

		if IsActionable(m.Variant) {
			seenActionable[id] = true
			idx.actionableByID[id] = append(idx.actionableByID[id], i)
		}
		switch m.Variant {
		case models.VariantBookingConfirmed, models.VariantApproval:
			seenConfOrApprove[id] = true
		}
		if Resolves(m.Variant) {
			seenResolver[id] = true
		}
		if m.Variant == models.VariantRequestChanges && !seenResolver[id] {
			pendingChange[id] = true
		}
	}
	return idx
}

// Len is the number of indexed messages.
func (t *ThreadIndex) Len() int { return len(t.entries) }

// BookingID is the booking referenced by the message at position i, or "".
func (t *ThreadIndex) BookingID(i int) string {
	if !t.valid(i) {
		return ""
	}
	return t.entries[i].bookingID
}

// IsNewestForBooking is true when no newer message references the same booking with an
// actionable variant.
func (t *ThreadIndex) IsNewestForBooking(i int) bool {
	return t.valid(i) && t.entries[i].newest
}

// HasPendingChangeRequest is true when a newer, unresolved request_changes exists for the
// same booking.
func (t *ThreadIndex) HasPendingChangeRequest(i int) bool {
	return t.valid(i) && t.entries[i].pendingChange
}

// HasNewerConfirmationOrApproval is true when a newer booking_confirmed or approval exists
// for the same booking.
func (t *ThreadIndex) HasNewerConfirmationOrApproval(i int) bool {
	return t.valid(i) && t.entries[i].newerConfOrApprove
}

// IsAfterConfirmation is true when the message was created after the booking's most recent
// booking_confirmed message.
func (t *ThreadIndex) IsAfterConfirmation(i int) bool {
	return t.valid(i) && t.entries[i].afterConfirmation
}

// LastConfirmedAt returns the creation time of the booking's most recent confirmation.
func (t *ThreadIndex) LastConfirmedAt(bookingID string) (time.Time, bool) {
	at, ok := t.lastConfirmed[bookingID]
	return at, ok
}

// Actionable returns the positions of the booking's actionable messages, newest first.
func (t *ThreadIndex) Actionable(bookingID string) []int {
	return append([]int(nil), t.actionableByID[bookingID]...)
}

func (t *ThreadIndex) valid(i int) bool {
	return i >= 0 && i < len(t.entries) && t.entries[i].bookingID != ""
}

// MarkChangeRequests returns a copy of list with ChangeRequestPending set on every booking
// message followed by an unresolved request_changes for the same booking.
func MarkChangeRequests(list []models.ConversationMessage) []models.ConversationMessage {
	idx := NewThreadIndex(list)
	out := make([]models.ConversationMessage, len(list))
	for i, m := range list {
		out[i] = m
		out[i].ChangeRequestPending = idx.HasPendingChangeRequest(i)
	}
	return out
}
