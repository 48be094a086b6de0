// Package overlay decides, for each booking message in a thread, whether it is stale relative
// to the booking's live state and which action buttons it may show.
package overlay

import (
	"pawhub/models"
	"pawhub/services/protocol"
)

// Kind is the banner rendered over a message.
type Kind string

const (
	None             Kind = ""
	BookingCompleted Kind = "Booking Completed"
	BookingUpdated   Kind = "Booking Updated"
	BookingConfirmed Kind = "Booking Confirmed"
	ChangesRequested Kind = "Changes Requested"
)

// Facts are computed once per render from the live booking state and the message's
// position in the thread.
type Facts struct {
	BookingIsConfirmedNow          bool
	BookingIsCompletedNow          bool
	IsNewestForBooking             bool
	HasPendingChangeRequest        bool
	IsAfterConfirmation            bool
	HasNewerConfirmationOrApproval bool
}

// Decision is the outcome of the rule table for one message.
type Decision struct {
	Overlay        Kind
	ButtonsEnabled bool
	// Rule is the 1-based row that matched, or 0 for messages without a booking.
	Rule int
}

type rule struct {
	name    string
	when    func(models.MessageVariant, Facts) bool
	overlay Kind
	enabled bool
}

var rules = []rule{
	{
		name:    "completed",
		when:    func(_ models.MessageVariant, f Facts) bool { return f.BookingIsCompletedNow },
		overlay: BookingCompleted,
	},
	{
		name: "confirmation superseded",
		when: func(v models.MessageVariant, f Facts) bool {
			return v == models.VariantBookingConfirmed && f.HasNewerConfirmationOrApproval
		},
		overlay: BookingUpdated,
	},
	{
		name: "edit request superseded",
		when: func(v models.MessageVariant, f Facts) bool {
			return v == models.VariantRequestChanges && f.IsAfterConfirmation && !f.IsNewestForBooking
		},
		overlay: BookingUpdated,
	},
	{
		name: "edit approval superseded",
		when: func(v models.MessageVariant, f Facts) bool {
			return v == models.VariantApproval && f.IsAfterConfirmation && !f.IsNewestForBooking
		},
		overlay: BookingUpdated,
	},
	{
		name: "edit approval current",
		when: func(v models.MessageVariant, f Facts) bool {
			return v == models.VariantApproval && f.IsAfterConfirmation && f.IsNewestForBooking
		},
		enabled: true,
	},
	{
		name: "change request current",
		when: func(v models.MessageVariant, f Facts) bool {
			return v == models.VariantRequestChanges && f.IsNewestForBooking
		},
		enabled: true,
	},
	{
		name: "confirmed since",
		when: func(v models.MessageVariant, f Facts) bool {
			return f.BookingIsConfirmedNow && v != models.VariantBookingConfirmed && !f.IsAfterConfirmation
		},
		overlay: BookingConfirmed,
	},
	{
		name: "changes requested since",
		when: func(v models.MessageVariant, f Facts) bool {
			return v == models.VariantApproval && f.HasPendingChangeRequest && !f.IsNewestForBooking
		},
		overlay: ChangesRequested,
	},
	{
		name: "change request superseded",
		when: func(v models.MessageVariant, f Facts) bool {
			return v == models.VariantRequestChanges && !f.IsNewestForBooking
		},
		overlay: BookingUpdated,
	},
	{
		name:    "default",
		when:    func(models.MessageVariant, Facts) bool { return true },
		enabled: true,
	},
}

// Decide evaluates the rule table top to bottom; the first matching row wins.
func Decide(v models.MessageVariant, f Facts) Decision {
	if !protocol.IsBookingVariant(v) {
		return Decision{}
	}
	for i, r := range rules {
		if r.when(v, f) {
			return Decision{Overlay: r.overlay, ButtonsEnabled: r.enabled, Rule: i + 1}
		}
	}
	// unreachable: the last row always matches
	return Decision{ButtonsEnabled: true, Rule: len(rules)}
}

// Matching lists every row whose condition holds, in table order.
func Matching(v models.MessageVariant, f Facts) []int {
	var out []int
	for i, r := range rules {
		if r.when(v, f) {
			out = append(out, i+1)
		}
	}
	return out
}

// RuleName is the short label of a 1-based row, used in debug output.
func RuleName(row int) string {
	if row < 1 || row > len(rules) {
		return "none"
	}
	return rules[row-1].name
}

// RuleCount is the number of rows in the table.
func RuleCount() int { return len(rules) }
