package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pawhub/models"
)

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func msg(id string, v models.MessageVariant, bookingID string, minute int) models.ConversationMessage {
	m := models.ConversationMessage{
		ID:             id,
		ConversationID: "conv-1",
		SenderID:       "provider-1",
		Variant:        v,
		CreatedAt:      base.Add(time.Duration(minute) * time.Minute),
	}
	if bookingID != "" {
		m.Booking = &models.BookingSnapshot{BookingID: bookingID, Status: models.StatusPendingClientApproval}
	}
	return m
}

func TestSupersedes(t *testing.T) {
	assert.True(t, Supersedes(models.VariantBookingConfirmed, models.VariantBookingConfirmed))
	assert.True(t, Supersedes(models.VariantApproval, models.VariantBookingConfirmed))
	assert.False(t, Supersedes(models.VariantRequestChanges, models.VariantBookingConfirmed))

	for _, newer := range []models.MessageVariant{models.VariantApproval, models.VariantRequestChanges, models.VariantBookingConfirmed} {
		assert.True(t, Supersedes(newer, models.VariantApproval), newer)
		assert.True(t, Supersedes(newer, models.VariantRequestChanges), newer)
	}

	for _, v := range models.AllVariants {
		assert.False(t, Supersedes(v, models.VariantPlainText))
		assert.False(t, Supersedes(v, models.VariantReviewRequest))
		assert.False(t, Supersedes(v, models.VariantRequest))
	}
}

func TestVariantCatalogue(t *testing.T) {
	assert.True(t, IsBookingVariant(models.VariantReviewRequest))
	assert.False(t, IsBookingVariant(models.VariantImage))
	assert.False(t, IsActionable(models.VariantRequest))
	assert.False(t, IsKnown("sticker"))
	for _, v := range models.AllVariants {
		assert.True(t, IsKnown(v))
	}
}

func TestDecodeSnapshotDefaults(t *testing.T) {
	raw := json.RawMessage(`{"booking_id":"b-1","status":"Confirmed","cost_summary":{"subtotal":-12,"taxes":3.5}}`)
	snap, err := DecodeSnapshot(raw)
	require.NoError(t, err)
	require.NotNil(t, snap)

	require.Len(t, snap.Occurrences, 1)
	assert.True(t, snap.Occurrences[0].Placeholder)
	assert.Equal(t, models.PlaceholderOccurrenceID, snap.Occurrences[0].ID)
	assert.Zero(t, snap.CostSummary.Subtotal)
	assert.Equal(t, 3.5, snap.CostSummary.Taxes)
	assert.NotNil(t, snap.Pets)

	snap, err = DecodeSnapshot(nil)
	assert.NoError(t, err)
	assert.Nil(t, snap)

	_, err = DecodeSnapshot(json.RawMessage(`{"occurrences":"soon"}`))
	assert.Error(t, err)
}

func TestIngestCopiesSnapshot(t *testing.T) {
	src := msg("m1", models.VariantApproval, "b-1", 0)
	got := Ingest(src, "provider-1")

	assert.True(t, got.SenderIsSelf)
	require.Len(t, got.Booking.Occurrences, 1)

	src.Booking.Status = models.StatusCancelled
	assert.Equal(t, models.StatusPendingClientApproval, got.Booking.Status)
}

func TestThreadIndexNewestAndConfirmation(t *testing.T) {
	// newest first
	list := []models.ConversationMessage{
		msg("m5", models.VariantApproval, "b-1", 50),
		msg("m4", models.VariantPlainText, "", 40),
		msg("m3", models.VariantBookingConfirmed, "b-1", 30),
		msg("m2", models.VariantApproval, "b-2", 20),
		msg("m1", models.VariantApproval, "b-1", 10),
	}
	idx := NewThreadIndex(list)

	assert.True(t, idx.IsNewestForBooking(0))
	assert.False(t, idx.IsNewestForBooking(2))
	assert.True(t, idx.IsNewestForBooking(3))
	assert.False(t, idx.IsNewestForBooking(4))

	assert.True(t, idx.IsAfterConfirmation(0))
	assert.False(t, idx.IsAfterConfirmation(2))
	assert.False(t, idx.IsAfterConfirmation(4))
	assert.False(t, idx.IsAfterConfirmation(3))

	assert.True(t, idx.HasNewerConfirmationOrApproval(2))
	assert.False(t, idx.HasNewerConfirmationOrApproval(0))

	assert.Equal(t, "", idx.BookingID(1))
	assert.False(t, idx.IsNewestForBooking(1))
	assert.Equal(t, []int{0, 2, 4}, idx.Actionable("b-1"))

	at, ok := idx.LastConfirmedAt("b-1")
	require.True(t, ok)
	assert.Equal(t, base.Add(30*time.Minute), at)
}

func TestMarkChangeRequests(t *testing.T) {
	t.Run("unresolved request marks older messages", func(t *testing.T) {
		list := []models.ConversationMessage{
			msg("m2", models.VariantRequestChanges, "b-1", 20),
			msg("m1", models.VariantApproval, "b-1", 10),
		}
		out := MarkChangeRequests(list)
		assert.False(t, out[0].ChangeRequestPending)
		assert.True(t, out[1].ChangeRequestPending)
		assert.False(t, list[1].ChangeRequestPending, "input must not be modified")
	})

	t.Run("later approval resolves the request", func(t *testing.T) {
		list := []models.ConversationMessage{
			msg("m3", models.VariantApproval, "b-1", 30),
			msg("m2", models.VariantRequestChanges, "b-1", 20),
			msg("m1", models.VariantApproval, "b-1", 10),
		}
		out := MarkChangeRequests(list)
		for _, m := range out {
			assert.False(t, m.ChangeRequestPending, m.ID)
		}
	})

	t.Run("other bookings are unaffected", func(t *testing.T) {
		list := []models.ConversationMessage{
			msg("m2", models.VariantRequestChanges, "b-2", 20),
			msg("m1", models.VariantApproval, "b-1", 10),
		}
		out := MarkChangeRequests(list)
		assert.False(t, out[1].ChangeRequestPending)
	})
}
