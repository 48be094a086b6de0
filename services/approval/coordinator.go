// Package approval runs the client-side booking workflow actions: approve, request changes,
// mark completed and review. State changes are applied only after the API acknowledges them.
package approval

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"pawhub/models"
	"pawhub/services/booking"
	"pawhub/utils"
)

// BookingAPI is the part of the booking API the coordinator calls.
type BookingAPI interface {
	GetBookingDetails(ctx context.Context, bookingID string) (*models.Booking, error)
	ApproveBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	RequestBookingChanges(ctx context.Context, bookingID, message string) (*models.Booking, error)
	MarkBookingCompleted(ctx context.Context, bookingID string) (*models.Booking, error)
	ApplyAction(ctx context.Context, bookingID string, action booking.Action) (*models.Booking, error)
	GetIncompleteBookings(ctx context.Context, conversationID string) ([]models.Booking, error)
	SubmitBookingReview(ctx context.Context, review models.ReviewSubmission) (*models.Review, error)
}

// StatusSink receives acknowledged status changes; the conversation engine implements it.
type StatusSink interface {
	SetBookingStatus(bookingID string, status models.BookingStatus)
}

// BookingCache caches booking details between calls.
type BookingCache interface {
	LoadBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	SaveBooking(ctx context.Context, b *models.Booking) error
	InvalidateBooking(ctx context.Context, bookingID string) error
}

// Coordinator performs workflow actions for one participant.
type Coordinator struct {
	api    BookingAPI
	sink   StatusSink
	cache  BookingCache
	userID string
	now    func() time.Time
	logger *zap.Logger
}

// NewCoordinator builds a coordinator acting as userID. sink and cache may be nil.
func NewCoordinator(api BookingAPI, sink StatusSink, cache BookingCache, userID string, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{api: api, sink: sink, cache: cache, userID: userID, now: time.Now, logger: logger}
}

// LoadBooking returns booking details, from cache when fresh.
func (c *Coordinator) LoadBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	if strings.TrimSpace(bookingID) == "" {
		return nil, utils.NewValidationError("invalid_booking_id", "booking_id is required")
	}
	if c.cache != nil {
		b, err := c.cache.LoadBooking(ctx, bookingID)
		if err != nil {
			c.logger.Warn("Booking cache read failed", zap.String("bookingID", bookingID), zap.Error(err))
		}
		if b != nil {
			booking.Normalize(b)
			return b, nil
		}
	}

	return c.fetch(ctx, bookingID)
}

// fetch reads the booking from the API and refreshes the cache. Checks made before a write use
// it so another participant's action within the cache TTL is never missed.
func (c *Coordinator) fetch(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := c.api.GetBookingDetails(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, utils.NewAppError(utils.KindNotFound, "not_found", "Booking not found")
	}
	booking.Normalize(b)
	c.save(ctx, b)
	return b, nil
}

func (c *Coordinator) save(ctx context.Context, b *models.Booking) {
	if c.cache == nil {
		return
	}
	if err := c.cache.SaveBooking(ctx, b); err != nil {
		c.logger.Warn("Booking cache write failed", zap.String("bookingID", b.ID), zap.Error(err))
	}
}

// Approve approves a booking awaiting the client's approval.
func (c *Coordinator) Approve(ctx context.Context, bookingID string) (*models.Booking, error) {
	if err := c.precheck(ctx, bookingID, booking.ActionApprove); err != nil {
		return nil, err
	}
	return c.commit(ctx, bookingID, func() (*models.Booking, error) {
		return c.api.ApproveBooking(ctx, bookingID)
	})
}

// RequestChanges sends the booking back to the provider with a note.
func (c *Coordinator) RequestChanges(ctx context.Context, bookingID, message string) (*models.Booking, error) {
	body := models.ChangeRequestBody{Message: message}
	if err := utils.ValidateStruct(body); err != nil {
		return nil, err
	}
	if err := c.precheck(ctx, bookingID, booking.ActionRequestChanges); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(message)
	return c.commit(ctx, bookingID, func() (*models.Booking, error) {
		return c.api.RequestBookingChanges(ctx, bookingID, text)
	})
}

// MarkCompleted closes a confirmed booking once its last occurrence has ended. Only the
// provider may do this; the server then posts review requests to both participants.
func (c *Coordinator) MarkCompleted(ctx context.Context, bookingID string) (*models.Booking, error) {
	if err := c.precheck(ctx, bookingID, booking.ActionMarkCompleted); err != nil {
		return nil, err
	}
	return c.commit(ctx, bookingID, func() (*models.Booking, error) {
		return c.api.MarkBookingCompleted(ctx, bookingID)
	})
}

// Perform runs one of the remaining workflow actions (submit, send, edit, deny, cancel).
func (c *Coordinator) Perform(ctx context.Context, bookingID string, action booking.Action) (*models.Booking, error) {
	if err := c.precheck(ctx, bookingID, action); err != nil {
		return nil, err
	}
	return c.commit(ctx, bookingID, func() (*models.Booking, error) {
		return c.api.ApplyAction(ctx, bookingID, action)
	})
}

// SubmitReview validates and submits a review of a completed booking.
func (c *Coordinator) SubmitReview(ctx context.Context, review models.ReviewSubmission) (*models.Review, error) {
	review.ReviewText = strings.TrimSpace(review.ReviewText)
	if err := utils.ValidateStruct(review); err != nil {
		return nil, err
	}
	b, err := c.fetch(ctx, review.BookingID)
	if err != nil {
		return nil, err
	}
	if _, ok := booking.ActorFor(b, c.userID); !ok {
		return nil, utils.NewAppError(utils.KindTransition, booking.CodeActorNotAllowed, "Only participants can review this booking")
	}
	if b.Status != models.StatusCompleted {
		return nil, utils.NewAppError(utils.KindTransition, "review_not_allowed", "Reviews open once the booking is completed")
	}
	if review.ConversationID == "" {
		review.ConversationID = b.ConversationID
	}

	out, err := c.api.SubmitBookingReview(ctx, review)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return out, nil
}

// CompletableBookings lists the conversation's bookings the viewer can mark completed now.
func (c *Coordinator) CompletableBookings(ctx context.Context, conversationID string) ([]models.Booking, error) {
	list, err := c.api.GetIncompleteBookings(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	now := c.now()
	out := make([]models.Booking, 0, len(list))
	for i := range list {
		b := &list[i]
		booking.Normalize(b)
		actor, ok := booking.ActorFor(b, c.userID)
		if !ok {
			continue
		}
		if booking.Can(b.Status, booking.ActionMarkCompleted, actor, booking.ContextFor(b, now)) {
			out = append(out, *b)
		}
	}
	return out, nil
}

// precheck rejects actions the booking's current state does not allow, before any call that
// would change it.
func (c *Coordinator) precheck(ctx context.Context, bookingID string, action booking.Action) error {
	if strings.TrimSpace(bookingID) == "" {
		return utils.NewValidationError("invalid_booking_id", "booking_id is required")
	}
	b, err := c.fetch(ctx, bookingID)
	if err != nil {
		return err
	}
	actor, ok := booking.ActorFor(b, c.userID)
	if !ok {
		return utils.NewAppError(utils.KindTransition, booking.CodeActorNotAllowed, "You are not part of this booking")
	}
	if _, err := booking.Transition(b.Status, action, actor, booking.ContextFor(b, c.now())); err != nil {
		if te, ok := err.(*booking.TransitionError); ok {
			return te.AsAppError()
		}
		return err
	}
	return nil
}

// commit runs call and, once acknowledged and while ctx is live, applies the new status.
func (c *Coordinator) commit(ctx context.Context, bookingID string, call func() (*models.Booking, error)) (*models.Booking, error) {
	updated, err := call()
	if err != nil {
		if utils.IsKind(err, utils.KindTransition) {
			c.invalidate(bookingID)
		}
		c.logger.Warn("Booking action failed", zap.String("bookingID", bookingID), zap.Error(err))
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if updated == nil {
		// Acknowledged without a body: read the new state back.
		c.invalidate(bookingID)
		if updated, err = c.fetch(ctx, bookingID); err != nil {
			c.logger.Warn("Booking refetch after action failed", zap.String("bookingID", bookingID), zap.Error(err))
			return nil, err
		}
	} else {
		booking.Normalize(updated)
		c.save(ctx, updated)
	}
	if c.sink != nil {
		c.sink.SetBookingStatus(bookingID, updated.Status)
	}
	return updated, nil
}

func (c *Coordinator) invalidate(bookingID string) {
	if c.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.cache.InvalidateBooking(ctx, bookingID); err != nil {
		c.logger.Warn("Booking cache invalidation failed", zap.String("bookingID", bookingID), zap.Error(err))
	}
}
