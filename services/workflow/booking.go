package workflow

import (
	"context"
	"strings"

	"pawhub/models"
	"pawhub/services/booking"
	"pawhub/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateBooking drafts a provider's offer to a client in an existing conversation.
func (s *DefaultWorkflowService) CreateBooking(ctx context.Context, userID string, req models.CreateBookingRequest) (*models.Booking, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if req.ClientID == userID {
		return nil, utils.NewValidationError("invalid_client_id", "You cannot book yourself")
	}
	conv, err := s.Conversations.GetByID(ctx, req.ConversationID)
	if err != nil {
		return nil, classify(err, "Conversation")
	}
	if !conv.Has(userID) || !conv.Has(req.ClientID) {
		return nil, errNotParticipant
	}
	if err := s.ensureCounterparty(ctx, req.ClientID); err != nil {
		return nil, err
	}

	b := &models.Booking{
		Status:         models.StatusDraft,
		ClientID:       req.ClientID,
		ProviderID:     userID,
		ConversationID: req.ConversationID,
		ServiceType:    strings.TrimSpace(req.ServiceType),
		Pets:           req.Pets,
		Occurrences:    occurrencesFrom(req.Occurrences),
	}
	b.CostSummary = booking.CalculateCostSummary(b, s.Pricing)
	booking.Normalize(b)

	if err := s.Bookings.Create(ctx, b); err != nil {
		return nil, classify(err, "Booking")
	}
	s.Logger.Info("booking drafted", zap.String("bookingID", b.ID), zap.String("providerID", userID))
	s.publish(b, models.RealtimeEvent{Type: models.EventBookingUpdate, BookingID: b.ID, Status: b.Status})
	return b, nil
}

// UpdateTerms lets the provider rewrite the offer while the booking is editable by them. The
// status is unchanged; the new terms reach the client with the next request or approval message.
func (s *DefaultWorkflowService) UpdateTerms(ctx context.Context, userID, bookingID string, req models.UpdateTermsRequest) (*models.Booking, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	b, err := s.load(ctx, bookingID, false)
	if err != nil {
		return nil, err
	}
	actor, ok := booking.ActorFor(b, userID)
	if !ok {
		return nil, errNotParticipant
	}
	if actor != booking.ActorProvider {
		return nil, utils.NewAppError(utils.KindTransition, booking.CodeActorNotAllowed, "Only the provider can edit the offer")
	}
	if !booking.EditableByProvider(b.Status) {
		return nil, utils.NewAppError(utils.KindTransition, booking.CodeInvalidTransition, "The offer cannot be edited in this state")
	}
	if err := s.ensureCounterparty(ctx, b.ClientID); err != nil {
		return nil, err
	}

	b.ServiceType = strings.TrimSpace(req.ServiceType)
	b.Pets = req.Pets
	b.Occurrences = occurrencesFrom(req.Occurrences)
	b.CostSummary = booking.CalculateCostSummary(b, s.Pricing)
	booking.Normalize(b)

	if err := s.Bookings.ReplaceTerms(ctx, b); err != nil {
		return nil, classify(err, "Booking")
	}
	s.invalidate(ctx, b.ID)
	s.Logger.Info("booking terms updated", zap.String("bookingID", b.ID), zap.Float64("totalClientCost", b.CostSummary.TotalClientCost))
	s.publish(b, models.RealtimeEvent{Type: models.EventBookingUpdate, BookingID: b.ID, Status: b.Status})
	return b, nil
}

func occurrencesFrom(in []models.OccurrenceInput) []models.Occurrence {
	out := make([]models.Occurrence, 0, len(in))
	for _, o := range in {
		out = append(out, models.Occurrence{
			ID:    uuid.New().String(),
			Start: o.Start.UTC(),
			End:   o.End.UTC(),
			Rates: o.Rates,
		})
	}
	return out
}

// GetBooking returns the booking to one of its participants, from cache when fresh.
func (s *DefaultWorkflowService) GetBooking(ctx context.Context, userID, bookingID string) (*models.Booking, error) {
	b, err := s.load(ctx, bookingID, true)
	if err != nil {
		return nil, err
	}
	if _, ok := booking.ActorFor(b, userID); !ok {
		return nil, errNotParticipant
	}
	return b, nil
}

func (s *DefaultWorkflowService) Approve(ctx context.Context, userID, bookingID string) (*models.Booking, error) {
	return s.apply(ctx, userID, bookingID, booking.ActionApprove, "")
}

func (s *DefaultWorkflowService) RequestChanges(ctx context.Context, userID, bookingID, note string) (*models.Booking, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, utils.NewValidationError("invalid_message", "message is required")
	}
	return s.apply(ctx, userID, bookingID, booking.ActionRequestChanges, note)
}

func (s *DefaultWorkflowService) MarkCompleted(ctx context.Context, userID, bookingID string) (*models.Booking, error) {
	return s.apply(ctx, userID, bookingID, booking.ActionMarkCompleted, "")
}

// ApplyAction runs the actions that have no dedicated endpoint. Actions with a body of their own
// must use it.
func (s *DefaultWorkflowService) ApplyAction(ctx context.Context, userID, bookingID string, action booking.Action) (*models.Booking, error) {
	if action == booking.ActionRequestChanges {
		return nil, utils.NewValidationError("invalid_action", "request_changes needs a message")
	}
	return s.apply(ctx, userID, bookingID, action, "")
}

// IncompleteBookings lists the conversation's bookings that are not completed, denied or cancelled.
func (s *DefaultWorkflowService) IncompleteBookings(ctx context.Context, userID, conversationID string) ([]models.Booking, error) {
	conv, err := s.Conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, classify(err, "Conversation")
	}
	if !conv.Has(userID) {
		return nil, errNotParticipant
	}
	list, err := s.Bookings.ListIncompleteByConversation(ctx, conversationID)
	if err != nil {
		return nil, classify(err, "Booking")
	}
	for i := range list {
		booking.Normalize(&list[i])
	}
	return list, nil
}

// apply checks and commits one transition, then appends and fans out the messages it produces.
func (s *DefaultWorkflowService) apply(ctx context.Context, userID, bookingID string, action booking.Action, note string) (*models.Booking, error) {
	b, err := s.load(ctx, bookingID, false)
	if err != nil {
		return nil, err
	}
	actor, ok := booking.ActorFor(b, userID)
	if !ok {
		return nil, errNotParticipant
	}
	if err := s.ensureCounterparty(ctx, b.CounterpartOf(userID)); err != nil {
		return nil, err
	}

	from := b.Status
	to, err := booking.Transition(from, action, actor, booking.ContextFor(b, s.now()))
	if err != nil {
		return nil, classify(err, "Booking")
	}
	if err := s.Bookings.UpdateStatus(ctx, b.ID, from, to); err != nil {
		return nil, classify(err, "Booking")
	}
	b.Status = to
	s.invalidate(ctx, b.ID)

	s.Logger.Info("booking transitioned",
		zap.String("bookingID", b.ID),
		zap.String("action", string(action)),
		zap.String("from", string(from)),
		zap.String("to", string(to)))

	for _, msg := range messagesFor(b, action, userID, note) {
		if err := s.post(ctx, b.ConversationID, msg); err != nil {
			// The status change is committed; the thread catches up on the next page load.
			s.Logger.Error("failed to append booking message", zap.String("bookingID", b.ID), zap.Error(err))
		}
	}
	s.publish(b, models.RealtimeEvent{Type: models.EventBookingUpdate, BookingID: b.ID, Status: b.Status})

	if action == booking.ActionApprove && s.Scheduler != nil {
		if err := s.Scheduler.ScheduleCompletionDue(ctx, b); err != nil {
			s.Logger.Warn("failed to schedule completion reminder", zap.String("bookingID", b.ID), zap.Error(err))
		}
	}
	return b, nil
}

// messagesFor lists the protocol messages an action appends. Edits, denials and cancellations
// only change the status.
func messagesFor(b *models.Booking, action booking.Action, senderID, note string) []*models.ConversationMessage {
	mk := func(v models.MessageVariant) *models.ConversationMessage {
		snap := b.Snapshot()
		return &models.ConversationMessage{
			ConversationID: b.ConversationID,
			SenderID:       senderID,
			Variant:        v,
			Booking:        &snap,
		}
	}
	switch action {
	case booking.ActionSubmitOffer:
		return []*models.ConversationMessage{mk(models.VariantRequest)}
	case booking.ActionSendForApproval:
		return []*models.ConversationMessage{mk(models.VariantApproval)}
	case booking.ActionRequestChanges:
		m := mk(models.VariantRequestChanges)
		m.Content = note
		return []*models.ConversationMessage{m}
	case booking.ActionApprove:
		return []*models.ConversationMessage{mk(models.VariantBookingConfirmed)}
	case booking.ActionMarkCompleted:
		forClient := mk(models.VariantReviewRequest)
		forClient.ReviewerID = b.ClientID
		forProvider := mk(models.VariantReviewRequest)
		forProvider.ReviewerID = b.ProviderID
		return []*models.ConversationMessage{forClient, forProvider}
	}
	return nil
}

// load reads the booking, normalized. Reads for a write bypass the cache.
func (s *DefaultWorkflowService) load(ctx context.Context, bookingID string, cached bool) (*models.Booking, error) {
	if strings.TrimSpace(bookingID) == "" {
		return nil, utils.NewValidationError("invalid_booking_id", "booking id is required")
	}
	if cached && s.Cache != nil {
		if b, err := s.Cache.LoadBooking(ctx, bookingID); err == nil && b != nil {
			booking.Normalize(b)
			return b, nil
		} else if err != nil {
			s.Logger.Debug("booking cache read failed", zap.String("bookingID", bookingID), zap.Error(err))
		}
	}
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, classify(err, "Booking")
	}
	booking.Normalize(b)
	if cached && s.Cache != nil {
		if err := s.Cache.SaveBooking(ctx, b); err != nil {
			s.Logger.Debug("booking cache write failed", zap.String("bookingID", bookingID), zap.Error(err))
		}
	}
	return b, nil
}

func (s *DefaultWorkflowService) invalidate(ctx context.Context, bookingID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.InvalidateBooking(ctx, bookingID); err != nil {
		s.Logger.Warn("failed to invalidate booking cache", zap.String("bookingID", bookingID), zap.Error(err))
	}
}

// ensureCounterparty rejects actions addressed to a participant whose account was deleted.
// Participants that never registered a profile are treated as present.
func (s *DefaultWorkflowService) ensureCounterparty(ctx context.Context, userID string) error {
	p, err := s.Conversations.GetParticipant(ctx, userID)
	if err != nil {
		if utils.IsKind(classify(err, "Participant"), utils.KindNotFound) {
			return nil
		}
		return classify(err, "Participant")
	}
	if p.Deleted {
		return errCounterparty
	}
	return nil
}
