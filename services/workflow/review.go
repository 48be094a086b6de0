package workflow

import (
	"context"
	"strings"

	"pawhub/models"
	"pawhub/services/booking"
	"pawhub/utils"

	"go.uber.org/zap"
)

// SubmitReview stores one review per participant of a completed booking.
func (s *DefaultWorkflowService) SubmitReview(ctx context.Context, userID string, sub models.ReviewSubmission) (*models.Review, error) {
	sub.ReviewText = strings.TrimSpace(sub.ReviewText)
	if err := utils.ValidateStruct(sub); err != nil {
		return nil, err
	}
	b, err := s.load(ctx, sub.BookingID, false)
	if err != nil {
		return nil, err
	}
	actor, ok := booking.ActorFor(b, userID)
	if !ok {
		return nil, errNotParticipant
	}
	if b.Status != models.StatusCompleted {
		return nil, errNotCompleted
	}

	r := &models.Review{
		BookingID:      b.ID,
		ConversationID: b.ConversationID,
		ReviewerID:     userID,
		IsProfessional: actor == booking.ActorProvider,
		Rating:         sub.Rating,
		Text:           sub.ReviewText,
	}
	if err := s.Reviews.Create(ctx, r); err != nil {
		return nil, classify(err, "Review")
	}
	s.Logger.Info("review submitted", zap.String("bookingID", b.ID), zap.String("reviewerID", userID))
	return r, nil
}
