package workflow

import (
	"context"
	"strings"

	"pawhub/models"
	"pawhub/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxImagesPerMessage = 10

// CreateConversation opens a conversation between the caller and another participant.
func (s *DefaultWorkflowService) CreateConversation(ctx context.Context, userID string, req models.CreateConversationRequest) (*models.Conversation, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if req.ParticipantID == userID {
		return nil, utils.NewValidationError("invalid_participant_id", "You cannot message yourself")
	}
	if err := s.ensureCounterparty(ctx, req.ParticipantID); err != nil {
		return nil, err
	}
	c := &models.Conversation{Participants: [2]string{userID, req.ParticipantID}}
	if err := s.Conversations.Create(ctx, c); err != nil {
		return nil, classify(err, "Conversation")
	}
	return c, nil
}

// ListMessages returns one page of history, newest first.
func (s *DefaultWorkflowService) ListMessages(ctx context.Context, userID, conversationID string, page, limit int) (*models.MessagePage, error) {
	if _, err := s.conversationFor(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	if limit > 100 {
		limit = 100
	}
	msgs, hasMore, err := s.Messages.ListByConversation(ctx, conversationID, page, limit)
	if err != nil {
		return nil, classify(err, "Conversation")
	}
	return &models.MessagePage{Messages: msgs, HasMore: hasMore}, nil
}

// SendMessage appends a text or image message. A retry with the same client_ref returns the
// message stored by the first attempt.
func (s *DefaultWorkflowService) SendMessage(ctx context.Context, userID, conversationID string, req models.SendMessageRequest) (*models.ConversationMessage, error) {
	req.Content = strings.TrimSpace(req.Content)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if req.Content == "" && len(req.Images) == 0 {
		return nil, utils.NewValidationError("invalid_content", "content is required")
	}
	if len(req.Images) > maxImagesPerMessage {
		return nil, utils.NewValidationError("invalid_images", "too many images")
	}
	conv, err := s.conversationFor(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureCounterparty(ctx, conv.Other(userID)); err != nil {
		return nil, err
	}

	if prev, err := s.Messages.FindByClientRef(ctx, conversationID, userID, req.ClientRef); err != nil {
		return nil, classify(err, "Message")
	} else if prev != nil {
		return prev, nil
	}

	msg := &models.ConversationMessage{
		ConversationID: conversationID,
		SenderID:       userID,
		Variant:        models.VariantPlainText,
		Content:        req.Content,
		ClientRef:      req.ClientRef,
	}
	if len(req.Images) > 0 {
		urls, err := s.uploadImages(ctx, req.Images)
		if err != nil {
			return nil, err
		}
		msg.Variant = models.VariantImage
		msg.ImageURLs = urls
	}
	if err := s.post(ctx, conversationID, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// SaveProfile registers or updates the caller's participant record.
func (s *DefaultWorkflowService) SaveProfile(ctx context.Context, userID string, p models.ParticipantProfile) (*models.Participant, error) {
	if err := utils.ValidateStruct(p); err != nil {
		return nil, err
	}
	part := &models.Participant{UserID: userID, Name: strings.TrimSpace(p.Name), FCMToken: p.FCMToken}
	if err := s.Conversations.UpsertParticipant(ctx, part); err != nil {
		return nil, classify(err, "Participant")
	}
	return part, nil
}

// DeleteAccount marks the caller deleted; the other side of each conversation then gets
// counterparty_deleted on every write.
func (s *DefaultWorkflowService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.Conversations.MarkParticipantDeleted(ctx, userID); err != nil {
		return classify(err, "Participant")
	}
	s.Logger.Info("participant deleted", zap.String("userID", userID))
	return nil
}

func (s *DefaultWorkflowService) conversationFor(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	conv, err := s.Conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, classify(err, "Conversation")
	}
	if !conv.Has(userID) {
		return nil, errNotParticipant
	}
	return conv, nil
}

func (s *DefaultWorkflowService) uploadImages(ctx context.Context, sources []string) ([]string, error) {
	if s.Images == nil {
		return nil, utils.NewValidationError("images_unsupported", "Image uploads are not available")
	}
	urls := make([]string, 0, len(sources))
	for _, src := range sources {
		url, err := s.Images.UploadImage(ctx, src, s.ImageFolder)
		if err != nil {
			return nil, utils.WrapAppError(err, utils.KindValidation, "invalid_images", "An image could not be uploaded")
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// post stores msg and fans it out: a realtime event to both participants and a push to the
// one who should act on it.
func (s *DefaultWorkflowService) post(ctx context.Context, conversationID string, msg *models.ConversationMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	msg.CreatedAt = s.now().UTC()
	if err := s.Messages.Create(ctx, msg); err != nil {
		return classify(err, "Message")
	}

	conv, err := s.Conversations.GetByID(ctx, conversationID)
	if err != nil {
		s.Logger.Warn("message stored but conversation lookup failed", zap.String("messageID", msg.ID), zap.Error(err))
		return nil
	}
	if s.Publisher != nil {
		s.Publisher.Publish(conv.Participants[:], models.RealtimeEvent{
			Type:           models.EventNewMessage,
			ConversationID: conversationID,
			Message:        msg,
		})
	}

	recipient := conv.Other(msg.SenderID)
	if msg.Variant == models.VariantReviewRequest {
		if msg.ReviewerID == msg.SenderID {
			return nil
		}
		recipient = msg.ReviewerID
	}
	if s.Notifier != nil {
		if err := s.Notifier.NotifyNewMessage(ctx, recipient, msg); err != nil {
			s.Logger.Debug("push not delivered", zap.String("recipient", recipient), zap.Error(err))
		}
	}
	return nil
}

// publish sends a booking-scoped event to both participants of the booking.
func (s *DefaultWorkflowService) publish(b *models.Booking, ev models.RealtimeEvent) {
	if s.Publisher == nil {
		return
	}
	ev.ConversationID = b.ConversationID
	s.Publisher.Publish([]string{b.ClientID, b.ProviderID}, ev)
}
