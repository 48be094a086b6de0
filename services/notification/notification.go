package notification

import (
	"context"
	"errors"
	"fmt"

	"pawhub/models"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// ErrNoToken is returned when the recipient has no registered device.
var ErrNoToken = errors.New("participant has no FCM token")

// DefaultNotificationService is the production implementation.
type DefaultNotificationService struct {
	participants ParticipantLookup
	sender       Sender
	logger       *zap.Logger
}

func NewDefaultNotificationService(participants ParticipantLookup, sender Sender, logger *zap.Logger) (*DefaultNotificationService, error) {
	if participants == nil || sender == nil {
		return nil, fmt.Errorf("notification service initialization error: participant lookup or sender is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultNotificationService{participants: participants, sender: sender, logger: logger}, nil
}

// SendPushNotification looks up a participant's FCM token and sends a push.
func (s *DefaultNotificationService) SendPushNotification(ctx context.Context, userID, title, body string, data map[string]string) error {
	p, err := s.participants.GetParticipant(ctx, userID)
	if err != nil {
		return fmt.Errorf("SendPushNotification: could not find participant %s: %w", userID, err)
	}
	if p.Deleted || p.FCMToken == "" {
		return ErrNoToken
	}

	msg := &messaging.Message{
		Token: p.FCMToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority",
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}

	id, err := s.sender.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("SendPushNotification: failed to send FCM message: %w", err)
	}
	s.logger.Debug("push sent", zap.String("userID", userID), zap.String("fcmID", id))
	return nil
}

// NotifyNewMessage pushes a message to the participant who did not send it.
func (s *DefaultNotificationService) NotifyNewMessage(ctx context.Context, recipientID string, msg *models.ConversationMessage) error {
	title, body := describe(msg)
	kind := models.NotificationChatMessage
	if msg.Booking != nil {
		kind = models.NotificationBookingMessage
	}
	data := map[string]string{
		"type":           kind,
		"conversationId": msg.ConversationID,
		"messageId":      msg.ID,
	}
	if id := msg.BookingID(); id != "" {
		data["bookingId"] = id
	}
	return s.SendPushNotification(ctx, recipientID, title, body, data)
}

// NotifyCompletionDue reminds the provider that the booking can now be marked completed.
func (s *DefaultNotificationService) NotifyCompletionDue(ctx context.Context, p models.CompletionDuePayload) error {
	return s.SendPushNotification(ctx, p.ProviderID,
		"Booking finished",
		"Your booking has ended. Mark it as completed to ask for a review.",
		map[string]string{
			"type":           models.NotificationCompletionDue,
			"bookingId":      p.BookingID,
			"conversationId": p.ConversationID,
		})
}

func describe(msg *models.ConversationMessage) (string, string) {
	switch msg.Variant {
	case models.VariantRequest:
		return "New booking request", "You have a new booking request."
	case models.VariantApproval:
		return "Booking ready for approval", "Review the proposed booking and approve it."
	case models.VariantRequestChanges:
		return "Changes requested", truncate(msg.Content, 120)
	case models.VariantBookingConfirmed:
		return "Booking confirmed", "Your booking is confirmed."
	case models.VariantReviewRequest:
		return "How did it go?", "Your booking is complete. Leave a review."
	case models.VariantImage:
		return "New photo", "You received a photo."
	default:
		return "New message", truncate(msg.Content, 120)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
