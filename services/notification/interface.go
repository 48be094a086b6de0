package notification

import (
	"context"

	"pawhub/models"

	"firebase.google.com/go/v4/messaging"
)

// NotificationService defines methods for sending FCM pushes to conversation participants.
type NotificationService interface {
	SendPushNotification(ctx context.Context, userID, title, body string, data map[string]string) error
	NotifyNewMessage(ctx context.Context, recipientID string, msg *models.ConversationMessage) error
	NotifyCompletionDue(ctx context.Context, p models.CompletionDuePayload) error
}

// Sender delivers one FCM message; *messaging.Client satisfies it.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// ParticipantLookup resolves a user to its push token.
type ParticipantLookup interface {
	GetParticipant(ctx context.Context, userID string) (*models.Participant, error)
}
