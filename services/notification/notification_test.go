package notification

import (
	"context"
	"errors"
	"testing"

	"pawhub/models"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLookup struct{ mock.Mock }

func (m *MockLookup) GetParticipant(ctx context.Context, userID string) (*models.Participant, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Participant), args.Error(1)
}

type MockSender struct{ mock.Mock }

func (m *MockSender) Send(ctx context.Context, msg *messaging.Message) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

func TestNotifyNewMessageBooking(t *testing.T) {
	lookup := new(MockLookup)
	sender := new(MockSender)
	svc, err := NewDefaultNotificationService(lookup, sender, nil)
	require.NoError(t, err)

	lookup.On("GetParticipant", mock.Anything, "c1").Return(&models.Participant{UserID: "c1", FCMToken: "tok"}, nil)
	sender.On("Send", mock.Anything, mock.MatchedBy(func(m *messaging.Message) bool {
		return m.Token == "tok" &&
			m.Data["type"] == models.NotificationBookingMessage &&
			m.Data["bookingId"] == "b1" &&
			m.Notification.Title == "Booking ready for approval"
	})).Return("fcm-1", nil)

	msg := &models.ConversationMessage{
		ID:             "m1",
		ConversationID: "conv",
		Variant:        models.VariantApproval,
		Booking:        &models.BookingSnapshot{BookingID: "b1"},
	}
	require.NoError(t, svc.NotifyNewMessage(context.Background(), "c1", msg))
	sender.AssertExpectations(t)
}

func TestSendSkipsDeletedParticipant(t *testing.T) {
	lookup := new(MockLookup)
	sender := new(MockSender)
	svc, err := NewDefaultNotificationService(lookup, sender, nil)
	require.NoError(t, err)

	lookup.On("GetParticipant", mock.Anything, "gone").Return(&models.Participant{UserID: "gone", FCMToken: "tok", Deleted: true}, nil)

	err = svc.SendPushNotification(context.Background(), "gone", "t", "b", nil)
	assert.ErrorIs(t, err, ErrNoToken)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestSendWrapsFCMFailure(t *testing.T) {
	lookup := new(MockLookup)
	sender := new(MockSender)
	svc, err := NewDefaultNotificationService(lookup, sender, nil)
	require.NoError(t, err)

	boom := errors.New("unavailable")
	lookup.On("GetParticipant", mock.Anything, "p1").Return(&models.Participant{UserID: "p1", FCMToken: "tok"}, nil)
	sender.On("Send", mock.Anything, mock.Anything).Return("", boom)

	err = svc.NotifyCompletionDue(context.Background(), models.CompletionDuePayload{BookingID: "b1", ProviderID: "p1"})
	assert.ErrorIs(t, err, boom)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
