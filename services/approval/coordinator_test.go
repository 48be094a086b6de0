package approval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pawhub/models"
	"pawhub/services/booking"
	"pawhub/utils"
)

type MockBookingAPI struct {
	mock.Mock
}

func (m *MockBookingAPI) bookingResult(args mock.Arguments) (*models.Booking, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingAPI) GetBookingDetails(ctx context.Context, bookingID string) (*models.Booking, error) {
	return m.bookingResult(m.Called(ctx, bookingID))
}

func (m *MockBookingAPI) ApproveBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	return m.bookingResult(m.Called(ctx, bookingID))
}

func (m *MockBookingAPI) RequestBookingChanges(ctx context.Context, bookingID, message string) (*models.Booking, error) {
	return m.bookingResult(m.Called(ctx, bookingID, message))
}

func (m *MockBookingAPI) MarkBookingCompleted(ctx context.Context, bookingID string) (*models.Booking, error) {
	return m.bookingResult(m.Called(ctx, bookingID))
}

func (m *MockBookingAPI) ApplyAction(ctx context.Context, bookingID string, action booking.Action) (*models.Booking, error) {
	return m.bookingResult(m.Called(ctx, bookingID, action))
}

func (m *MockBookingAPI) GetIncompleteBookings(ctx context.Context, conversationID string) ([]models.Booking, error) {
	args := m.Called(ctx, conversationID)
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *MockBookingAPI) SubmitBookingReview(ctx context.Context, review models.ReviewSubmission) (*models.Review, error) {
	args := m.Called(ctx, review)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

type MockSink struct {
	mock.Mock
}

func (m *MockSink) SetBookingStatus(bookingID string, status models.BookingStatus) {
	m.Called(bookingID, status)
}

var now = time.Date(2025, 7, 20, 10, 0, 0, 0, time.UTC)

func fixture(status models.BookingStatus, lastEnd time.Time) *models.Booking {
	return &models.Booking{
		ID:             "b-1",
		Status:         status,
		ClientID:       "client-1",
		ProviderID:     "provider-1",
		ConversationID: "conv-1",
		Occurrences: []models.Occurrence{
			{ID: "o1", Start: lastEnd.Add(-2 * time.Hour), End: lastEnd},
		},
	}
}

func newCoordinator(api *MockBookingAPI, sink *MockSink, userID string) *Coordinator {
	c := NewCoordinator(api, sink, nil, userID, nil)
	c.now = func() time.Time { return now }
	return c
}

func TestApproveAppliesStatusAfterAck(t *testing.T) {
	api := new(MockBookingAPI)
	sink := new(MockSink)
	api.On("GetBookingDetails", mock.Anything, "b-1").Return(fixture(models.StatusPendingClientApproval, now.Add(48*time.Hour)), nil)
	api.On("ApproveBooking", mock.Anything, "b-1").Return(fixture(models.StatusConfirmed, now.Add(48*time.Hour)), nil)
	sink.On("SetBookingStatus", "b-1", models.StatusConfirmed).Return()

	b, err := newCoordinator(api, sink, "client-1").Approve(context.Background(), "b-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, b.Status)
	api.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestApproveRejectedBeforeNetwork(t *testing.T) {
	api := new(MockBookingAPI)
	sink := new(MockSink)
	api.On("GetBookingDetails", mock.Anything, "b-1").Return(fixture(models.StatusConfirmed, now.Add(48*time.Hour)), nil)

	_, err := newCoordinator(api, sink, "client-1").Approve(context.Background(), "b-1")
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindTransition))
	api.AssertNotCalled(t, "ApproveBooking", mock.Anything, mock.Anything)
	sink.AssertNotCalled(t, "SetBookingStatus", mock.Anything, mock.Anything)
}

func TestProviderCannotApprove(t *testing.T) {
	api := new(MockBookingAPI)
	api.On("GetBookingDetails", mock.Anything, "b-1").Return(fixture(models.StatusPendingClientApproval, now), nil)

	_, err := newCoordinator(api, new(MockSink), "provider-1").Approve(context.Background(), "b-1")
	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, booking.CodeActorNotAllowed, appErr.Code)
}

func TestFailedActionLeavesStateUntouched(t *testing.T) {
	api := new(MockBookingAPI)
	sink := new(MockSink)
	api.On("GetBookingDetails", mock.Anything, "b-1").Return(fixture(models.StatusPendingClientApproval, now), nil)
	api.On("ApproveBooking", mock.Anything, "b-1").Return(nil, errors.New("503"))

	_, err := newCoordinator(api, sink, "client-1").Approve(context.Background(), "b-1")
	assert.Error(t, err)
	sink.AssertNotCalled(t, "SetBookingStatus", mock.Anything, mock.Anything)
}

func TestCancelledCallerDoesNotApply(t *testing.T) {
	api := new(MockBookingAPI)
	sink := new(MockSink)
	ctx, cancel := context.WithCancel(context.Background())

	api.On("GetBookingDetails", mock.Anything, "b-1").Return(fixture(models.StatusPendingClientApproval, now), nil)
	api.On("ApproveBooking", mock.Anything, "b-1").
		Run(func(mock.Arguments) { cancel() }).
		Return(fixture(models.StatusConfirmed, now), nil)

	_, err := newCoordinator(api, sink, "client-1").Approve(ctx, "b-1")
	assert.ErrorIs(t, err, context.Canceled)
	sink.AssertNotCalled(t, "SetBookingStatus", mock.Anything, mock.Anything)
}

func TestRequestChangesValidation(t *testing.T) {
	api := new(MockBookingAPI)
	c := newCoordinator(api, new(MockSink), "client-1")

	for _, msg := range []string{"", "   \n\t"} {
		_, err := c.RequestChanges(context.Background(), "b-1", msg)
		assert.True(t, utils.IsKind(err, utils.KindValidation), "%q", msg)
	}
	api.AssertNotCalled(t, "GetBookingDetails", mock.Anything, mock.Anything)

	sink := new(MockSink)
	api.On("GetBookingDetails", mock.Anything, "b-1").Return(fixture(models.StatusPendingClientApproval, now), nil)
	api.On("RequestBookingChanges", mock.Anything, "b-1", "move to Friday").Return(fixture(models.StatusPendingProviderChanges, now), nil)
	sink.On("SetBookingStatus", "b-1", models.StatusPendingProviderChanges).Return()

	b, err := newCoordinator(api, sink, "client-1").RequestChanges(context.Background(), "b-1", "  move to Friday ")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingProviderChanges, b.Status)
	sink.AssertExpectations(t)
}

func TestMarkCompletedGuards(t *testing.T) {
	t.Run("not ended yet", func(t *testing.T) {
		api := new(MockBookingAPI)
		api.On("GetBookingDetails", mock.Anything, "b-1").Return(fixture(models.StatusConfirmed, now.Add(time.Hour)), nil)
		_, err := newCoordinator(api, new(MockSink), "provider-1").MarkCompleted(context.Background(), "b-1")

		var appErr *utils.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, booking.CodeNotYetEnded, appErr.Code)
		api.AssertNotCalled(t, "MarkBookingCompleted", mock.Anything, mock.Anything)
	})

	t.Run("client may not complete", func(t *testing.T) {
		api := new(MockBookingAPI)
		api.On("GetBookingDetails", mock.Anything, "b-1").Return(fixture(models.StatusConfirmed, now.Add(-24*time.Hour)), nil)
		_, err := newCoordinator(api, new(MockSink), "client-1").MarkCompleted(context.Background(), "b-1")
		assert.True(t, utils.IsKind(err, utils.KindTransition))
	})

	t.Run("provider after the last occurrence", func(t *testing.T) {
		api := new(MockBookingAPI)
		sink := new(MockSink)
		api.On("GetBookingDetails", mock.Anything, "b-1").Return(fixture(models.StatusConfirmed, now.Add(-24*time.Hour)), nil)
		api.On("MarkBookingCompleted", mock.Anything, "b-1").Return(fixture(models.StatusCompleted, now.Add(-24*time.Hour)), nil)
		sink.On("SetBookingStatus", "b-1", models.StatusCompleted).Return()

		b, err := newCoordinator(api, sink, "provider-1").MarkCompleted(context.Background(), "b-1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, b.Status)
		sink.AssertExpectations(t)
	})
}

func TestSubmitReview(t *testing.T) {
	invalid := []models.ReviewSubmission{
		{BookingID: "b-1", Rating: 0, ReviewText: "great"},
		{BookingID: "b-1", Rating: 6, ReviewText: "great"},
		{BookingID: "b-1", Rating: 4, ReviewText: "   "},
		{Rating: 4, ReviewText: "great"},
	}
	api := new(MockBookingAPI)
	c := newCoordinator(api, new(MockSink), "client-1")
	for _, r := range invalid {
		_, err := c.SubmitReview(context.Background(), r)
		assert.True(t, utils.IsKind(err, utils.KindValidation), "%+v", r)
	}
	api.AssertNotCalled(t, "SubmitBookingReview", mock.Anything, mock.Anything)

	api.On("GetBookingDetails", mock.Anything, "b-1").Return(fixture(models.StatusCompleted, now.Add(-time.Hour)), nil)
	api.On("SubmitBookingReview", mock.Anything, mock.MatchedBy(func(r models.ReviewSubmission) bool {
		return r.Rating == 5 && r.ReviewText == "Lovely walk" && r.ConversationID == "conv-1"
	})).Return(&models.Review{ID: "r-1", Rating: 5}, nil)

	rev, err := c.SubmitReview(context.Background(), models.ReviewSubmission{BookingID: "b-1", Rating: 5, ReviewText: " Lovely walk "})
	require.NoError(t, err)
	assert.Equal(t, "r-1", rev.ID)
}

func TestReviewRequiresCompletedBooking(t *testing.T) {
	api := new(MockBookingAPI)
	api.On("GetBookingDetails", mock.Anything, "b-1").Return(fixture(models.StatusConfirmed, now.Add(-time.Hour)), nil)

	_, err := newCoordinator(api, new(MockSink), "client-1").SubmitReview(context.Background(),
		models.ReviewSubmission{BookingID: "b-1", Rating: 5, ReviewText: "ok"})
	assert.True(t, utils.IsKind(err, utils.KindTransition))
}

func TestCompletableBookings(t *testing.T) {
	ended := fixture(models.StatusConfirmed, now.Add(-time.Hour))
	upcoming := fixture(models.StatusConfirmed, now.Add(time.Hour))
	upcoming.ID = "b-2"
	pending := fixture(models.StatusPendingClientApproval, now.Add(-time.Hour))
	pending.ID = "b-3"
	noDates := &models.Booking{ID: "b-4", Status: models.StatusConfirmed, ClientID: "client-1", ProviderID: "provider-1"}

	api := new(MockBookingAPI)
	api.On("GetIncompleteBookings", mock.Anything, "conv-1").
		Return([]models.Booking{*ended, *upcoming, *pending, *noDates}, nil)

	got, err := newCoordinator(api, new(MockSink), "provider-1").CompletableBookings(context.Background(), "conv-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b-1", got[0].ID)

	got, err = newCoordinator(api, new(MockSink), "client-1").CompletableBookings(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

type memoryCache struct {
	bookings map[string]*models.Booking
}

func (m *memoryCache) LoadBooking(_ context.Context, id string) (*models.Booking, error) {
	if b, ok := m.bookings[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

func (m *memoryCache) SaveBooking(_ context.Context, b *models.Booking) error {
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *memoryCache) InvalidateBooking(_ context.Context, id string) error {
	delete(m.bookings, id)
	return nil
}

func TestActionChecksServerStateNotCache(t *testing.T) {
	api := new(MockBookingAPI)
	sink := new(MockSink)
	cache := &memoryCache{bookings: map[string]*models.Booking{
		"b-1": fixture(models.StatusPendingProviderChanges, now),
	}}
	c := NewCoordinator(api, sink, cache, "client-1", nil)
	c.now = func() time.Time { return now }

	// The provider re-proposed after the client's change request was cached.
	api.On("GetBookingDetails", mock.Anything, "b-1").Return(fixture(models.StatusPendingClientApproval, now), nil)
	api.On("ApproveBooking", mock.Anything, "b-1").Return(fixture(models.StatusConfirmed, now), nil)
	sink.On("SetBookingStatus", "b-1", models.StatusConfirmed).Return()

	b, err := c.Approve(context.Background(), "b-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, b.Status)
	api.AssertCalled(t, "ApproveBooking", mock.Anything, "b-1")
	assert.Equal(t, models.StatusConfirmed, cache.bookings["b-1"].Status)
}

func TestEmptyAcknowledgmentReadsStateBack(t *testing.T) {
	t.Run("refetch succeeds", func(t *testing.T) {
		api := new(MockBookingAPI)
		sink := new(MockSink)
		api.On("GetBookingDetails", mock.Anything, "b-1").Return(fixture(models.StatusPendingClientApproval, now), nil).Once()
		api.On("GetBookingDetails", mock.Anything, "b-1").Return(fixture(models.StatusConfirmed, now), nil).Once()
		api.On("ApproveBooking", mock.Anything, "b-1").Return(nil, nil)
		sink.On("SetBookingStatus", "b-1", models.StatusConfirmed).Return()

		b, err := newCoordinator(api, sink, "client-1").Approve(context.Background(), "b-1")
		require.NoError(t, err)
		require.NotNil(t, b)
		assert.Equal(t, models.StatusConfirmed, b.Status)
		sink.AssertExpectations(t)
	})

	t.Run("refetch fails", func(t *testing.T) {
		api := new(MockBookingAPI)
		sink := new(MockSink)
		api.On("GetBookingDetails", mock.Anything, "b-1").Return(fixture(models.StatusPendingClientApproval, now), nil).Once()
		api.On("GetBookingDetails", mock.Anything, "b-1").Return(nil, errors.New("503")).Once()
		api.On("ApproveBooking", mock.Anything, "b-1").Return(nil, nil)

		b, err := newCoordinator(api, sink, "client-1").Approve(context.Background(), "b-1")
		assert.Error(t, err)
		assert.Nil(t, b)
		sink.AssertNotCalled(t, "SetBookingStatus", mock.Anything, mock.Anything)
	})
}
