package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pawhub/models"
	"pawhub/services/booking"
	"pawhub/services/overlay"
	"pawhub/services/realtime"
	"pawhub/utils"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) FetchMessages(ctx context.Context, conversationID string, page, limit int) (models.MessagePage, error) {
	args := m.Called(ctx, conversationID, page, limit)
	return args.Get(0).(models.MessagePage), args.Error(1)
}

func (m *MockAPI) SendMessage(ctx context.Context, conversationID string, req models.SendMessageRequest) (*models.ConversationMessage, error) {
	args := m.Called(ctx, conversationID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ConversationMessage), args.Error(1)
}

type memCache struct {
	mu    sync.Mutex
	saved map[string][]models.ConversationMessage
}

func newMemCache() *memCache {
	return &memCache{saved: map[string][]models.ConversationMessage{}}
}

func (c *memCache) SaveThread(_ context.Context, viewerID, conversationID string, msgs []models.ConversationMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saved[viewerID+"/"+conversationID] = msgs
	return nil
}

func (c *memCache) LoadThread(_ context.Context, viewerID, conversationID string) ([]models.ConversationMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saved[viewerID+"/"+conversationID], nil
}

func (c *memCache) get(key string) []models.ConversationMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saved[key]
}

var viewer = overlay.Viewer{UserID: "client-1", Role: booking.ActorClient}

func newTestEngine(api API, cache ThreadCache) (*Engine, *realtime.Registry) {
	feed := realtime.NewRegistry()
	e := NewEngine(api, feed, cache, Options{
		Viewer:            viewer,
		PageSize:          5,
		IntegrityInterval: 10 * time.Millisecond,
		CallTimeout:       time.Second,
	}, nil)
	return e, feed
}

func waitForIDs(t *testing.T, e *Engine, want ...string) {
	t.Helper()
	assert.Eventually(t, func() bool {
		got := ids(e.State().Messages)
		if len(got) != len(want) {
			return false
		}
		for i := range want {
			if got[i] != want[i] {
				return false
			}
		}
		return true
	}, 2*time.Second, 5*time.Millisecond, "want %v, have %v", want, ids(e.State().Messages))
}

func nextNotice(t *testing.T, e *Engine) Notice {
	t.Helper()
	select {
	case n := <-e.Notices():
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("no notice")
		return Notice{}
	}
}

func TestEngineOpenAndPaginate(t *testing.T) {
	api := new(MockAPI)
	api.On("FetchMessages", mock.Anything, "conv-1", 1, 5).Return(models.MessagePage{Messages: page(10, 6), HasMore: true}, nil)
	api.On("FetchMessages", mock.Anything, "conv-1", 2, 5).Return(models.MessagePage{Messages: page(5, 1), HasMore: false}, nil)

	e, _ := newTestEngine(api, nil)
	e.Open("conv-1")
	waitForIDs(t, e, "m10", "m9", "m8", "m7", "m6")

	assert.False(t, e.OnScroll(ScrollEvent{LastVisible: 4, Loaded: 5, UserScroll: false}))
	assert.True(t, e.OnScroll(ScrollEvent{LastVisible: 4, Loaded: 5, UserScroll: true}))
	waitForIDs(t, e, "m10", "m9", "m8", "m7", "m6", "m5", "m4", "m3", "m2", "m1")

	assert.False(t, e.LoadMore(), "no more pages")
	api.AssertExpectations(t)
}

func TestEngineSendRoundTrip(t *testing.T) {
	api := new(MockAPI)
	api.On("FetchMessages", mock.Anything, "conv-1", 1, 5).Return(models.MessagePage{}, nil)

	release := make(chan struct{})
	api.On("SendMessage", mock.Anything, "conv-1", mock.MatchedBy(func(r models.SendMessageRequest) bool {
		return r.Content == "hello" && r.ClientRef != ""
	})).Run(func(mock.Arguments) { <-release }).Return(&models.ConversationMessage{
		ID:             "srv-1",
		ConversationID: "conv-1",
		SenderID:       "client-1",
		Variant:        models.VariantPlainText,
		Content:        "hello",
		CreatedAt:      time.Now(),
	}, nil)

	e, _ := newTestEngine(api, nil)
	e.Open("conv-1")
	assert.Eventually(t, func() bool { return !e.State().Loading }, time.Second, 5*time.Millisecond)

	ref, err := e.Send("  hello ", nil)
	require.NoError(t, err)
	st := e.State()
	require.Len(t, st.Messages, 1)
	assert.Equal(t, TempID(ref), st.Messages[0].ID)
	assert.True(t, st.Messages[0].Pending)

	close(release)
	waitForIDs(t, e, "srv-1")
	assert.False(t, e.State().Messages[0].Pending)
}

func TestEngineSendValidation(t *testing.T) {
	e, _ := newTestEngine(new(MockAPI), nil)
	_, err := e.Send("   ", nil)
	assert.True(t, utils.IsKind(err, utils.KindValidation))
}

func TestEngineSendToDeletedCounterparty(t *testing.T) {
	api := new(MockAPI)
	api.On("FetchMessages", mock.Anything, "conv-1", 1, 5).Return(models.MessagePage{Messages: page(2, 1)}, nil)
	api.On("SendMessage", mock.Anything, "conv-1", mock.Anything).
		Return(nil, utils.NewAppError(utils.KindCounterpartyDeleted, "counterparty_deleted", "gone"))

	e, _ := newTestEngine(api, nil)
	e.Open("conv-1")
	waitForIDs(t, e, "m2", "m1")

	_, err := e.Send("are you there?", nil)
	require.NoError(t, err)

	n := nextNotice(t, e)
	assert.Equal(t, NoticeCounterpartyDeleted, n.Kind)
	waitForIDs(t, e, "m2", "m1")
}

func TestEngineFallsBackToCache(t *testing.T) {
	cache := newMemCache()
	require.NoError(t, cache.SaveThread(context.Background(), "client-1", "conv-1", page(3, 1)))

	api := new(MockAPI)
	api.On("FetchMessages", mock.Anything, "conv-1", 1, 5).Return(models.MessagePage{}, errors.New("connection refused")).Once()

	e, _ := newTestEngine(api, cache)
	e.Open("conv-1")
	waitForIDs(t, e, "m3", "m2", "m1")
	assert.Equal(t, NoticeError, nextNotice(t, e).Kind)
}

func TestEngineOffersRetryWhenNothingLoads(t *testing.T) {
	api := new(MockAPI)
	api.On("FetchMessages", mock.Anything, "conv-1", 1, 5).Return(models.MessagePage{}, errors.New("timeout")).Once()
	api.On("FetchMessages", mock.Anything, "conv-1", 1, 5).Return(models.MessagePage{Messages: page(1, 1)}, nil).Once()

	e, _ := newTestEngine(api, newMemCache())
	e.Open("conv-1")
	assert.Equal(t, NoticeRetry, nextNotice(t, e).Kind)

	assert.Eventually(t, func() bool { return !e.State().Loading }, time.Second, 5*time.Millisecond)
	require.True(t, e.Retry())
	waitForIDs(t, e, "m1")
}

func TestEngineDiscardsResultsOfClosedConversation(t *testing.T) {
	api := new(MockAPI)
	release := make(chan struct{})
	api.On("FetchMessages", mock.Anything, "conv-1", 1, 5).
		Run(func(mock.Arguments) { <-release }).
		Return(models.MessagePage{Messages: page(3, 1)}, nil)
	api.On("FetchMessages", mock.Anything, "conv-2", 1, 5).Return(models.MessagePage{}, nil)

	e, _ := newTestEngine(api, nil)
	e.Open("conv-1")
	e.Open("conv-2")
	assert.Eventually(t, func() bool { return !e.State().Loading }, time.Second, 5*time.Millisecond)

	close(release)
	time.Sleep(50 * time.Millisecond)
	st := e.State()
	assert.Equal(t, "conv-2", st.ConversationID)
	assert.Empty(t, st.Messages)
}

func TestEngineRoutesRealtimeEvents(t *testing.T) {
	api := new(MockAPI)
	api.On("FetchMessages", mock.Anything, "conv-1", 1, 5).Return(models.MessagePage{Messages: page(2, 1)}, nil)

	e, feed := newTestEngine(api, nil)
	e.Open("conv-1")
	waitForIDs(t, e, "m2", "m1")
	require.Equal(t, 1, feed.Len())

	pushed := textMsg("m3", 3)
	pushed.ConversationID = ""
	feed.Dispatch(models.RealtimeEvent{Type: models.EventNewMessage, ConversationID: "conv-1", Message: &pushed})
	feed.Dispatch(models.RealtimeEvent{Type: models.EventNewMessage, ConversationID: "conv-1", Message: &pushed})
	other := textMsg("x1", 4)
	other.ConversationID = "conv-9"
	feed.Dispatch(models.RealtimeEvent{Type: models.EventNewMessage, ConversationID: "conv-9", Message: &other})
	waitForIDs(t, e, "m3", "m2", "m1")

	edited := textMsg("m2", 2)
	edited.Content = "edited"
	feed.Dispatch(models.RealtimeEvent{Type: models.EventMessageUpdate, ConversationID: "conv-1", Message: &edited})
	assert.Equal(t, "edited", e.State().Messages[1].Content)

	feed.Dispatch(models.RealtimeEvent{Type: models.EventBookingUpdate, ConversationID: "conv-1", BookingID: "b-1", Status: models.StatusConfirmed})
	assert.Equal(t, models.StatusConfirmed, e.State().Live["b-1"])

	e.Close()
	assert.Zero(t, feed.Len())
}

func TestEngineRunRestoresAndPersists(t *testing.T) {
	cache := newMemCache()
	api := new(MockAPI)
	api.On("FetchMessages", mock.Anything, "conv-1", 1, 5).Return(models.MessagePage{Messages: page(4, 1)}, nil)

	e, _ := newTestEngine(api, cache)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	e.Open("conv-1")
	waitForIDs(t, e, "m4", "m3", "m2", "m1")
	assert.Eventually(t, func() bool { return len(cache.get("client-1/conv-1")) == 4 }, 2*time.Second, 5*time.Millisecond)

	e.store.mu.Lock()
	e.store.st.Messages = nil
	e.store.mu.Unlock()
	waitForIDs(t, e, "m4", "m3", "m2", "m1")
	assert.Equal(t, 1, e.State().Restores)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}
	assert.Empty(t, e.State().ConversationID)
}

type MockStatusAPI struct {
	MockAPI
}

func (m *MockStatusAPI) GetBookingDetails(ctx context.Context, bookingID string) (*models.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func approvalMsg(id string, minute int, bookingID string) models.ConversationMessage {
	m := textMsg(id, minute)
	m.Variant = models.VariantApproval
	m.Booking = &models.BookingSnapshot{BookingID: bookingID, Status: models.StatusPendingClientApproval}
	return m
}

func TestEngineOpenReadsLiveStatuses(t *testing.T) {
	api := new(MockStatusAPI)
	api.On("FetchMessages", mock.Anything, "conv-1", 1, 5).
		Return(models.MessagePage{Messages: []models.ConversationMessage{approvalMsg("m1", 1, "b-1")}}, nil)
	// cancelled after the approval card was sent
	api.On("GetBookingDetails", mock.Anything, "b-1").Return(&models.Booking{ID: "b-1", Status: models.StatusCancelled}, nil)

	e, _ := newTestEngine(api, nil)
	e.Open("conv-1")
	waitForIDs(t, e, "m1")
	assert.Eventually(t, func() bool { return e.State().Live["b-1"] == models.StatusCancelled },
		2*time.Second, 5*time.Millisecond)

	_, anns := e.Annotations()
	require.Len(t, anns, 1)
	assert.False(t, anns[0].Buttons.Any())
}

func TestEngineKeepsSnapshotStatusWhenLookupFails(t *testing.T) {
	api := new(MockStatusAPI)
	api.On("FetchMessages", mock.Anything, "conv-1", 1, 5).
		Return(models.MessagePage{Messages: []models.ConversationMessage{approvalMsg("m1", 1, "b-1")}}, nil)
	looked := make(chan struct{}, 1)
	api.On("GetBookingDetails", mock.Anything, "b-1").
		Run(func(mock.Arguments) {
			select {
			case looked <- struct{}{}:
			default:
			}
		}).
		Return(nil, errors.New("503"))

	e, _ := newTestEngine(api, nil)
	e.Open("conv-1")
	waitForIDs(t, e, "m1")
	select {
	case <-looked:
	case <-time.After(2 * time.Second):
		t.Fatal("status was never looked up")
	}
	assert.Empty(t, e.State().Live)

	_, anns := e.Annotations()
	require.Len(t, anns, 1)
	assert.True(t, anns[0].Buttons.Approve)
}

func TestEngineResyncsAfterReconnect(t *testing.T) {
	api := new(MockStatusAPI)
	api.On("FetchMessages", mock.Anything, "conv-1", 1, 5).
		Return(models.MessagePage{Messages: append([]models.ConversationMessage{approvalMsg("m5", 5, "b-1")}, page(4, 1)...)}, nil).Once()
	api.On("GetBookingDetails", mock.Anything, "b-1").
		Return(&models.Booking{ID: "b-1", Status: models.StatusPendingClientApproval}, nil).Once()

	e, feed := newTestEngine(api, nil)
	e.Open("conv-1")
	waitForIDs(t, e, "m5", "m4", "m3", "m2", "m1")
	assert.Eventually(t, func() bool { return e.State().Live["b-1"] == models.StatusPendingClientApproval },
		2*time.Second, 5*time.Millisecond)

	// m6 and m7 were sent and b-1 was approved while the socket was down.
	api.On("FetchMessages", mock.Anything, "conv-1", 1, 5).
		Return(models.MessagePage{Messages: append(page(7, 6), approvalMsg("m5", 5, "b-1"), textMsg("m4", 4), textMsg("m3", 3))}, nil).Once()
	api.On("GetBookingDetails", mock.Anything, "b-1").
		Return(&models.Booking{ID: "b-1", Status: models.StatusConfirmed}, nil).Once()
	feed.Dispatch(models.RealtimeEvent{Type: models.EventReconnected})

	waitForIDs(t, e, "m7", "m6", "m5", "m4", "m3", "m2", "m1")
	assert.Eventually(t, func() bool { return e.State().Live["b-1"] == models.StatusConfirmed },
		2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, e.State().Page)
	api.AssertExpectations(t)
}

func TestEngineReconnectLoadsThreadThatNeverLoaded(t *testing.T) {
	api := new(MockAPI)
	api.On("FetchMessages", mock.Anything, "conv-1", 1, 5).Return(models.MessagePage{}, errors.New("offline")).Once()
	api.On("FetchMessages", mock.Anything, "conv-1", 1, 5).Return(models.MessagePage{Messages: page(2, 1)}, nil).Once()

	e, feed := newTestEngine(api, nil)
	e.Open("conv-1")
	assert.Equal(t, NoticeRetry, nextNotice(t, e).Kind)
	assert.Eventually(t, func() bool { return !e.State().Loading }, time.Second, 5*time.Millisecond)

	feed.Dispatch(models.RealtimeEvent{Type: models.EventReconnected})
	waitForIDs(t, e, "m2", "m1")
}
