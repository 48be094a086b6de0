package workflow

import (
	"context"
	"sort"
	"sync"
	"time"

	bookingRepo "pawhub/database/repository/booking"
	conversationRepo "pawhub/database/repository/conversation"
	reviewRepo "pawhub/database/repository/review"
	"pawhub/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type memBookings struct {
	mu   sync.Mutex
	byID map[string]models.Booking
}

func newMemBookings() *memBookings { return &memBookings{byID: map[string]models.Booking{}} }

func (m *memBookings) Create(_ context.Context, b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	m.byID[b.ID] = *b
	return nil
}

func (m *memBookings) GetByID(_ context.Context, id string) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.byID[id]
	if !ok {
		return nil, bookingRepo.ErrNotFound
	}
	return &b, nil
}

func (m *memBookings) UpdateStatus(_ context.Context, id string, from, to models.BookingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.byID[id]
	if !ok {
		return bookingRepo.ErrNotFound
	}
	if b.Status != from {
		return bookingRepo.ErrStatusConflict
	}
	b.Status = to
	m.byID[id] = b
	return nil
}

func (m *memBookings) ReplaceTerms(_ context.Context, nb *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.byID[nb.ID]
	if !ok {
		return bookingRepo.ErrNotFound
	}
	if b.Status != nb.Status {
		return bookingRepo.ErrStatusConflict
	}
	b.ServiceType = nb.ServiceType
	b.Occurrences = nb.Occurrences
	b.Pets = nb.Pets
	b.CostSummary = nb.CostSummary
	m.byID[nb.ID] = b
	return nil
}

func (m *memBookings) ListIncompleteByConversation(_ context.Context, conversationID string) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Booking{}
	for _, b := range m.byID {
		if b.ConversationID != conversationID {
			continue
		}
		switch b.Status {
		case models.StatusCompleted, models.StatusDenied, models.StatusCancelled:
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memMessages struct {
	mu   sync.Mutex
	list []models.ConversationMessage
}

func (m *memMessages) Create(_ context.Context, msg *models.ConversationMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = append(m.list, msg.Clone())
	return nil
}

func (m *memMessages) ListByConversation(_ context.Context, conversationID string, page, limit int) ([]models.ConversationMessage, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.ConversationMessage
	for i := len(m.list) - 1; i >= 0; i-- {
		if m.list[i].ConversationID == conversationID {
			all = append(all, m.list[i].Clone())
		}
	}
	start := (page - 1) * limit
	if start >= len(all) {
		return []models.ConversationMessage{}, false, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], end < len(all), nil
}

func (m *memMessages) FindByClientRef(_ context.Context, conversationID, senderID, ref string) (*models.ConversationMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.list {
		if msg.ConversationID == conversationID && msg.SenderID == senderID && msg.ClientRef == ref {
			c := msg.Clone()
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memMessages) variants() []models.MessageVariant {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.MessageVariant, len(m.list))
	for i, msg := range m.list {
		out[i] = msg.Variant
	}
	return out
}

type memConversations struct {
	mu           sync.Mutex
	convs        map[string]models.Conversation
	participants map[string]models.Participant
}

func newMemConversations() *memConversations {
	return &memConversations{convs: map[string]models.Conversation{}, participants: map[string]models.Participant{}}
}

func (m *memConversations) GetByID(_ context.Context, id string) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[id]
	if !ok {
		return nil, conversationRepo.ErrNotFound
	}
	return &c, nil
}

func (m *memConversations) Create(_ context.Context, c *models.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Now()
	m.convs[c.ID] = *c
	return nil
}

func (m *memConversations) GetParticipant(_ context.Context, userID string) (*models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.participants[userID]
	if !ok {
		return nil, conversationRepo.ErrNotFound
	}
	return &p, nil
}

func (m *memConversations) UpsertParticipant(_ context.Context, p *models.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.participants[p.UserID] = *p
	return nil
}

func (m *memConversations) MarkParticipantDeleted(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.participants[userID]
	if !ok {
		return conversationRepo.ErrNotFound
	}
	p.Deleted = true
	m.participants[userID] = p
	return nil
}

type memReviews struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (m *memReviews) Create(_ context.Context, r *models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := r.BookingID + "/" + r.ReviewerID
	if m.seen[key] {
		return reviewRepo.ErrDuplicate
	}
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	m.seen[key] = true
	return nil
}

type published struct {
	to []string
	ev models.RealtimeEvent
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(userIDs []string, ev models.RealtimeEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{to: append([]string(nil), userIDs...), ev: ev})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.ev.Type
	}
	return out
}

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) NotifyNewMessage(ctx context.Context, recipientID string, msg *models.ConversationMessage) error {
	return m.Called(ctx, recipientID, msg).Error(0)
}

type MockScheduler struct{ mock.Mock }

func (m *MockScheduler) ScheduleCompletionDue(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}

type MockImages struct{ mock.Mock }

func (m *MockImages) UploadImage(ctx context.Context, source, destFolder string) (string, error) {
	args := m.Called(ctx, source, destFolder)
	return args.String(0), args.Error(1)
}
