// Package workflow is the server side of the booking lifecycle: it applies transitions, appends
// the protocol messages each transition produces and fans them out to both participants.
package workflow

import (
	"context"
	"time"

	"pawhub/models"
	"pawhub/services/booking"

	"go.uber.org/zap"
)

// WorkflowService applies booking actions on behalf of a participant.
type WorkflowService interface {
	CreateBooking(ctx context.Context, userID string, req models.CreateBookingRequest) (*models.Booking, error)
	GetBooking(ctx context.Context, userID, bookingID string) (*models.Booking, error)
	UpdateTerms(ctx context.Context, userID, bookingID string, req models.UpdateTermsRequest) (*models.Booking, error)
	Approve(ctx context.Context, userID, bookingID string) (*models.Booking, error)
	RequestChanges(ctx context.Context, userID, bookingID, note string) (*models.Booking, error)
	MarkCompleted(ctx context.Context, userID, bookingID string) (*models.Booking, error)
	ApplyAction(ctx context.Context, userID, bookingID string, action booking.Action) (*models.Booking, error)
	SubmitReview(ctx context.Context, userID string, sub models.ReviewSubmission) (*models.Review, error)
	IncompleteBookings(ctx context.Context, userID, conversationID string) ([]models.Booking, error)
}

// MessageService reads and appends conversation messages.
type MessageService interface {
	CreateConversation(ctx context.Context, userID string, req models.CreateConversationRequest) (*models.Conversation, error)
	ListMessages(ctx context.Context, userID, conversationID string, page, limit int) (*models.MessagePage, error)
	SendMessage(ctx context.Context, userID, conversationID string, req models.SendMessageRequest) (*models.ConversationMessage, error)
	SaveProfile(ctx context.Context, userID string, p models.ParticipantProfile) (*models.Participant, error)
	DeleteAccount(ctx context.Context, userID string) error
}

type BookingStore interface {
	Create(ctx context.Context, b *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	UpdateStatus(ctx context.Context, id string, from, to models.BookingStatus) error
	ReplaceTerms(ctx context.Context, b *models.Booking) error
	ListIncompleteByConversation(ctx context.Context, conversationID string) ([]models.Booking, error)
}

type MessageStore interface {
	Create(ctx context.Context, m *models.ConversationMessage) error
	ListByConversation(ctx context.Context, conversationID string, page, limit int) ([]models.ConversationMessage, bool, error)
	FindByClientRef(ctx context.Context, conversationID, senderID, ref string) (*models.ConversationMessage, error)
}

type ConversationStore interface {
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	Create(ctx context.Context, c *models.Conversation) error
	GetParticipant(ctx context.Context, userID string) (*models.Participant, error)
	UpsertParticipant(ctx context.Context, p *models.Participant) error
	MarkParticipantDeleted(ctx context.Context, userID string) error
}

type ReviewStore interface {
	Create(ctx context.Context, r *models.Review) error
}

// Publisher pushes realtime events to the connected sockets of the given users.
type Publisher interface {
	Publish(userIDs []string, ev models.RealtimeEvent)
}

// Notifier sends a push for a message the recipient did not author.
type Notifier interface {
	NotifyNewMessage(ctx context.Context, recipientID string, msg *models.ConversationMessage) error
}

// CompletionScheduler queues the reminder fired when a confirmed booking ends.
type CompletionScheduler interface {
	ScheduleCompletionDue(ctx context.Context, b *models.Booking) error
}

// BookingCache holds booking details served by GetBooking.
type BookingCache interface {
	LoadBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	SaveBooking(ctx context.Context, b *models.Booking) error
	InvalidateBooking(ctx context.Context, bookingID string) error
}

// ImageStore uploads message attachments and returns their public URLs.
type ImageStore interface {
	UploadImage(ctx context.Context, source, destFolder string) (string, error)
}

// Deps wires the stores and side channels. Publisher, Notifier, Scheduler, Cache and Images
// are optional.
type Deps struct {
	Bookings      BookingStore
	Messages      MessageStore
	Conversations ConversationStore
	Reviews       ReviewStore
	Publisher     Publisher
	Notifier      Notifier
	Scheduler     CompletionScheduler
	Cache         BookingCache
	Images        ImageStore
	ImageFolder   string
	Pricing       booking.PricingRates
	Logger        *zap.Logger
}

// DefaultWorkflowService implements WorkflowService and MessageService over the same stores.
type DefaultWorkflowService struct {
	Deps
	now func() time.Time
}

func NewDefaultWorkflowService(d Deps) *DefaultWorkflowService {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.ImageFolder == "" {
		d.ImageFolder = "pawhub/messages"
	}
	return &DefaultWorkflowService{Deps: d, now: time.Now}
}

var (
	_ WorkflowService = (*DefaultWorkflowService)(nil)
	_ MessageService  = (*DefaultWorkflowService)(nil)
)
