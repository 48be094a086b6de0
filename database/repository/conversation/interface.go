// File: database/repository/conversation/interface.go
package conversationRepo

import (
	"context"
	"errors"

	"pawhub/database"
	"pawhub/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when no conversation or participant matches.
var ErrNotFound = errors.New("not found")

// ConversationRepository stores conversations and the participant accounts they reference.
type ConversationRepository interface {
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	Create(ctx context.Context, c *models.Conversation) error
	GetParticipant(ctx context.Context, userID string) (*models.Participant, error)
	UpsertParticipant(ctx context.Context, p *models.Participant) error
	MarkParticipantDeleted(ctx context.Context, userID string) error
}

type mongoConversationRepo struct {
	conversations *mongo.Collection
	participants  *mongo.Collection
}

// NewMongoConversationRepo constructs a MongoDB ConversationRepository.
func NewMongoConversationRepo() ConversationRepository {
	db := database.DB()
	repo := &mongoConversationRepo{
		conversations: db.Collection("conversations"),
		participants:  db.Collection("participants"),
	}
	if err := repo.EnsureIndexes(); err != nil {
		database.LogIndexError("conversations", err)
	}
	return repo
}
