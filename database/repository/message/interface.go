// File: database/repository/message/interface.go
package messageRepo

import (
	"context"

	"pawhub/database"
	"pawhub/models"

	"go.mongodb.org/mongo-driver/mongo"
)

type MessageRepository interface {
	Create(ctx context.Context, m *models.ConversationMessage) error
	// ListByConversation returns one page of history, newest first, and whether older pages exist.
	ListByConversation(ctx context.Context, conversationID string, page, limit int) ([]models.ConversationMessage, bool, error)
	// FindByClientRef returns the message a sender already stored under ref, or nil.
	FindByClientRef(ctx context.Context, conversationID, senderID, ref string) (*models.ConversationMessage, error)
}

type mongoMessageRepo struct {
	coll *mongo.Collection
}

// NewMongoMessageRepo constructs a MongoDB MessageRepository.
func NewMongoMessageRepo() MessageRepository {
	repo := &mongoMessageRepo{coll: database.DB().Collection("messages")}
	if err := repo.EnsureIndexes(); err != nil {
		database.LogIndexError("messages", err)
	}
	return repo
}
