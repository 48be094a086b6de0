// File: database/repository/conversation/indexes.go
package conversationRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes on the conversations and participants collections.
func (r *mongoConversationRepo) EnsureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := r.conversations.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_id")},
		{Keys: bson.D{{Key: "participants", Value: 1}}, Options: options.Index().SetName("participants_idx")},
	}); err != nil {
		return fmt.Errorf("failed to create conversation indexes: %w", err)
	}

	if _, err := r.participants.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("unique_user_id"),
	}); err != nil {
		return fmt.Errorf("failed to create participant indexes: %w", err)
	}
	return nil
}
