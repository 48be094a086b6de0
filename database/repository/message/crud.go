// File: database/repository/message/crud.go
package messageRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pawhub/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (r *mongoMessageRepo) Create(ctx context.Context, m *models.ConversationMessage) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if _, err := r.coll.InsertOne(ctx, m); err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *mongoMessageRepo) ListByConversation(ctx context.Context, conversationID string, page, limit int) ([]models.ConversationMessage, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	// One extra row tells us whether an older page exists.
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "id", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit + 1))

	cursor, err := r.coll.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, false, fmt.Errorf("error listing messages of conversation %s: %w", conversationID, err)
	}
	defer cursor.Close(ctx)

	msgs := []models.ConversationMessage{}
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, false, fmt.Errorf("error decoding messages: %w", err)
	}
	hasMore := len(msgs) > limit
	if hasMore {
		msgs = msgs[:limit]
	}
	return msgs, hasMore, nil
}

func (r *mongoMessageRepo) FindByClientRef(ctx context.Context, conversationID, senderID, ref string) (*models.ConversationMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"conversation_id": conversationID, "sender_id": senderID, "client_ref": ref}
	var m models.ConversationMessage
	if err := r.coll.FindOne(ctx, filter).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("error fetching message by client ref: %w", err)
	}
	return &m, nil
}
