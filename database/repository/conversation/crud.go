// File: database/repository/conversation/crud.go
package conversationRepo

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

func (r *mongoConversationRepo) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var c models.Conversation
	if err := r.conversations.FindOne(ctx, bson.M{"id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching conversation %s: %w", id, err)
	}
	return &c, nil
}

func (r *mongoConversationRepo) Create(ctx context.Context, c *models.Conversation) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Now()
	if _, err := r.conversations.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

func (r *mongoConversationRepo) GetParticipant(ctx context.Context, userID string) (*models.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var p models.Participant
	if err := r.participants.FindOne(ctx, bson.M{"user_id": userID}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching participant %s: %w", userID, err)
	}
	return &p, nil
}

func (r *mongoConversationRepo) UpsertParticipant(ctx context.Context, p *models.Participant) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p.UpdatedAt = time.Now()
	opts := options.Replace().SetUpsert(true)
	if _, err := r.participants.ReplaceOne(ctx, bson.M{"user_id": p.UserID}, p, opts); err != nil {
		return fmt.Errorf("failed to upsert participant %s: %w", p.UserID, err)
	}
	return nil
}

func (r *mongoConversationRepo) MarkParticipantDeleted(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{"deleted": true, "updated_at": time.Now()}, "$unset": bson.M{"fcm_token": ""}}
	res, err := r.participants.UpdateOne(ctx, bson.M{"user_id": userID}, update)
	if err != nil {
		return fmt.Errorf("failed to mark participant %s deleted: %w", userID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
