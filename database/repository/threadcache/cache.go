// File: database/repository/threadcache/cache.go
package threadCacheRepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pawhub/models"
	"pawhub/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Cache persists last-known-good threads and booking details in Redis as JSON with a TTL.
type Cache struct {
	client     redis.Cmdable
	threadTTL  time.Duration
	bookingTTL time.Duration
	logger     *zap.Logger
}

func New(client redis.Cmdable, threadTTL, bookingTTL time.Duration, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{client: client, threadTTL: threadTTL, bookingTTL: bookingTTL, logger: logger}
}

func threadKey(viewerID, conversationID string) string {
	return utils.ThreadCachePrefix + viewerID + ":" + conversationID
}

func bookingKey(bookingID string) string {
	return utils.BookingCachePrefix + bookingID
}

// SaveThread stores the viewer's last-known-good copy of a conversation.
func (c *Cache) SaveThread(ctx context.Context, viewerID, conversationID string, msgs []models.ConversationMessage) error {
	data, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("marshal thread: %w", err)
	}
	if err := c.client.Set(ctx, threadKey(viewerID, conversationID), data, c.threadTTL).Err(); err != nil {
		c.logger.Error("Failed to cache thread", zap.String("conversationID", conversationID), zap.Error(err))
		return err
	}
	return nil
}

// LoadThread returns the cached copy, or nil when nothing is cached.
func (c *Cache) LoadThread(ctx context.Context, viewerID, conversationID string) ([]models.ConversationMessage, error) {
	data, err := c.client.Get(ctx, threadKey(viewerID, conversationID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var msgs []models.ConversationMessage
	if err := json.Unmarshal(data, &msgs); err != nil {
		c.logger.Warn("Dropping unreadable cached thread", zap.String("conversationID", conversationID), zap.Error(err))
		_ = c.client.Del(ctx, threadKey(viewerID, conversationID)).Err()
		return nil, nil
	}
	return msgs, nil
}

// DropThread removes the cached copy.
func (c *Cache) DropThread(ctx context.Context, viewerID, conversationID string) error {
	return c.client.Del(ctx, threadKey(viewerID, conversationID)).Err()
}

// SaveBooking caches booking details for the configured TTL.
func (c *Cache) SaveBooking(ctx context.Context, b *models.Booking) error {
	if b == nil || b.ID == "" {
		return nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal booking: %w", err)
	}
	return c.client.Set(ctx, bookingKey(b.ID), data, c.bookingTTL).Err()
}

// LoadBooking returns cached booking details, or nil on a miss.
func (c *Cache) LoadBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	data, err := c.client.Get(ctx, bookingKey(bookingID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var b models.Booking
	if err := json.Unmarshal(data, &b); err != nil {
		_ = c.client.Del(ctx, bookingKey(bookingID)).Err()
		return nil, nil
	}
	return &b, nil
}

// InvalidateBooking drops cached details after the booking changed.
func (c *Cache) InvalidateBooking(ctx context.Context, bookingID string) error {
	return c.client.Del(ctx, bookingKey(bookingID)).Err()
}
