package cron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pawhub/config"
	"pawhub/models"
	"pawhub/services/booking"
	"pawhub/services/notification"
	"pawhub/services/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// BookingLookup is how the worker re-reads a booking before reminding anyone about it.
type BookingLookup interface {
	GetByID(ctx context.Context, id string) (*models.Booking, error)
}

// RedisOpt returns the asynq connection for the task queue DB.
func RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// InitCompletionWorker runs the async worker in background and returns it for shutdown.
func InitCompletionWorker(bookings BookingLookup, notifSvc notification.NotificationService, logger *zap.Logger) *asynq.Server {
	srv := asynq.NewServer(
		RedisOpt(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeCompletionDue, HandleCompletionDue(bookings, notifSvc, logger))

	go monitorRedisConnection(logger)

	go func() {
		logger.Info("starting completion worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				logger.Error("completion worker failed to start",
					zap.Int("attempt", attempts), zap.Int("max", maxAttempts), zap.Error(err))

				if attempts == maxAttempts {
					logger.Fatal("completion worker: max retry attempts reached")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
	return srv
}

// HandleCompletionDue tells the provider a confirmed booking can be marked completed. Bookings
// that left the confirmed states since the task was queued are skipped.
func HandleCompletionDue(bookings BookingLookup, notifSvc notification.NotificationService, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.CompletionDuePayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("invalid completion payload", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		b, err := bookings.GetByID(ctx, p.BookingID)
		if err != nil {
			return fmt.Errorf("load booking %s: %w", p.BookingID, err)
		}
		if !booking.IsConfirmed(b.Status) {
			logger.Debug("completion reminder no longer relevant",
				zap.String("bookingID", b.ID), zap.String("status", string(b.Status)))
			return nil
		}

		if err := notifSvc.NotifyCompletionDue(ctx, p); err != nil {
			if errors.Is(err, notification.ErrNoToken) {
				return nil
			}
			logger.Warn("failed to send completion reminder", zap.String("bookingID", p.BookingID), zap.Error(err))
			return err
		}
		return nil
	}
}

// monitorRedisConnection pings the queue DB periodically to detect failures at runtime.
func monitorRedisConnection(logger *zap.Logger) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("task queue redis connection lost", zap.Error(err))
		}
		time.Sleep(10 * time.Second)
	}
}
