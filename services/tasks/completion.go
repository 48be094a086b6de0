package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"pawhub/models"

	"github.com/hibiken/asynq"
)

const TypeCompletionDue = "booking:completion_due"

// NewCompletionDueTask builds the task fired when a confirmed booking's last occurrence ends.
func NewCompletionDueTask(payload models.CompletionDuePayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeCompletionDue, b)
	opts := []asynq.Option{
		asynq.ProcessAt(fireAt),
		asynq.TaskID(CompletionTaskID(payload.BookingID, fireAt)),
		asynq.MaxRetry(5),
	}
	return task, opts, nil
}

// CompletionTaskID is unique per booking and end time, so an edit that moves the end gets a
// fresh reminder while re-confirming unchanged terms does not.
func CompletionTaskID(bookingID string, end time.Time) string {
	return "completion:" + bookingID + ":" + strconv.FormatInt(end.Unix(), 10)
}

// Enqueuer is the part of *asynq.Client the scheduler uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Scheduler enqueues booking follow-up tasks.
type Scheduler struct {
	client Enqueuer
}

func NewScheduler(client Enqueuer) *Scheduler {
	return &Scheduler{client: client}
}

// ScheduleCompletionDue enqueues one completion reminder per booking. Rescheduling an already
// queued booking is a no-op.
func (s *Scheduler) ScheduleCompletionDue(ctx context.Context, b *models.Booking) error {
	end := b.LatestOccurrenceEnd()
	if end.IsZero() {
		return nil
	}
	task, opts, err := NewCompletionDueTask(models.CompletionDuePayload{
		BookingID:      b.ID,
		ProviderID:     b.ProviderID,
		ConversationID: b.ConversationID,
	}, end)
	if err != nil {
		return fmt.Errorf("build completion task: %w", err)
	}
	if _, err := s.client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("enqueue completion task: %w", err)
	}
	return nil
}
