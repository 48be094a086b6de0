// File: database/repository/booking/interface.go
package bookingRepo

import (
	"context"
	"errors"

	"pawhub/database"
	"pawhub/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when no booking matches.
var ErrNotFound = errors.New("booking not found")

// ErrStatusConflict is returned when a status compare-and-set loses to a concurrent writer.
var ErrStatusConflict = errors.New("booking status changed concurrently")

type BookingRepository interface {
	Create(ctx context.Context, b *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	// UpdateStatus moves the booking from one status to another only if it is still in from.
	UpdateStatus(ctx context.Context, id string, from, to models.BookingStatus) error
	// ReplaceTerms overwrites service type, occurrences, pets and costs of a booking still in
	// b.Status, used by provider edits. A status mismatch returns ErrStatusConflict.
	ReplaceTerms(ctx context.Context, b *models.Booking) error
	ListIncompleteByConversation(ctx context.Context, conversationID string) ([]models.Booking, error)
}

type mongoBookingRepo struct {
	coll *mongo.Collection
}

// NewMongoBookingRepo constructs a MongoDB BookingRepository.
func NewMongoBookingRepo() BookingRepository {
	repo := &mongoBookingRepo{coll: database.DB().Collection("bookings")}
	if err := repo.EnsureIndexes(); err != nil {
		database.LogIndexError("bookings", err)
	}
	return repo
}
