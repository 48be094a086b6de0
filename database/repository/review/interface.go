// File: database/repository/review/interface.go
package reviewRepo

import (
	"context"
	"errors"

	"pawhub/database"
	"pawhub/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrDuplicate is returned when the reviewer already reviewed the booking.
var ErrDuplicate = errors.New("review already submitted")

type ReviewRepository interface {
	Create(ctx context.Context, r *models.Review) error
	ListByBooking(ctx context.Context, bookingID string) ([]models.Review, error)
}

type mongoReviewRepo struct {
	coll *mongo.Collection
}

// NewMongoReviewRepo constructs a MongoDB ReviewRepository.
func NewMongoReviewRepo() ReviewRepository {
	repo := &mongoReviewRepo{coll: database.DB().Collection("reviews")}
	if err := repo.EnsureIndexes(); err != nil {
		database.LogIndexError("reviews", err)
	}
	return repo
}
