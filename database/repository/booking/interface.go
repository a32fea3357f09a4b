package bookingRepo

import (
	"context"
	"time"

	"servana/database"
	"servana/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// BookingRepository owns Booking persistence. Bookings are never deleted;
// Transition is the only status write and it is a single conditional update
// keyed on the current status.
type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, bookingID string) (*models.Booking, error)
	ListByClient(ctx context.Context, clientID, status string) ([]models.Booking, error)
	ListByProvider(ctx context.Context, providerID, status string) ([]models.Booking, error)
	Transition(ctx context.Context, bookingID string, from []string, to string, set map[string]interface{}) error
	ListPendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.Booking, error)
	ListAcceptedEndedBefore(ctx context.Context, cutoff time.Time) ([]models.Booking, error)
	ListAcceptedStartingBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error)
	ListCompletedBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error)
}

type mongoBookingRepo struct {
	coll *mongo.Collection
}

// NewMongoBookingRepo constructs a new MongoDB BookingRepository.
func NewMongoBookingRepo() BookingRepository {
	db := database.MongoClient.Database("servana")
	return &mongoBookingRepo{
		coll: db.Collection("bookings"),
	}
}
