package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"servana/models"
)

func (r *mongoBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}
	if _, err := r.coll.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("insert booking failed: %w", err)
	}
	return nil
}

func (r *mongoBookingRepo) GetByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var booking models.Booking
	err := r.coll.FindOne(ctx, bson.M{"id": bookingID}).Decode(&booking)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.NotFoundError{Resource: "booking", ID: bookingID}
		}
		return nil, fmt.Errorf("find error: %w", err)
	}
	return &booking, nil
}

func (r *mongoBookingRepo) ListByClient(ctx context.Context, clientID, status string) ([]models.Booking, error) {
	filter := bson.M{"clientId": clientID}
	if status != "" {
		filter["status"] = status
	}
	return r.findBookings(ctx, filter)
}

func (r *mongoBookingRepo) ListByProvider(ctx context.Context, providerID, status string) ([]models.Booking, error) {
	filter := bson.M{"providerId": providerID}
	if status != "" {
		filter["status"] = status
	}
	return r.findBookings(ctx, filter)
}

func (r *mongoBookingRepo) ListPendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	return r.findBookings(ctx, bson.M{
		"status":    models.BookingPending,
		"createdAt": bson.M{"$lte": cutoff},
	})
}

func (r *mongoBookingRepo) ListAcceptedEndedBefore(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	return r.findBookings(ctx, bson.M{
		"status":       models.BookingAccepted,
		"scheduledEnd": bson.M{"$lte": cutoff},
	})
}

func (r *mongoBookingRepo) ListAcceptedStartingBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	return r.findBookings(ctx, bson.M{
		"status":         models.BookingAccepted,
		"scheduledStart": bson.M{"$gte": from, "$lte": to},
	})
}

func (r *mongoBookingRepo) ListCompletedBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	return r.findBookings(ctx, bson.M{
		"status":       models.BookingCompleted,
		"scheduledEnd": bson.M{"$gte": from, "$lte": to},
	})
}

func (r *mongoBookingRepo) findBookings(ctx context.Context, filter bson.M) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "scheduledStart", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("error decoding bookings: %w", err)
	}
	return bookings, nil
}
