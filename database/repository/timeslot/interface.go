package timeslotRepo

import (
	"context"
	"time"

	"servana/database"
	"servana/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// TimeSlotRepository owns TimeSlot persistence. Reserve and Release are the
// only writes that touch isBooked/bookingId, and both are single conditional
// updates.
type TimeSlotRepository interface {
	CreateMany(ctx context.Context, slots []models.TimeSlot) ([]string, error)
	GetByID(ctx context.Context, slotID string) (*models.TimeSlot, error)
	GetByProviderAndDate(ctx context.Context, providerID, date string) ([]models.TimeSlot, error)
	GetAvailableByProviderAndDate(ctx context.Context, providerID, date string) ([]models.TimeSlot, error)
	GetByProviderRange(ctx context.Context, providerID, fromDate, toDate string) ([]models.TimeSlot, error)
	CountInRange(ctx context.Context, providerID, fromDate, toDate string) (int64, error)
	Reserve(ctx context.Context, slotID, bookingID string) (*models.TimeSlot, error)
	Release(ctx context.Context, slotID string) error
	FirstFreeForService(ctx context.Context, providerID string, after time.Time) (*models.TimeSlot, error)
}

type mongoTimeSlotRepo struct {
	coll *mongo.Collection
}

// NewMongoTimeSlotRepo constructs a new MongoDB TimeSlotRepository.
func NewMongoTimeSlotRepo() TimeSlotRepository {
	db := database.MongoClient.Database("servana")
	r := &mongoTimeSlotRepo{
		coll: db.Collection("timeslots"),
	}
	r.ensureIndexes()
	return r
}

// ensureIndexes backs the insert-time generation guard: a provider can never
// hold two slots with the same start, whatever the callers raced on.
func (r *mongoTimeSlotRepo) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "providerId", Value: 1}, {Key: "start", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		zap.L().Warn("failed to ensure timeslot indexes", zap.Error(err))
	}
}
