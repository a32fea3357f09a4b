package availabilityRepo

import (
	"context"

	"servana/database"
	"servana/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// AvailabilityRepository stores provider weekly availability templates.
type AvailabilityRepository interface {
	Upsert(ctx context.Context, avail models.WeeklyAvailability) error
	GetByProviderID(ctx context.Context, providerID string) (*models.WeeklyAvailability, error)
}

type mongoAvailabilityRepo struct {
	coll *mongo.Collection
}

// NewMongoAvailabilityRepo constructs a new MongoDB AvailabilityRepository.
func NewMongoAvailabilityRepo() AvailabilityRepository {
	db := database.MongoClient.Database("servana")
	return &mongoAvailabilityRepo{
		coll: db.Collection("availability_templates"),
	}
}
