package availabilityRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"servana/models"
)

func (r *mongoAvailabilityRepo) Upsert(ctx context.Context, avail models.WeeklyAvailability) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"providerId": avail.ProviderID}
	update := bson.M{"$set": bson.M{
		"windows":   avail.Windows,
		"updatedAt": avail.UpdatedAt,
	}}
	opts := options.Update().SetUpsert(true)

	if _, err := r.coll.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert availability template: %w", err)
	}
	return nil
}

func (r *mongoAvailabilityRepo) GetByProviderID(ctx context.Context, providerID string) (*models.WeeklyAvailability, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var avail models.WeeklyAvailability
	err := r.coll.FindOne(ctx, bson.M{"providerId": providerID}).Decode(&avail)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.NotFoundError{Resource: "availability template", ID: providerID}
		}
		return nil, fmt.Errorf("find error: %w", err)
	}
	return &avail, nil
}
