package policyRepo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"servana/models"
)

func (r *mongoPolicyRepo) Create(ctx context.Context, policy *models.BookingPolicy) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if policy.ID == "" {
		policy.ID = uuid.New().String()
	}
	if _, err := r.coll.InsertOne(ctx, policy); err != nil {
		return fmt.Errorf("insert policy failed: %w", err)
	}
	return nil
}

func (r *mongoPolicyRepo) ListByServiceAndType(ctx context.Context, serviceID, policyType string) ([]models.BookingPolicy, error) {
	return r.findPolicies(ctx, bson.M{"serviceId": serviceID, "type": policyType})
}

func (r *mongoPolicyRepo) ListDefaultsByType(ctx context.Context, policyType string) ([]models.BookingPolicy, error) {
	return r.findPolicies(ctx, bson.M{
		"type": policyType,
		"$or":  []bson.M{{"serviceId": ""}, {"serviceId": bson.M{"$exists": false}}},
	})
}

func (r *mongoPolicyRepo) findPolicies(ctx context.Context, filter bson.M) ([]models.BookingPolicy, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch policies: %w", err)
	}
	defer cursor.Close(ctx)

	var policies []models.BookingPolicy
	if err := cursor.All(ctx, &policies); err != nil {
		return nil, fmt.Errorf("error decoding policies: %w", err)
	}
	return policies, nil
}
