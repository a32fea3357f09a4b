package policyRepo

import (
	"context"

	"servana/database"
	"servana/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// PolicyRepository stores booking policies. Policies are append-only from
// the engine's point of view: edits create new documents that apply
// prospectively.
type PolicyRepository interface {
	Create(ctx context.Context, policy *models.BookingPolicy) error
	ListByServiceAndType(ctx context.Context, serviceID, policyType string) ([]models.BookingPolicy, error)
	ListDefaultsByType(ctx context.Context, policyType string) ([]models.BookingPolicy, error)
}

type mongoPolicyRepo struct {
	coll *mongo.Collection
}

// NewMongoPolicyRepo constructs a new MongoDB PolicyRepository.
func NewMongoPolicyRepo() PolicyRepository {
	db := database.MongoClient.Database("servana")
	return &mongoPolicyRepo{
		coll: db.Collection("booking_policies"),
	}
}
