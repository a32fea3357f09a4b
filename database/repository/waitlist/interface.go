package waitlistRepo

import (
	"context"
	"time"

	"servana/database"
	"servana/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// WaitlistRepository owns WaitlistEntry persistence. Status moves are
// conditional updates keyed on the current status, so a sweep and a live
// conversion racing on the same entry cannot both win.
type WaitlistRepository interface {
	Create(ctx context.Context, entry *models.WaitlistEntry) error
	GetByID(ctx context.Context, entryID string) (*models.WaitlistEntry, error)
	HasActiveEntry(ctx context.Context, serviceID, userID string) (bool, error)
	MarkNotified(ctx context.Context, entryID, slotID string, expiresAt time.Time) error
	MarkConverted(ctx context.Context, entryID string) error
	MarkLeft(ctx context.Context, entryID string) error
	MarkExpired(ctx context.Context, entryID string) error
	ListOverdueNotified(ctx context.Context, now time.Time) ([]models.WaitlistEntry, error)
	NextWaiting(ctx context.Context, serviceID string) (*models.WaitlistEntry, error)
	ListByService(ctx context.Context, serviceID string) ([]models.WaitlistEntry, error)
}

type mongoWaitlistRepo struct {
	coll *mongo.Collection
}

// NewMongoWaitlistRepo constructs a new MongoDB WaitlistRepository.
func NewMongoWaitlistRepo() WaitlistRepository {
	db := database.MongoClient.Database("servana")
	return &mongoWaitlistRepo{
		coll: db.Collection("waitlist_entries"),
	}
}
