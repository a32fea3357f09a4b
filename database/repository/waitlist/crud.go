package waitlistRepo

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

func (r *mongoWaitlistRepo) Create(ctx context.Context, entry *models.WaitlistEntry) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if _, err := r.coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert waitlist entry failed: %w", err)
	}
	return nil
}

func (r *mongoWaitlistRepo) GetByID(ctx context.Context, entryID string) (*models.WaitlistEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var entry models.WaitlistEntry
	err := r.coll.FindOne(ctx, bson.M{"id": entryID}).Decode(&entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.NotFoundError{Resource: "waitlist entry", ID: entryID}
		}
		return nil, fmt.Errorf("find error: %w", err)
	}
	return &entry, nil
}

func (r *mongoWaitlistRepo) HasActiveEntry(ctx context.Context, serviceID, userID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"serviceId": serviceID,
		"userId":    userID,
		"status":    bson.M{"$in": models.ActiveWaitlistStatuses},
	}
	count, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to count active waitlist entries: %w", err)
	}
	return count > 0, nil
}

func (r *mongoWaitlistRepo) MarkNotified(ctx context.Context, entryID, slotID string, expiresAt time.Time) error {
	return r.transition(ctx, entryID, []string{models.WaitlistWaiting}, models.WaitlistNotified, bson.M{
		"offeredSlotId": slotID,
		"expiresAt":     expiresAt,
	})
}

func (r *mongoWaitlistRepo) MarkConverted(ctx context.Context, entryID string) error {
	return r.transition(ctx, entryID, []string{models.WaitlistNotified}, models.WaitlistConverted, nil)
}

func (r *mongoWaitlistRepo) MarkLeft(ctx context.Context, entryID string) error {
	return r.transition(ctx, entryID, models.ActiveWaitlistStatuses, models.WaitlistLeft, nil)
}

func (r *mongoWaitlistRepo) transition(ctx context.Context, entryID string, from []string, to string, extra bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"id":     entryID,
		"status": bson.M{"$in": from},
	}
	fields := bson.M{
		"status":    to,
		"updatedAt": time.Now().UTC(),
	}
	for k, v := range extra {
		fields[k] = v
	}

	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to transition waitlist entry: %w", err)
	}
	if res.MatchedCount == 0 {
		entry, gerr := r.GetByID(ctx, entryID)
		if gerr != nil {
			return gerr
		}
		return models.InvalidStateError{
			Reason: fmt.Sprintf("waitlist entry %s is %s, cannot move to %s", entryID, entry.Status, to),
		}
	}
	return nil
}

// MarkExpired is conditional on the entry still being notified, so a
// conversion committing concurrently wins over the sweep.
func (r *mongoWaitlistRepo) MarkExpired(ctx context.Context, entryID string) error {
	return r.transition(ctx, entryID, []string{models.WaitlistNotified}, models.WaitlistExpired, nil)
}

// ListOverdueNotified returns the notified entries whose claim window has
// lapsed, so the sweep can expire each one and re-offer its slot.
func (r *mongoWaitlistRepo) ListOverdueNotified(ctx context.Context, now time.Time) ([]models.WaitlistEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"status":    models.WaitlistNotified,
		"expiresAt": bson.M{"$lte": now},
	}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch overdue waitlist entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []models.WaitlistEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("error decoding waitlist entries: %w", err)
	}
	return entries, nil
}

// NextWaiting returns the entry to offer a freed slot to: highest priority
// first, then the earliest join.
func (r *mongoWaitlistRepo) NextWaiting(ctx context.Context, serviceID string) (*models.WaitlistEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"serviceId": serviceID, "status": models.WaitlistWaiting}
	opts := options.FindOne().SetSort(bson.D{
		{Key: "priority", Value: -1},
		{Key: "createdAt", Value: 1},
	})

	var entry models.WaitlistEntry
	err := r.coll.FindOne(ctx, filter, opts).Decode(&entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("find error: %w", err)
	}
	return &entry, nil
}

func (r *mongoWaitlistRepo) ListByService(ctx context.Context, serviceID string) ([]models.WaitlistEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{
		{Key: "priority", Value: -1},
		{Key: "createdAt", Value: 1},
	})
	cursor, err := r.coll.Find(ctx, bson.M{"serviceId": serviceID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch waitlist entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []models.WaitlistEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("error decoding waitlist entries: %w", err)
	}
	return entries, nil
}
