package timeslotRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"servana/models"
)

// Reserve atomically claims a free slot for a booking. The filter pins
// isBooked to false, so of N concurrent callers exactly one matches; the
// rest see the slot already taken and get a SlotConflictError.
func (r *mongoTimeSlotRepo) Reserve(ctx context.Context, slotID, bookingID string) (*models.TimeSlot, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": slotID, "isBooked": false}
	update := bson.M{
		"$set": bson.M{
			"isBooked":  true,
			"bookingId": bookingID,
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var slot models.TimeSlot
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&slot)
	if err == nil {
		return &slot, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("failed to reserve timeslot: %w", err)
	}

	// Lost the conditional update. Distinguish a taken slot from a missing one.
	count, cerr := r.coll.CountDocuments(ctx, bson.M{"id": slotID})
	if cerr != nil {
		return nil, fmt.Errorf("failed to inspect timeslot after reserve miss: %w", cerr)
	}
	if count == 0 {
		return nil, models.NotFoundError{Resource: "time slot", ID: slotID}
	}
	return nil, models.SlotConflictError{SlotID: slotID}
}

// Release clears the booking hold on a slot. Callers verify the owning
// booking reached a terminal non-completed state first.
func (r *mongoTimeSlotRepo) Release(ctx context.Context, slotID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": slotID, "isBooked": true}
	update := bson.M{
		"$set":   bson.M{"isBooked": false},
		"$unset": bson.M{"bookingId": ""},
	}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to release timeslot: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.NotFoundError{Resource: "booked time slot", ID: slotID}
	}
	return nil
}
