package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"servana/models"
)

// Transition moves a booking between statuses with a single conditional
// update. The filter pins the current status to one of the allowed source
// states, so a concurrent transition loses cleanly instead of overwriting.
func (r *mongoBookingRepo) Transition(ctx context.Context, bookingID string, from []string, to string, set map[string]interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"id":     bookingID,
		"status": bson.M{"$in": from},
	}
	fields := bson.M{
		"status":    to,
		"updatedAt": time.Now().UTC(),
	}
	for k, v := range set {
		fields[k] = v
	}

	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to transition booking: %w", err)
	}
	if res.MatchedCount == 0 {
		// Re-read for a precise error: missing vs. wrong source state.
		booking, gerr := r.GetByID(ctx, bookingID)
		if gerr != nil {
			return gerr
		}
		return models.InvalidTransitionError{BookingID: bookingID, From: booking.Status, To: to}
	}
	return nil
}
