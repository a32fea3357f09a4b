package escrowRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"servana/models"
)

// ReleaseAndCredit sets releasedAt exactly once and credits the provider's
// balance in the same transaction. The releasedAt filter makes a repeated
// call a clean no-op, so batch re-runs never double-credit.
func (r *mongoEscrowRepo) ReleaseAndCredit(ctx context.Context, recordID, providerID string, netAmount float64, now time.Time) error {
	client := r.coll.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	txnFn := func(sc mongo.SessionContext) error {
		filter := bson.M{
			"id":         recordID,
			"status":     models.EscrowPaid,
			"releasedAt": nil,
			"disputed":   false,
		}
		update := bson.M{"$set": bson.M{
			"releasedAt": now,
			"updatedAt":  now,
		}}
		res, err := r.coll.UpdateOne(sc, filter, update)
		if err != nil {
			return fmt.Errorf("release update failed: %w", err)
		}
		if res.MatchedCount == 0 {
			// Already released, disputed, or refunded meanwhile. Nothing to credit.
			return errAlreadyReleased
		}

		balFilter := bson.M{"userId": providerID}
		balUpdate := bson.M{
			"$inc": bson.M{"balance": netAmount},
			"$set": bson.M{"updatedAt": now},
		}
		opts := options.Update().SetUpsert(true)
		if _, err := r.balanceColl.UpdateOne(sc, balFilter, balUpdate, opts); err != nil {
			return fmt.Errorf("balance credit failed: %w", err)
		}
		return nil
	}

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		if err == errAlreadyReleased {
			return models.ConflictError{Resource: "escrow record", Reason: "already released or no longer eligible"}
		}
		return fmt.Errorf("release transaction failed: %w", err)
	}

	return nil
}

var errAlreadyReleased = fmt.Errorf("escrow record not eligible for release")
