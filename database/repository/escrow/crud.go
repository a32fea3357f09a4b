package escrowRepo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"servana/models"
)

func (r *mongoEscrowRepo) Create(ctx context.Context, rec *models.EscrowRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if _, err := r.coll.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert escrow record failed: %w", err)
	}
	return nil
}

func (r *mongoEscrowRepo) GetByBookingID(ctx context.Context, bookingID string) (*models.EscrowRecord, error) {
	return r.findOne(ctx, bson.M{"bookingId": bookingID}, "escrow record for booking", bookingID)
}

func (r *mongoEscrowRepo) GetByGatewayID(ctx context.Context, gatewayID string) (*models.EscrowRecord, error) {
	return r.findOne(ctx, bson.M{"paymentGatewayId": gatewayID}, "escrow record for charge", gatewayID)
}

func (r *mongoEscrowRepo) findOne(ctx context.Context, filter bson.M, resource, id string) (*models.EscrowRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var rec models.EscrowRecord
	err := r.coll.FindOne(ctx, filter).Decode(&rec)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.NotFoundError{Resource: resource, ID: id}
		}
		return nil, fmt.Errorf("find error: %w", err)
	}
	return &rec, nil
}

// SetGatewayCharge links the gateway charge id, refusing to overwrite a
// different one.
func (r *mongoEscrowRepo) SetGatewayCharge(ctx context.Context, recordID, chargeID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"id": recordID,
		"$or": []bson.M{
			{"paymentGatewayId": ""},
			{"paymentGatewayId": chargeID},
			{"paymentGatewayId": bson.M{"$exists": false}},
		},
	}
	update := bson.M{"$set": bson.M{
		"paymentGatewayId": chargeID,
		"updatedAt":        time.Now().UTC(),
	}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to attach gateway charge: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.ConflictError{Resource: "escrow record", Reason: "a different charge is already attached"}
	}
	return nil
}

// MarkPaid flips a pending record to paid and stamps the release date. The
// status filter makes a replayed charge.paid event a no-op.
func (r *mongoEscrowRepo) MarkPaid(ctx context.Context, recordID string, releaseDate time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": recordID, "status": models.EscrowPending}
	update := bson.M{"$set": bson.M{
		"status":            models.EscrowPaid,
		"escrowReleaseDate": releaseDate,
		"updatedAt":         time.Now().UTC(),
	}}
	if _, err := r.coll.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to mark escrow record paid: %w", err)
	}
	return nil
}

func (r *mongoEscrowRepo) MarkFailed(ctx context.Context, recordID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": recordID, "status": models.EscrowPending}
	update := bson.M{"$set": bson.M{
		"status":    models.EscrowFailed,
		"updatedAt": time.Now().UTC(),
	}}
	if _, err := r.coll.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to mark escrow record failed: %w", err)
	}
	return nil
}

func (r *mongoEscrowRepo) ListDueForRelease(ctx context.Context, now time.Time) ([]models.EscrowRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"status":            models.EscrowPaid,
		"releasedAt":        nil,
		"disputed":          false,
		"escrowReleaseDate": bson.M{"$lte": now},
	}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due escrow records: %w", err)
	}
	defer cursor.Close(ctx)

	var recs []models.EscrowRecord
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("error decoding escrow records: %w", err)
	}
	return recs, nil
}

// ApplyRefund writes a refund with a compare-and-swap on the previously
// applied refund amount, so two racing refunds cannot both land.
func (r *mongoEscrowRepo) ApplyRefund(ctx context.Context, recordID string, prevRefund, newRefund float64, status string, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": recordID, "refundAmount": prevRefund}
	update := bson.M{"$set": bson.M{
		"status":       status,
		"refundAmount": newRefund,
		"refundedAt":   now,
		"updatedAt":    now,
	}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to apply refund: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.ConflictError{Resource: "escrow record", Reason: "concurrent refund detected, retry"}
	}
	return nil
}

func (r *mongoEscrowRepo) SetDisputed(ctx context.Context, recordID, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": recordID, "releasedAt": nil}
	update := bson.M{"$set": bson.M{
		"disputed":      true,
		"disputeReason": reason,
		"updatedAt":     time.Now().UTC(),
	}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark escrow record disputed: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.InvalidStateError{Reason: "escrow record already released, cannot dispute"}
	}
	return nil
}

func (r *mongoEscrowRepo) SetEarlyRelease(ctx context.Context, recordID, note string, releaseDate time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": recordID, "releasedAt": nil, "disputed": false}
	update := bson.M{"$set": bson.M{
		"earlyRelease":      true,
		"earlyReleaseNote":  note,
		"escrowReleaseDate": releaseDate,
		"updatedAt":         time.Now().UTC(),
	}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark escrow record for early release: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.InvalidStateError{Reason: "escrow record released or disputed, cannot expedite"}
	}
	return nil
}

func (r *mongoEscrowRepo) SumPendingByProvider(ctx context.Context, providerID string) (float64, error) {
	return r.sumNet(ctx, bson.M{
		"providerId": providerID,
		"status":     models.EscrowPaid,
		"releasedAt": nil,
	})
}

func (r *mongoEscrowRepo) SumReleasedByProvider(ctx context.Context, providerID string) (float64, error) {
	return r.sumNet(ctx, bson.M{
		"providerId": providerID,
		"releasedAt": bson.M{"$ne": nil},
	})
}

func (r *mongoEscrowRepo) sumNet(ctx context.Context, match bson.M) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$netAmount"},
		}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate escrow totals: %w", err)
	}
	defer cursor.Close(ctx)

	var result []struct {
		Total float64 `bson:"total"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		return 0, fmt.Errorf("decode error: %w", err)
	}
	if len(result) == 0 {
		return 0, nil
	}
	return result[0].Total, nil
}
