package escrowRepo

import (
	"context"
	"time"

	"servana/database"
	"servana/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// EscrowRepository owns EscrowRecord persistence. ReleaseAndCredit is the
// money-moving write: it flips releasedAt exactly once and credits the
// provider balance inside the same transaction.
type EscrowRepository interface {
	Create(ctx context.Context, rec *models.EscrowRecord) error
	GetByBookingID(ctx context.Context, bookingID string) (*models.EscrowRecord, error)
	GetByGatewayID(ctx context.Context, gatewayID string) (*models.EscrowRecord, error)
	SetGatewayCharge(ctx context.Context, recordID, chargeID string) error
	MarkPaid(ctx context.Context, recordID string, releaseDate time.Time) error
	MarkFailed(ctx context.Context, recordID string) error
	ListDueForRelease(ctx context.Context, now time.Time) ([]models.EscrowRecord, error)
	ReleaseAndCredit(ctx context.Context, recordID, providerID string, netAmount float64, now time.Time) error
	ApplyRefund(ctx context.Context, recordID string, prevRefund, newRefund float64, status string, now time.Time) error
	SetDisputed(ctx context.Context, recordID, reason string) error
	SetEarlyRelease(ctx context.Context, recordID, note string, releaseDate time.Time) error
	SumPendingByProvider(ctx context.Context, providerID string) (float64, error)
	SumReleasedByProvider(ctx context.Context, providerID string) (float64, error)
}

type mongoEscrowRepo struct {
	coll        *mongo.Collection
	balanceColl *mongo.Collection
}

// NewMongoEscrowRepo constructs a new MongoDB EscrowRepository.
func NewMongoEscrowRepo() EscrowRepository {
	db := database.MongoClient.Database("servana")
	return &mongoEscrowRepo{
		coll:        db.Collection("escrow_records"),
		balanceColl: db.Collection("account_balances"),
	}
}
