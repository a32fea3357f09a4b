package balanceRepo

import (
	"context"

	"servana/database"
	"servana/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// BalanceRepository owns account balances and withdrawals. WithdrawAndRecord
// is the second contention point of the engine: the decrement and the
// withdrawal insert are inseparable.
type BalanceRepository interface {
	Get(ctx context.Context, userID string) (*models.AccountBalance, error)
	Credit(ctx context.Context, userID string, amount float64) error
	WithdrawAndRecord(ctx context.Context, withdrawal *models.Withdrawal) error
	ListWithdrawals(ctx context.Context, userID string, limit int64) ([]models.Withdrawal, error)
}

type mongoBalanceRepo struct {
	balanceColl    *mongo.Collection
	withdrawalColl *mongo.Collection
}

// NewMongoBalanceRepo constructs a new MongoDB BalanceRepository.
func NewMongoBalanceRepo() BalanceRepository {
	db := database.MongoClient.Database("servana")
	return &mongoBalanceRepo{
		balanceColl:    db.Collection("account_balances"),
		withdrawalColl: db.Collection("withdrawals"),
	}
}
