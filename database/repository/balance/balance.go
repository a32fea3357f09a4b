package balanceRepo

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

func (r *mongoBalanceRepo) Get(ctx context.Context, userID string) (*models.AccountBalance, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var bal models.AccountBalance
	err := r.balanceColl.FindOne(ctx, bson.M{"userId": userID}).Decode(&bal)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return &models.AccountBalance{UserID: userID, Balance: 0}, nil
		}
		return nil, fmt.Errorf("find error: %w", err)
	}
	return &bal, nil
}

func (r *mongoBalanceRepo) Credit(ctx context.Context, userID string, amount float64) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"userId": userID}
	update := bson.M{
		"$inc": bson.M{"balance": amount},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := r.balanceColl.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}
	return nil
}

// WithdrawAndRecord decrements the balance and inserts the pending
// withdrawal in one transaction. The balance filter requires
// balance >= amount, so a racing withdrawal that would overdraw loses with
// an InsufficientBalanceError instead of corrupting the balance.
func (r *mongoBalanceRepo) WithdrawAndRecord(ctx context.Context, withdrawal *models.Withdrawal) error {
	if withdrawal.ID == "" {
		withdrawal.ID = uuid.New().String()
	}

	client := r.balanceColl.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	txnFn := func(sc mongo.SessionContext) error {
		filter := bson.M{
			"userId":  withdrawal.UserID,
			"balance": bson.M{"$gte": withdrawal.Amount},
		}
		update := bson.M{
			"$inc": bson.M{"balance": -withdrawal.Amount},
			"$set": bson.M{"updatedAt": time.Now().UTC()},
		}
		res, err := r.balanceColl.UpdateOne(sc, filter, update)
		if err != nil {
			return fmt.Errorf("balance decrement failed: %w", err)
		}
		if res.MatchedCount == 0 {
			bal, berr := r.Get(sc, withdrawal.UserID)
			if berr != nil {
				return berr
			}
			return models.InsufficientBalanceError{Requested: withdrawal.Amount, Available: bal.Balance}
		}

		if _, err := r.withdrawalColl.InsertOne(sc, withdrawal); err != nil {
			return fmt.Errorf("insert withdrawal failed: %w", err)
		}
		return nil
	}

	return mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	})
}

func (r *mongoBalanceRepo) ListWithdrawals(ctx context.Context, userID string, limit int64) ([]models.Withdrawal, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.withdrawalColl.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch withdrawals: %w", err)
	}
	defer cursor.Close(ctx)

	var withdrawals []models.Withdrawal
	if err := cursor.All(ctx, &withdrawals); err != nil {
		return nil, fmt.Errorf("error decoding withdrawals: %w", err)
	}
	return withdrawals, nil
}
