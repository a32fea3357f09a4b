package escrow

import (
	"context"
	"time"

	"servana/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestWithdrawal reserves funds for payout. The balance decrement and the
// withdrawal record are one transaction; a request exceeding the balance
// fails with InsufficientBalanceError and changes nothing.
func (s *DefaultEscrowService) RequestWithdrawal(ctx context.Context, userID string, amount float64, bankAccountID string) (*models.Withdrawal, error) {
	if amount <= 0 {
		return nil, models.InvalidStateError{Reason: "withdrawal amount must be positive"}
	}

	withdrawal := &models.Withdrawal{
		ID:            uuid.New().String(),
		UserID:        userID,
		Amount:        amount,
		BankAccountID: bankAccountID,
		Status:        models.WithdrawalPending,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.Balances.WithdrawAndRecord(ctx, withdrawal); err != nil {
		return nil, err
	}

	s.Logger.Info("withdrawal requested",
		zap.String("user", userID),
		zap.Float64("amount", amount),
	)
	return withdrawal, nil
}

func (s *DefaultEscrowService) GetEarningsOverview(ctx context.Context, providerID string) (*models.EarningsOverview, error) {
	bal, err := s.Balances.Get(ctx, providerID)
	if err != nil {
		return nil, err
	}
	pending, err := s.Repo.SumPendingByProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	released, err := s.Repo.SumReleasedByProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	withdrawals, err := s.Balances.ListWithdrawals(ctx, providerID, 10)
	if err != nil {
		return nil, err
	}

	return &models.EarningsOverview{
		ProviderID:        providerID,
		AvailableBalance:  bal.Balance,
		PendingEscrow:     pending,
		ReleasedTotal:     released,
		RecentWithdrawals: withdrawals,
	}, nil
}
