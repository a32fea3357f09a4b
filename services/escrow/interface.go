package escrow

import (
	"context"
	"time"

	balanceRepo "servana/database/repository/balance"
	bookingRepo "servana/database/repository/booking"
	escrowRepo "servana/database/repository/escrow"
	"servana/models"
	"servana/services/notification"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// EscrowService holds client payments until the release condition is met and
// owns withdrawals against released balances.
type EscrowService interface {
	OpenEscrow(ctx context.Context, bookingID string, amount float64) (*models.EscrowRecord, error)
	AttachGatewayCharge(ctx context.Context, bookingID, chargeID string) error
	ProcessReleases(ctx context.Context, now time.Time) (*models.ReleaseReport, error)
	RequestEarlyRelease(ctx context.Context, bookingID, providerID, justification string) error
	DisputePayment(ctx context.Context, bookingID, userID, reason string) error
	ApplyRefund(ctx context.Context, bookingID string, amount float64, partial bool) error
	RequestWithdrawal(ctx context.Context, userID string, amount float64, bankAccountID string) (*models.Withdrawal, error)
	HandleGatewayEvent(ctx context.Context, event models.GatewayEvent) error
	GetEarningsOverview(ctx context.Context, providerID string) (*models.EarningsOverview, error)
}

// DefaultEscrowService is the production implementation.
type DefaultEscrowService struct {
	Repo     escrowRepo.EscrowRepository
	Balances balanceRepo.BalanceRepository
	Bookings bookingRepo.BookingRepository
	Notifier notification.NotificationService
	Events   *redis.Client
	Logger   *zap.Logger

	// HoldDays is the escrow holding period after payment confirmation.
	HoldDays int
	// FeeRate is the platform cut deducted from the gross amount.
	FeeRate float64
}
