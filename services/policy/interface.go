package policy

import (
	"context"
	"time"

	bookingRepo "servana/database/repository/booking"
	policyRepo "servana/database/repository/policy"
	"servana/models"

	"go.uber.org/zap"
)

// PolicyEngine scores cancellation, reschedule and no-show requests against
// the configured booking policies. The engine only returns verdicts; acting
// on them is the caller's responsibility.
type PolicyEngine interface {
	EvaluateCancellation(ctx context.Context, bookingID string, now time.Time) (*models.PolicyVerdict, error)
	EvaluateRescheduling(ctx context.Context, bookingID string, newStart time.Time, now time.Time) (*models.PolicyVerdict, error)
	NoShowVerdict(ctx context.Context, booking *models.Booking) (*models.PolicyVerdict, error)
	CreatePolicy(ctx context.Context, policy *models.BookingPolicy) error
}

// DefaultPolicyEngine is the production implementation.
type DefaultPolicyEngine struct {
	Repo     policyRepo.PolicyRepository
	Bookings bookingRepo.BookingRepository
	Logger   *zap.Logger

	// ExceptionCheck decides whether a booking qualifies for a penalty
	// waiver under an allowExceptions policy. Nil means no waivers.
	ExceptionCheck func(booking *models.Booking) bool
}
