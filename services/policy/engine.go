package policy

import (
	"context"
	"time"

	"servana/models"

	"go.uber.org/zap"
)

func (e *DefaultPolicyEngine) CreatePolicy(ctx context.Context, policy *models.BookingPolicy) error {
	if policy.Type != models.PolicyCancellation && policy.Type != models.PolicyRescheduling && policy.Type != models.PolicyNoShow {
		return models.InvalidStateError{Reason: "unknown policy type " + policy.Type}
	}
	if policy.PenaltyType != models.PenaltyPercentage && policy.PenaltyType != models.PenaltyFixed {
		return models.InvalidStateError{Reason: "unknown penalty type " + policy.PenaltyType}
	}
	policy.CreatedAt = time.Now().UTC()
	return e.Repo.Create(ctx, policy)
}

func (e *DefaultPolicyEngine) EvaluateCancellation(ctx context.Context, bookingID string, now time.Time) (*models.PolicyVerdict, error) {
	booking, err := e.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return e.evaluate(ctx, booking, models.PolicyCancellation, booking.ScheduledStart, now)
}

func (e *DefaultPolicyEngine) EvaluateRescheduling(ctx context.Context, bookingID string, newStart time.Time, now time.Time) (*models.PolicyVerdict, error) {
	booking, err := e.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !newStart.After(now) {
		return nil, models.InvalidStateError{Reason: "reschedule target must be in the future"}
	}
	// The threshold is measured against the booking being moved, not the target.
	return e.evaluate(ctx, booking, models.PolicyRescheduling, booking.ScheduledStart, now)
}

// NoShowVerdict applies the no-show policy unconditionally: the missed
// booking has already happened, so there is no time threshold to clear.
func (e *DefaultPolicyEngine) NoShowVerdict(ctx context.Context, booking *models.Booking) (*models.PolicyVerdict, error) {
	applied, err := e.selectPolicy(ctx, booking.ServiceID, models.PolicyNoShow)
	if err != nil {
		return nil, err
	}
	if applied == nil {
		return &models.PolicyVerdict{Allowed: true}, nil
	}
	return &models.PolicyVerdict{
		Allowed:       true,
		PenaltyAmount: penalty(applied, booking.Amount),
		PolicyApplied: applied.ID,
	}, nil
}

func (e *DefaultPolicyEngine) evaluate(ctx context.Context, booking *models.Booking, policyType string, scheduledStart, now time.Time) (*models.PolicyVerdict, error) {
	applied, err := e.selectPolicy(ctx, booking.ServiceID, policyType)
	if err != nil {
		return nil, err
	}
	if applied == nil {
		// No policy configured: always allowed, never penalized.
		return &models.PolicyVerdict{Allowed: true}, nil
	}

	if applied.AllowExceptions && e.ExceptionCheck != nil && e.ExceptionCheck(booking) {
		return &models.PolicyVerdict{
			Allowed:       true,
			PolicyApplied: applied.ID,
			Waived:        true,
		}, nil
	}

	hoursUntil := scheduledStart.Sub(now).Hours()
	if hoursUntil >= float64(applied.HoursBeforeBooking) {
		return &models.PolicyVerdict{Allowed: true, PolicyApplied: applied.ID}, nil
	}

	verdict := &models.PolicyVerdict{
		Allowed:       true,
		PenaltyAmount: penalty(applied, booking.Amount),
		PolicyApplied: applied.ID,
	}
	e.Logger.Debug("policy penalty applied",
		zap.String("booking", booking.ID),
		zap.String("policy", applied.ID),
		zap.Float64("penalty", verdict.PenaltyAmount),
	)
	return verdict, nil
}

// selectPolicy picks the authoritative policy: service-specific beats the
// platform default; among candidates, the largest hoursBeforeBooking wins,
// ties broken by the newest policy.
func (e *DefaultPolicyEngine) selectPolicy(ctx context.Context, serviceID, policyType string) (*models.BookingPolicy, error) {
	candidates, err := e.Repo.ListByServiceAndType(ctx, serviceID, policyType)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		candidates, err = e.Repo.ListDefaultsByType(ctx, policyType)
		if err != nil {
			return nil, err
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.HoursBeforeBooking > best.HoursBeforeBooking {
			best = c
			continue
		}
		if c.HoursBeforeBooking == best.HoursBeforeBooking && c.CreatedAt.After(best.CreatedAt) {
			best = c
		}
	}
	return &best, nil
}

// penalty computes the deduction for a violated policy, capped at the
// booking amount.
func penalty(p *models.BookingPolicy, amount float64) float64 {
	var v float64
	if p.PenaltyType == models.PenaltyPercentage {
		v = amount * p.PenaltyValue / 100
	} else {
		v = p.PenaltyValue
	}
	if v > amount {
		v = amount
	}
	if v < 0 {
		v = 0
	}
	return v
}
