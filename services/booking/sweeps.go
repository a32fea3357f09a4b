package booking

import (
	"context"
	"errors"
	"time"

	"servana/models"

	"go.uber.org/zap"
)

// ApplyNoShowSweep cancels accepted bookings whose scheduled end passed
// without completion, applying the no-show penalty unconditionally. Each
// booking is handled independently; one failure never stops the sweep.
func (s *DefaultBookingService) ApplyNoShowSweep(ctx context.Context, now time.Time) (int, error) {
	missed, err := s.Repo.ListAcceptedEndedBefore(ctx, now)
	if err != nil {
		return 0, err
	}

	applied := 0
	for i := range missed {
		booking := &missed[i]
		verdict, err := s.Policy.NoShowVerdict(ctx, booking)
		if err != nil {
			s.Logger.Error("no-show verdict failed",
				zap.String("booking", booking.ID), zap.Error(err))
			continue
		}

		set := map[string]interface{}{
			"cancellationReason": "no-show",
			"cancelledBy":        "system",
		}
		err = s.Repo.Transition(ctx, booking.ID,
			[]string{models.BookingAccepted}, models.BookingCancelled, set)
		if err != nil {
			var badMove models.InvalidTransitionError
			if errors.As(err, &badMove) {
				// Completed or cancelled since listing; someone else won.
				continue
			}
			s.Logger.Error("no-show transition failed",
				zap.String("booking", booking.ID), zap.Error(err))
			continue
		}

		s.freeSlot(ctx, booking)
		s.refundAfterCancel(ctx, booking, verdict)
		s.notify(ctx, booking.ClientID, "booking_no_show", "Missed booking",
			"Your booking was marked as a no-show and cancelled.", booking.ID)
		applied++
	}

	s.Logger.Info("no-show sweep finished",
		zap.Int("candidates", len(missed)), zap.Int("applied", applied))
	return applied, nil
}

// ExpirePendingHolds declines pending bookings whose confirmation window
// lapsed, freeing their slots for the waitlist.
func (s *DefaultBookingService) ExpirePendingHolds(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-s.PendingHold)
	stale, err := s.Repo.ListPendingCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		booking := &stale[i]
		set := map[string]interface{}{
			"cancellationReason": "pending hold expired",
		}
		err := s.Repo.Transition(ctx, booking.ID,
			[]string{models.BookingPending}, models.BookingDeclined, set)
		if err != nil {
			var badMove models.InvalidTransitionError
			if errors.As(err, &badMove) {
				continue
			}
			s.Logger.Error("pending hold expiry failed",
				zap.String("booking", booking.ID), zap.Error(err))
			continue
		}

		s.freeSlot(ctx, booking)
		s.notify(ctx, booking.ClientID, "booking_expired", "Booking expired",
			"Your booking request expired before the provider confirmed it.", booking.ID)
		expired++
	}

	s.Logger.Info("pending hold sweep finished",
		zap.Int("candidates", len(stale)), zap.Int("expired", expired))
	return expired, nil
}
