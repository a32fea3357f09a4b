package booking

import (
	"context"
	"time"

	"servana/models"

	"go.uber.org/zap"
)

// RescheduleBooking moves a live booking onto a new slot after the
// rescheduling policy clears it. The new slot is claimed before the old one
// is freed, so the booking never floats without a slot.
func (s *DefaultBookingService) RescheduleBooking(ctx context.Context, bookingID, actorID, newSlotID string) (*models.Booking, *models.PolicyVerdict, error) {
	booking, err := s.Repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	if booking.ClientID != actorID && booking.ProviderID != actorID {
		return nil, nil, models.InvalidStateError{Reason: "only a booking party may reschedule it"}
	}
	if booking.Terminal() {
		return nil, nil, models.InvalidTransitionError{BookingID: bookingID, From: booking.Status, To: booking.Status}
	}
	if newSlotID == booking.TimeSlotID {
		return nil, nil, models.InvalidStateError{Reason: "booking already occupies that slot"}
	}

	newSlot, err := s.Availability.GetSlot(ctx, newSlotID)
	if err != nil {
		return nil, nil, err
	}
	if newSlot.ProviderID != booking.ProviderID {
		return nil, nil, models.InvalidStateError{Reason: "reschedule target belongs to a different provider"}
	}

	now := time.Now().UTC()
	verdict, err := s.Policy.EvaluateRescheduling(ctx, bookingID, newSlot.Start, now)
	if err != nil {
		return nil, nil, err
	}
	if !verdict.Allowed {
		return nil, nil, models.PolicyViolationError{PolicyID: verdict.PolicyApplied, Reason: "rescheduling not permitted by policy"}
	}

	claimed, err := s.Availability.ReserveSlot(ctx, newSlotID, bookingID)
	if err != nil {
		return nil, nil, err
	}

	oldSlotID := booking.TimeSlotID
	set := map[string]interface{}{
		"timeSlotId":     claimed.ID,
		"scheduledStart": claimed.Start,
		"scheduledEnd":   claimed.End,
	}
	err = s.Repo.Transition(ctx, bookingID,
		[]string{models.BookingPending, models.BookingAccepted}, booking.Status, set)
	if err != nil {
		// Undo the fresh claim; booking still owns its original slot.
		if rerr := s.Availability.ReleaseSlot(ctx, claimed.ID); rerr != nil {
			s.Logger.Error("failed to roll back reschedule claim",
				zap.String("slot", claimed.ID), zap.Error(rerr))
		}
		return nil, nil, err
	}

	// The booking moved off the old slot; release makes it bookable again.
	if err := s.Availability.ReleaseSlot(ctx, oldSlotID); err != nil {
		s.Logger.Error("failed to release old slot after reschedule",
			zap.String("slot", oldSlotID), zap.Error(err))
	} else if s.Waitlist != nil {
		if err := s.Waitlist.OfferSlot(ctx, booking.ServiceID, oldSlotID); err != nil {
			s.Logger.Warn("failed to offer freed slot to waitlist",
				zap.String("slot", oldSlotID), zap.Error(err))
		}
	}

	if verdict.PenaltyAmount > 0 {
		s.Logger.Info("reschedule penalty assessed",
			zap.String("booking", bookingID),
			zap.Float64("penalty", verdict.PenaltyAmount),
		)
	}

	s.notify(ctx, otherParty(booking, actorID), "booking_rescheduled", "Booking rescheduled",
		"The booking was moved to "+claimed.Start.Format(time.RFC1123)+".", bookingID)

	updated, err := s.Repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	return updated, verdict, nil
}

func otherParty(b *models.Booking, actorID string) string {
	if b.ClientID == actorID {
		return b.ProviderID
	}
	return b.ClientID
}
