package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"servana/models"

	"go.uber.org/zap"
)

// AcceptBooking moves pending -> accepted. The slot is already held; escrow
// opens now and waits for the payment confirmation event.
func (s *DefaultBookingService) AcceptBooking(ctx context.Context, bookingID, providerID string) error {
	booking, err := s.ownedBy(ctx, bookingID, providerID)
	if err != nil {
		return err
	}

	if err := s.Repo.Transition(ctx, bookingID, []string{models.BookingPending}, models.BookingAccepted, nil); err != nil {
		return err
	}

	if _, err := s.Escrow.OpenEscrow(ctx, bookingID, booking.Amount); err != nil {
		// The transition stands; escrow will open when the payment event
		// arrives or the accept is retried.
		s.Logger.Error("failed to open escrow after accept",
			zap.String("booking", bookingID), zap.Error(err))
	}

	s.notify(ctx, booking.ClientID, "booking_accepted", "Booking accepted",
		"Your booking was accepted. Complete the payment to confirm.", bookingID)
	return nil
}

// DeclineBooking moves pending -> declined and frees the slot.
func (s *DefaultBookingService) DeclineBooking(ctx context.Context, bookingID, providerID, reason string) error {
	booking, err := s.ownedBy(ctx, bookingID, providerID)
	if err != nil {
		return err
	}

	set := map[string]interface{}{}
	if reason != "" {
		set["cancellationReason"] = reason
	}
	if err := s.Repo.Transition(ctx, bookingID, []string{models.BookingPending}, models.BookingDeclined, set); err != nil {
		return err
	}

	s.freeSlot(ctx, booking)
	s.notify(ctx, booking.ClientID, "booking_declined", "Booking declined",
		"Your booking request was declined.", bookingID)
	return nil
}

// CompleteBooking moves accepted -> completed, allowed only once the
// scheduled end has passed. Escrow release stays on its own clock.
func (s *DefaultBookingService) CompleteBooking(ctx context.Context, bookingID, providerID string, now time.Time) error {
	booking, err := s.ownedBy(ctx, bookingID, providerID)
	if err != nil {
		return err
	}
	if now.Before(booking.ScheduledEnd) {
		return models.InvalidStateError{
			Reason: fmt.Sprintf("booking runs until %s, cannot complete early", booking.ScheduledEnd.Format(time.RFC3339)),
		}
	}

	if err := s.Repo.Transition(ctx, bookingID, []string{models.BookingAccepted}, models.BookingCompleted, nil); err != nil {
		return err
	}

	s.notify(ctx, booking.ClientID, "booking_completed", "Booking completed",
		"Your booking is complete. Thanks for using the platform.", bookingID)
	return nil
}

// CancelBooking scores the cancellation first, then transitions, frees the
// slot and applies the refund derived from the verdict.
func (s *DefaultBookingService) CancelBooking(ctx context.Context, bookingID, actorID, actorRole, reason string) (*models.PolicyVerdict, error) {
	booking, err := s.Repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if actorRole != "system" && booking.ClientID != actorID && booking.ProviderID != actorID {
		return nil, models.InvalidStateError{Reason: "only a booking party may cancel it"}
	}
	if booking.Terminal() {
		return nil, models.InvalidTransitionError{BookingID: bookingID, From: booking.Status, To: models.BookingCancelled}
	}

	verdict, err := s.Policy.EvaluateCancellation(ctx, bookingID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !verdict.Allowed {
		return nil, models.PolicyViolationError{PolicyID: verdict.PolicyApplied, Reason: "cancellation not permitted by policy"}
	}

	set := map[string]interface{}{
		"cancellationReason": reason,
		"cancelledBy":        actorID,
	}
	if actorRole == "system" {
		set["cancelledBy"] = "system"
	}
	err = s.Repo.Transition(ctx, bookingID,
		[]string{models.BookingPending, models.BookingAccepted}, models.BookingCancelled, set)
	if err != nil {
		return nil, err
	}

	s.freeSlot(ctx, booking)
	s.refundAfterCancel(ctx, booking, verdict)

	s.notify(ctx, booking.ProviderID, "booking_cancelled", "Booking cancelled",
		fmt.Sprintf("Booking %s was cancelled.", bookingID), bookingID)
	s.notify(ctx, booking.ClientID, "booking_cancelled", "Booking cancelled",
		"Your booking was cancelled.", bookingID)

	return verdict, nil
}

// refundAfterCancel converts the policy verdict into an escrow refund:
// everything but the penalty goes back to the client. Skipped quietly when
// no funded escrow exists yet.
func (s *DefaultBookingService) refundAfterCancel(ctx context.Context, booking *models.Booking, verdict *models.PolicyVerdict) {
	refund := booking.Amount - verdict.PenaltyAmount
	if refund <= 0 {
		return
	}
	err := s.Escrow.ApplyRefund(ctx, booking.ID, refund, verdict.PenaltyAmount > 0)
	if err != nil {
		var notFound models.NotFoundError
		if errors.As(err, &notFound) {
			return
		}
		s.Logger.Error("refund after cancellation failed",
			zap.String("booking", booking.ID), zap.Error(err))
	}
}

// freeSlot releases the booking's slot and offers it to the waitlist.
func (s *DefaultBookingService) freeSlot(ctx context.Context, booking *models.Booking) {
	if err := s.Availability.ReleaseSlot(ctx, booking.TimeSlotID); err != nil {
		s.Logger.Error("failed to release slot",
			zap.String("slot", booking.TimeSlotID), zap.Error(err))
		return
	}
	if s.Waitlist == nil {
		return
	}
	if err := s.Waitlist.OfferSlot(ctx, booking.ServiceID, booking.TimeSlotID); err != nil {
		s.Logger.Warn("failed to offer freed slot to waitlist",
			zap.String("slot", booking.TimeSlotID), zap.Error(err))
	}
}

func (s *DefaultBookingService) ownedBy(ctx context.Context, bookingID, providerID string) (*models.Booking, error) {
	booking, err := s.Repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.ProviderID != providerID {
		return nil, models.InvalidStateError{Reason: "booking belongs to a different provider"}
	}
	return booking, nil
}
