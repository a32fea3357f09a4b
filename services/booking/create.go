package booking

import (
	"context"
	"fmt"
	"time"

	"servana/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateBooking reserves the slot and creates the pending booking as one
// logical operation. The slot claim is the contended half and goes first; if
// persisting the booking then fails, the claim is rolled back so neither
// side survives alone.
func (s *DefaultBookingService) CreateBooking(ctx context.Context, draft models.BookingDraft) (*models.Booking, error) {
	if draft.Amount <= 0 {
		return nil, models.InvalidStateError{Reason: "booking amount must be positive"}
	}
	if draft.ClientID == "" {
		return nil, models.InvalidStateError{Reason: "booking draft has no client"}
	}

	bookingID := uuid.New().String()
	slot, err := s.Availability.ReserveSlot(ctx, draft.TimeSlotID, bookingID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	booking := &models.Booking{
		ID:             bookingID,
		ServiceID:      draft.ServiceID,
		ClientID:       draft.ClientID,
		ProviderID:     slot.ProviderID,
		TimeSlotID:     slot.ID,
		Status:         models.BookingPending,
		Amount:         draft.Amount,
		ScheduledStart: slot.Start,
		ScheduledEnd:   slot.End,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.Repo.Create(ctx, booking); err != nil {
		if rerr := s.Availability.ReleaseSlot(ctx, slot.ID); rerr != nil {
			s.Logger.Error("failed to roll back slot claim",
				zap.String("slot", slot.ID), zap.Error(rerr))
		}
		return nil, fmt.Errorf("booking creation failed: %w", err)
	}

	s.Logger.Info("booking created",
		zap.String("booking", booking.ID),
		zap.String("slot", slot.ID),
		zap.String("client", draft.ClientID),
	)

	s.notify(ctx, booking.ProviderID, "booking_requested", "New booking request",
		fmt.Sprintf("You have a new booking request for %s.", slot.Start.Format(time.RFC1123)),
		booking.ID)

	return booking, nil
}

func (s *DefaultBookingService) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	return s.Repo.GetByID(ctx, bookingID)
}

func (s *DefaultBookingService) ListBookings(ctx context.Context, actorID, role, status string) ([]models.Booking, error) {
	if role == "provider" {
		return s.Repo.ListByProvider(ctx, actorID, status)
	}
	return s.Repo.ListByClient(ctx, actorID, status)
}

// notify emits a notification event; delivery failures are logged and never
// affect the transition that triggered them.
func (s *DefaultBookingService) notify(ctx context.Context, userID, ntype, title, message, bookingID string) {
	err := s.Notifier.Notify(ctx, userID, ntype, title, message, map[string]string{"bookingId": bookingID})
	if err != nil {
		s.Logger.Warn("booking notification failed",
			zap.String("booking", bookingID), zap.Error(err))
	}
}
