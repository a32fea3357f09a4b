package waitlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"servana/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *DefaultWaitlistService) Join(ctx context.Context, serviceID, userID, preferredDate string, alternatives []string, priority int) (*models.WaitlistEntry, error) {
	if serviceID == "" || userID == "" {
		return nil, models.InvalidStateError{Reason: "waitlist join needs a service and a user"}
	}

	active, err := s.Repo.HasActiveEntry(ctx, serviceID, userID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, models.ConflictError{
			Resource: "waitlist entry",
			Reason:   fmt.Sprintf("user %s already waits for service %s", userID, serviceID),
		}
	}

	now := time.Now().UTC()
	entry := &models.WaitlistEntry{
		ID:               uuid.New().String(),
		ServiceID:        serviceID,
		UserID:           userID,
		PreferredDate:    preferredDate,
		AlternativeDates: alternatives,
		Priority:         priority,
		Status:           models.WaitlistWaiting,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.Repo.Create(ctx, entry); err != nil {
		return nil, err
	}

	s.Logger.Info("waitlist joined",
		zap.String("entry", entry.ID),
		zap.String("service", serviceID),
		zap.Int("priority", priority),
	)
	return entry, nil
}

// NotifyAvailability offers a freed slot to a waiting entry and starts the
// claim window.
func (s *DefaultWaitlistService) NotifyAvailability(ctx context.Context, waitlistID, slotID string, expiresInHours int) error {
	if expiresInHours <= 0 {
		expiresInHours = s.NotifyWindowHours
	}
	expiresAt := time.Now().UTC().Add(time.Duration(expiresInHours) * time.Hour)

	if err := s.Repo.MarkNotified(ctx, waitlistID, slotID, expiresAt); err != nil {
		return err
	}

	entry, err := s.Repo.GetByID(ctx, waitlistID)
	if err != nil {
		return err
	}
	nerr := s.Notifier.Notify(ctx, entry.UserID, "waitlist_slot_available",
		"A slot opened up",
		fmt.Sprintf("A slot for your waitlisted service is available until %s.", expiresAt.Format(time.RFC1123)),
		map[string]string{"waitlistId": waitlistID, "slotId": slotID},
	)
	if nerr != nil {
		s.Logger.Warn("waitlist notification failed", zap.Error(nerr))
	}
	return nil
}

// ExpireSweep expires overdue notified entries, then offers their slots to
// the next entry in line. The slot stays free when nobody waits; the offer
// chain ends there until a release frees it again.
func (s *DefaultWaitlistService) ExpireSweep(ctx context.Context, now time.Time) (int64, error) {
	overdue, err := s.Repo.ListOverdueNotified(ctx, now)
	if err != nil {
		return 0, err
	}

	var expired int64
	for i := range overdue {
		entry := &overdue[i]
		if err := s.Repo.MarkExpired(ctx, entry.ID); err != nil {
			var stale models.InvalidStateError
			if errors.As(err, &stale) {
				// Converted or left while the sweep ran.
				continue
			}
			s.Logger.Error("failed to expire waitlist entry",
				zap.String("entry", entry.ID), zap.Error(err))
			continue
		}
		expired++

		if entry.OfferedSlotID == "" {
			continue
		}
		if err := s.OfferSlot(ctx, entry.ServiceID, entry.OfferedSlotID); err != nil {
			s.Logger.Warn("failed to re-offer slot after expiry",
				zap.String("slot", entry.OfferedSlotID), zap.Error(err))
		}
	}

	if expired > 0 {
		s.Logger.Info("waitlist entries expired", zap.Int64("count", expired))
	}
	return expired, nil
}

// ConvertToBooking turns a notified entry into a confirmed booking. Legal
// only inside the claim window. Losing the slot race leaves the entry
// notified and re-offerable, not expired.
func (s *DefaultWaitlistService) ConvertToBooking(ctx context.Context, waitlistID string, amount float64) (*models.Booking, error) {
	entry, err := s.Repo.GetByID(ctx, waitlistID)
	if err != nil {
		return nil, err
	}
	if entry.Status != models.WaitlistNotified {
		return nil, models.InvalidStateError{
			Reason: fmt.Sprintf("waitlist entry %s is %s, only notified entries convert", waitlistID, entry.Status),
		}
	}
	if entry.ExpiresAt != nil && time.Now().UTC().After(*entry.ExpiresAt) {
		return nil, models.InvalidStateError{Reason: "notification window has expired"}
	}

	created, err := s.Bookings.CreateBooking(ctx, models.BookingDraft{
		ServiceID:  entry.ServiceID,
		ClientID:   entry.UserID,
		TimeSlotID: entry.OfferedSlotID,
		Amount:     amount,
	})
	if err != nil {
		var conflict models.SlotConflictError
		if errors.As(err, &conflict) {
			// Someone else claimed the slot first; the entry stays
			// notified so the next freed slot can be offered.
			s.Logger.Info("waitlist conversion lost slot race",
				zap.String("entry", waitlistID))
		}
		return nil, err
	}

	if err := s.Repo.MarkConverted(ctx, waitlistID); err != nil {
		s.Logger.Error("failed to mark waitlist entry converted",
			zap.String("entry", waitlistID), zap.Error(err))
	}

	s.Logger.Info("waitlist entry converted",
		zap.String("entry", waitlistID),
		zap.String("booking", created.ID),
	)
	return created, nil
}

func (s *DefaultWaitlistService) Leave(ctx context.Context, waitlistID, userID string) error {
	entry, err := s.Repo.GetByID(ctx, waitlistID)
	if err != nil {
		return err
	}
	if entry.UserID != userID {
		return models.InvalidStateError{Reason: "waitlist entry belongs to a different user"}
	}
	return s.Repo.MarkLeft(ctx, waitlistID)
}

// OfferSlot routes a freed slot to the top waiting entry for the service.
// Called by the booking lifecycle whenever a hold is released.
func (s *DefaultWaitlistService) OfferSlot(ctx context.Context, serviceID, slotID string) error {
	next, err := s.Repo.NextWaiting(ctx, serviceID)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}
	return s.NotifyAvailability(ctx, next.ID, slotID, s.NotifyWindowHours)
}
