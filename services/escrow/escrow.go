package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"servana/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OpenEscrow creates the escrow record for a booking's payment. Calling it
// twice for the same booking returns the existing record unchanged.
func (s *DefaultEscrowService) OpenEscrow(ctx context.Context, bookingID string, amount float64) (*models.EscrowRecord, error) {
	if amount <= 0 {
		return nil, models.InvalidStateError{Reason: "escrow amount must be positive"}
	}

	existing, err := s.Repo.GetByBookingID(ctx, bookingID)
	if err == nil {
		return existing, nil
	}
	var notFound models.NotFoundError
	if !errors.As(err, &notFound) {
		return nil, err
	}

	booking, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := &models.EscrowRecord{
		ID:         uuid.New().String(),
		BookingID:  bookingID,
		ProviderID: booking.ProviderID,
		Amount:     amount,
		NetAmount:  amount * (1 - s.FeeRate),
		Status:     models.EscrowPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Repo.Create(ctx, rec); err != nil {
		// A concurrent open may have inserted first; surface that record.
		if again, gerr := s.Repo.GetByBookingID(ctx, bookingID); gerr == nil {
			return again, nil
		}
		return nil, err
	}

	s.Logger.Info("escrow opened",
		zap.String("booking", bookingID),
		zap.Float64("amount", amount),
		zap.Float64("net", rec.NetAmount),
	)
	return rec, nil
}

// AttachGatewayCharge links the gateway charge id so webhook events can find
// the record.
func (s *DefaultEscrowService) AttachGatewayCharge(ctx context.Context, bookingID, chargeID string) error {
	rec, err := s.Repo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return err
	}
	return s.Repo.SetGatewayCharge(ctx, rec.ID, chargeID)
}

// ProcessReleases releases every due escrow record. Each record is released
// with its own conditional transaction, so re-running the batch or racing a
// concurrent run releases funds exactly once; one record's failure never
// aborts the rest.
func (s *DefaultEscrowService) ProcessReleases(ctx context.Context, now time.Time) (*models.ReleaseReport, error) {
	due, err := s.Repo.ListDueForRelease(ctx, now)
	if err != nil {
		return nil, err
	}

	report := &models.ReleaseReport{Processed: len(due)}
	for _, rec := range due {
		err := s.Repo.ReleaseAndCredit(ctx, rec.ID, rec.ProviderID, rec.NetAmount, now)
		switch {
		case err == nil:
			report.Released++
			s.notifyRelease(ctx, rec)
		case isConflict(err):
			// Another run got there first; skipped, not failed.
			report.Skipped++
		default:
			report.Failures = append(report.Failures, fmt.Sprintf("%s: %v", rec.ID, err))
			s.Logger.Error("escrow release failed",
				zap.String("record", rec.ID), zap.Error(err))
		}
	}

	s.Logger.Info("escrow release batch finished",
		zap.Int("processed", report.Processed),
		zap.Int("released", report.Released),
		zap.Int("skipped", report.Skipped),
		zap.Int("failures", len(report.Failures)),
	)
	return report, nil
}

func (s *DefaultEscrowService) notifyRelease(ctx context.Context, rec models.EscrowRecord) {
	err := s.Notifier.Notify(ctx, rec.ProviderID, "escrow_released",
		"Funds released",
		fmt.Sprintf("%.2f from booking %s is now available for withdrawal.", rec.NetAmount, rec.BookingID),
		map[string]string{"bookingId": rec.BookingID},
	)
	if err != nil {
		s.Logger.Warn("release notification failed", zap.Error(err))
	}
}

// RequestEarlyRelease expedites the hold for a completed booking.
func (s *DefaultEscrowService) RequestEarlyRelease(ctx context.Context, bookingID, providerID, justification string) error {
	booking, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.ProviderID != providerID {
		return models.InvalidStateError{Reason: "only the booked provider may request early release"}
	}
	if booking.Status != models.BookingCompleted {
		return models.InvalidStateError{Reason: "early release requires a completed booking"}
	}

	rec, err := s.Repo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return err
	}
	return s.Repo.SetEarlyRelease(ctx, rec.ID, justification, time.Now().UTC())
}

// DisputePayment freezes the release clock pending manual resolution.
func (s *DefaultEscrowService) DisputePayment(ctx context.Context, bookingID, userID, reason string) error {
	booking, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.ClientID != userID && booking.ProviderID != userID {
		return models.InvalidStateError{Reason: "only a booking party may dispute its payment"}
	}

	rec, err := s.Repo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return err
	}
	if err := s.Repo.SetDisputed(ctx, rec.ID, reason); err != nil {
		return err
	}

	s.Logger.Warn("escrow disputed",
		zap.String("booking", bookingID),
		zap.String("by", userID),
	)
	return nil
}

// ApplyRefund refunds part or all of a held payment. The cumulative refund
// can never exceed the original amount.
func (s *DefaultEscrowService) ApplyRefund(ctx context.Context, bookingID string, amount float64, partial bool) error {
	if amount <= 0 {
		return models.InvalidStateError{Reason: "refund amount must be positive"}
	}

	rec, err := s.Repo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return err
	}
	if rec.ReleasedAt != nil {
		return models.InvalidStateError{Reason: "funds already released, refund must go through support"}
	}
	if amount > rec.Amount-rec.RefundAmount {
		return models.InvalidStateError{
			Reason: fmt.Sprintf("refund %.2f exceeds refundable remainder %.2f", amount, rec.Amount-rec.RefundAmount),
		}
	}

	status := models.EscrowRefunded
	if partial {
		status = models.EscrowPartiallyRefunded
	}
	return s.Repo.ApplyRefund(ctx, rec.ID, rec.RefundAmount, rec.RefundAmount+amount, status, time.Now().UTC())
}

func isConflict(err error) bool {
	var conflict models.ConflictError
	return errors.As(err, &conflict)
}
