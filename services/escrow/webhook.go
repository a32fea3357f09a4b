package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"servana/models"

	"go.uber.org/zap"
)

// eventDedupeTTL bounds how long processed gateway event ids are remembered.
const eventDedupeTTL = 72 * time.Hour

// HandleGatewayEvent maps a decoded, pre-verified gateway event onto escrow
// state. Replays are absorbed twice over: a Redis guard on the event id and
// conditional status updates underneath, so the same event never double-
// applies even if the guard is cold.
func (s *DefaultEscrowService) HandleGatewayEvent(ctx context.Context, event models.GatewayEvent) error {
	if event.ChargeID == "" {
		return models.InvalidStateError{Reason: "gateway event has no charge id"}
	}

	if event.ID != "" && s.Events != nil {
		fresh, err := s.Events.SetNX(ctx, "gwevent:"+event.ID, 1, eventDedupeTTL).Result()
		if err != nil {
			s.Logger.Warn("event dedupe check failed, relying on conditional updates", zap.Error(err))
		} else if !fresh {
			s.Logger.Debug("gateway event replayed, ignoring", zap.String("event", event.ID))
			return nil
		}
	}

	rec, err := s.resolveRecord(ctx, event)
	if err != nil {
		return err
	}

	switch event.Kind {
	case models.EventChargePaid:
		releaseDate := time.Now().UTC().AddDate(0, 0, s.HoldDays)
		if err := s.Repo.MarkPaid(ctx, rec.ID, releaseDate); err != nil {
			return err
		}
		s.Logger.Info("escrow funded",
			zap.String("booking", rec.BookingID),
			zap.Time("releaseDate", releaseDate),
		)
		s.notifyPaid(ctx, rec)
		return nil

	case models.EventChargePaymentFailed:
		return s.Repo.MarkFailed(ctx, rec.ID)

	case models.EventChargeRefunded:
		remaining := rec.Amount - rec.RefundAmount
		if remaining <= 0 {
			return nil
		}
		return s.ApplyRefund(ctx, rec.BookingID, remaining, false)

	case models.EventChargePartialRefunded:
		if event.RefundedAmount <= 0 {
			return models.InvalidStateError{Reason: "partial refund event without refunded amount"}
		}
		return s.ApplyRefund(ctx, rec.BookingID, event.RefundedAmount, true)

	default:
		// Unknown kinds are acknowledged and dropped; the gateway retries
		// forever otherwise.
		s.Logger.Warn("unhandled gateway event kind", zap.String("kind", event.Kind))
		return nil
	}
}

// resolveRecord finds the escrow record a gateway event targets. The first
// event for a charge arrives before any record carries its id; the booking
// reference in the charge metadata binds them, and every later event matches
// on the charge id directly.
func (s *DefaultEscrowService) resolveRecord(ctx context.Context, event models.GatewayEvent) (*models.EscrowRecord, error) {
	rec, err := s.Repo.GetByGatewayID(ctx, event.ChargeID)
	if err == nil {
		return rec, nil
	}
	var notFound models.NotFoundError
	if !errors.As(err, &notFound) || event.BookingID == "" {
		return nil, err
	}

	if err := s.AttachGatewayCharge(ctx, event.BookingID, event.ChargeID); err != nil {
		return nil, err
	}
	return s.Repo.GetByGatewayID(ctx, event.ChargeID)
}

func (s *DefaultEscrowService) notifyPaid(ctx context.Context, rec *models.EscrowRecord) {
	err := s.Notifier.Notify(ctx, rec.ProviderID, "payment_confirmed",
		"Payment received",
		fmt.Sprintf("Payment for booking %s is confirmed and held in escrow.", rec.BookingID),
		map[string]string{"bookingId": rec.BookingID},
	)
	if err != nil {
		s.Logger.Warn("payment notification failed", zap.Error(err))
	}
}
