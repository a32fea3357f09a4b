package booking

import (
	"context"
	"time"

	bookingRepo "servana/database/repository/booking"
	"servana/models"
	"servana/services/availability"
	"servana/services/escrow"
	"servana/services/notification"
	"servana/services/policy"

	"go.uber.org/zap"
)

// BookingService drives the booking state machine and orchestrates the slot
// claim, policy verdicts and escrow effects around each transition.
type BookingService interface {
	CreateBooking(ctx context.Context, draft models.BookingDraft) (*models.Booking, error)
	GetBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	ListBookings(ctx context.Context, actorID, role, status string) ([]models.Booking, error)
	AcceptBooking(ctx context.Context, bookingID, providerID string) error
	DeclineBooking(ctx context.Context, bookingID, providerID, reason string) error
	CompleteBooking(ctx context.Context, bookingID, providerID string, now time.Time) error
	CancelBooking(ctx context.Context, bookingID, actorID, actorRole, reason string) (*models.PolicyVerdict, error)
	RescheduleBooking(ctx context.Context, bookingID, actorID, newSlotID string) (*models.Booking, *models.PolicyVerdict, error)
	ApplyNoShowSweep(ctx context.Context, now time.Time) (int, error)
	ExpirePendingHolds(ctx context.Context, now time.Time) (int, error)
}

// SlotOfferer is notified when a previously held slot frees up, so the
// waitlist can offer it to the next entry. Wired after construction to keep
// the dependency one-way.
type SlotOfferer interface {
	OfferSlot(ctx context.Context, serviceID, slotID string) error
}

// DefaultBookingService is the production implementation.
type DefaultBookingService struct {
	Repo         bookingRepo.BookingRepository
	Availability availability.AvailabilityService
	Escrow       escrow.EscrowService
	Policy       policy.PolicyEngine
	Notifier     notification.NotificationService
	Waitlist     SlotOfferer
	Logger       *zap.Logger

	// PendingHold is how long an unconfirmed pending booking keeps its slot.
	PendingHold time.Duration
}
