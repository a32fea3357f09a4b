package waitlist

import (
	"context"
	"time"

	waitlistRepo "servana/database/repository/waitlist"
	"servana/models"
	"servana/services/availability"
	"servana/services/booking"
	"servana/services/notification"

	"go.uber.org/zap"
)

// WaitlistService queues users for full services and converts entries into
// bookings when capacity frees up inside the notification window.
type WaitlistService interface {
	Join(ctx context.Context, serviceID, userID, preferredDate string, alternatives []string, priority int) (*models.WaitlistEntry, error)
	NotifyAvailability(ctx context.Context, waitlistID, slotID string, expiresInHours int) error
	ExpireSweep(ctx context.Context, now time.Time) (int64, error)
	ConvertToBooking(ctx context.Context, waitlistID string, amount float64) (*models.Booking, error)
	Leave(ctx context.Context, waitlistID, userID string) error
	OfferSlot(ctx context.Context, serviceID, slotID string) error
}

// DefaultWaitlistService is the production implementation.
type DefaultWaitlistService struct {
	Repo         waitlistRepo.WaitlistRepository
	Bookings     booking.BookingService
	Availability availability.AvailabilityService
	Notifier     notification.NotificationService
	Logger       *zap.Logger

	// NotifyWindowHours is the default claim window for offered slots.
	NotifyWindowHours int
}
