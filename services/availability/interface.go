package availability

import (
	"context"
	"time"

	availabilityRepo "servana/database/repository/availability"
	bookingRepo "servana/database/repository/booking"
	timeslotRepo "servana/database/repository/timeslot"
	"servana/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// AvailabilityService owns the TimeSlot lifecycle: templates, generation,
// the contended reserve, and releases.
type AvailabilityService interface {
	SetWeeklyAvailability(ctx context.Context, providerID string, windows []models.AvailabilityWindow) error
	GenerateTimeSlots(ctx context.Context, providerID string, from, to time.Time, slotDuration time.Duration) ([]models.TimeSlot, error)
	ReserveSlot(ctx context.Context, slotID, bookingID string) (*models.TimeSlot, error)
	ReleaseSlot(ctx context.Context, slotID string) error
	GetAvailableSlots(ctx context.Context, providerID, date string) ([]models.TimeSlot, error)
	GetSlot(ctx context.Context, slotID string) (*models.TimeSlot, error)
	GetWeeklySchedule(ctx context.Context, providerID string, weekStart time.Time) (map[string][]models.TimeSlot, error)
	FirstFreeSlot(ctx context.Context, providerID string, after time.Time) (*models.TimeSlot, error)
}

// DefaultAvailabilityService is the production implementation.
type DefaultAvailabilityService struct {
	Slots     timeslotRepo.TimeSlotRepository
	Templates availabilityRepo.AvailabilityRepository
	Bookings  bookingRepo.BookingRepository
	Cache     *redis.Client
	Logger    *zap.Logger
}
