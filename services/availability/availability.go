package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"servana/models"

	"go.uber.org/zap"
)

const (
	dateLayout    = "2006-01-02"
	slotsCacheTTL = 2 * time.Minute
)

func (s *DefaultAvailabilityService) SetWeeklyAvailability(ctx context.Context, providerID string, windows []models.AvailabilityWindow) error {
	if len(windows) == 0 {
		return models.InvalidStateError{Reason: "weekly availability needs at least one window"}
	}
	valid := make(map[string]bool, len(models.WeekdayNames))
	for _, d := range models.WeekdayNames {
		valid[d] = true
	}
	for _, w := range windows {
		if !valid[w.Day] {
			return models.InvalidStateError{Reason: "unknown weekday " + w.Day}
		}
		if w.Start < 0 || w.End > 24*60 || w.Start >= w.End {
			return models.InvalidStateError{Reason: fmt.Sprintf("invalid window %d-%d on %s", w.Start, w.End, w.Day)}
		}
	}

	// Replacing the template never touches already-generated slots.
	return s.Templates.Upsert(ctx, models.WeeklyAvailability{
		ProviderID: providerID,
		Windows:    windows,
		UpdatedAt:  time.Now().UTC(),
	})
}

// GenerateTimeSlots materializes the weekly template over a date range.
// Overlapping an already-generated range is a conflict, never a silent
// duplication.
func (s *DefaultAvailabilityService) GenerateTimeSlots(ctx context.Context, providerID string, from, to time.Time, slotDuration time.Duration) ([]models.TimeSlot, error) {
	if !to.After(from) {
		return nil, models.InvalidStateError{Reason: "date range end must be after start"}
	}
	if slotDuration < 15*time.Minute {
		return nil, models.InvalidStateError{Reason: "slot duration must be at least 15 minutes"}
	}

	template, err := s.Templates.GetByProviderID(ctx, providerID)
	if err != nil {
		return nil, err
	}

	fromDate := from.Format(dateLayout)
	toDate := to.Format(dateLayout)
	existing, err := s.Slots.CountInRange(ctx, providerID, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, models.ConflictError{
			Resource: "time slots",
			Reason:   fmt.Sprintf("%d slots already generated between %s and %s", existing, fromDate, toDate),
		}
	}

	windowsByDay := make(map[string][]models.AvailabilityWindow)
	for _, w := range template.Windows {
		windowsByDay[w.Day] = append(windowsByDay[w.Day], w)
	}

	now := time.Now().UTC()
	var slots []models.TimeSlot
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		for _, w := range windowsByDay[models.WeekdayName(day.Weekday())] {
			windowStart := midnight.Add(time.Duration(w.Start) * time.Minute)
			windowEnd := midnight.Add(time.Duration(w.End) * time.Minute)
			for start := windowStart; !start.Add(slotDuration).After(windowEnd); start = start.Add(slotDuration) {
				slots = append(slots, models.TimeSlot{
					ProviderID: providerID,
					Date:       midnight.Format(dateLayout),
					Start:      start,
					End:        start.Add(slotDuration),
					CreatedAt:  now,
				})
			}
		}
	}
	if len(slots) == 0 {
		return nil, models.InvalidStateError{Reason: "template yields no slots over the requested range"}
	}

	if _, err := s.Slots.CreateMany(ctx, slots); err != nil {
		return nil, err
	}
	s.invalidateRange(ctx, providerID, from, to)

	s.Logger.Info("generated time slots",
		zap.String("provider", providerID),
		zap.String("from", fromDate),
		zap.String("to", toDate),
		zap.Int("count", len(slots)),
	)

	// Return committed state so callers see generated IDs.
	return s.Slots.GetByProviderRange(ctx, providerID, fromDate, toDate)
}

// ReserveSlot is the contended claim. The repository performs the
// conditional write; exactly one concurrent caller wins.
func (s *DefaultAvailabilityService) ReserveSlot(ctx context.Context, slotID, bookingID string) (*models.TimeSlot, error) {
	slot, err := s.Slots.Reserve(ctx, slotID, bookingID)
	if err != nil {
		return nil, err
	}
	s.invalidateDay(ctx, slot.ProviderID, slot.Date)
	return slot, nil
}

// ReleaseSlot frees a held slot. Legal only when the owning booking reached
// a terminal non-completed state.
func (s *DefaultAvailabilityService) ReleaseSlot(ctx context.Context, slotID string) error {
	slot, err := s.Slots.GetByID(ctx, slotID)
	if err != nil {
		return err
	}
	if !slot.IsBooked {
		return nil
	}

	booking, err := s.Bookings.GetByID(ctx, slot.BookingID)
	if err != nil {
		var notFound models.NotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		// The owning booking never materialized (creation rolled back);
		// the claim is an orphan and releasing it is the fix.
	} else if booking.TimeSlotID == slotID &&
		booking.Status != models.BookingDeclined && booking.Status != models.BookingCancelled {
		return models.InvalidStateError{
			Reason: fmt.Sprintf("slot %s is held by %s booking %s", slotID, booking.Status, booking.ID),
		}
	}

	if err := s.Slots.Release(ctx, slotID); err != nil {
		return err
	}
	s.invalidateDay(ctx, slot.ProviderID, slot.Date)
	return nil
}

func (s *DefaultAvailabilityService) GetSlot(ctx context.Context, slotID string) (*models.TimeSlot, error) {
	return s.Slots.GetByID(ctx, slotID)
}

func (s *DefaultAvailabilityService) FirstFreeSlot(ctx context.Context, providerID string, after time.Time) (*models.TimeSlot, error) {
	return s.Slots.FirstFreeForService(ctx, providerID, after)
}

// GetAvailableSlots reads committed free slots through a short-lived cache.
func (s *DefaultAvailabilityService) GetAvailableSlots(ctx context.Context, providerID, date string) ([]models.TimeSlot, error) {
	key := slotsCacheKey(providerID, date)
	if s.Cache != nil {
		if cached, err := s.Cache.Get(ctx, key).Result(); err == nil {
			var slots []models.TimeSlot
			if err := json.Unmarshal([]byte(cached), &slots); err == nil {
				return slots, nil
			}
		}
	}

	slots, err := s.Slots.GetAvailableByProviderAndDate(ctx, providerID, date)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		if b, err := json.Marshal(slots); err == nil {
			if err := s.Cache.Set(ctx, key, b, slotsCacheTTL).Err(); err != nil {
				s.Logger.Warn("failed to cache available slots", zap.Error(err))
			}
		}
	}
	return slots, nil
}

func (s *DefaultAvailabilityService) GetWeeklySchedule(ctx context.Context, providerID string, weekStart time.Time) (map[string][]models.TimeSlot, error) {
	fromDate := weekStart.Format(dateLayout)
	toDate := weekStart.AddDate(0, 0, 6).Format(dateLayout)
	slots, err := s.Slots.GetByProviderRange(ctx, providerID, fromDate, toDate)
	if err != nil {
		return nil, err
	}

	schedule := make(map[string][]models.TimeSlot, 7)
	for _, slot := range slots {
		day := models.WeekdayName(slot.Start.Weekday())
		schedule[day] = append(schedule[day], slot)
	}
	return schedule, nil
}

func slotsCacheKey(providerID, date string) string {
	return "slots:" + providerID + ":" + date
}

func (s *DefaultAvailabilityService) invalidateDay(ctx context.Context, providerID, date string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Del(ctx, slotsCacheKey(providerID, date)).Err(); err != nil {
		s.Logger.Warn("failed to invalidate slot cache", zap.Error(err))
	}
}

func (s *DefaultAvailabilityService) invalidateRange(ctx context.Context, providerID string, from, to time.Time) {
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		s.invalidateDay(ctx, providerID, day.Format(dateLayout))
	}
}
