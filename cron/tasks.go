package cron

import (
	"context"
	"fmt"
	"time"

	bookingRepo "servana/database/repository/booking"
	"servana/models"
	"servana/services/booking"
	"servana/services/escrow"
	"servana/services/notification"
	"servana/services/waitlist"

	"go.uber.org/zap"
)

// Named periodic tasks. The scheduler (or the admin task endpoint) calls Run
// with one of these; every task is idempotent, so overlapping or repeated
// invocations are safe.
const (
	TaskEscrow        = "escrow"
	TaskBookings      = "bookings"
	TaskNotifications = "notifications"
	TaskReminders     = "reminders"
	TaskRatings       = "ratings"
	TaskAll           = "all"
)

// TaskRunner dispatches named tasks onto the domain services.
type TaskRunner struct {
	Escrow      escrow.EscrowService
	Bookings    booking.BookingService
	BookingRepo bookingRepo.BookingRepository
	Waitlist    waitlist.WaitlistService
	Notifier    notification.NotificationService
	Logger      *zap.Logger
}

// Run executes one named task. Unknown names are an error so a mistyped
// scheduler entry is noticed instead of silently doing nothing.
func (r *TaskRunner) Run(ctx context.Context, name string) error {
	now := time.Now().UTC()

	switch name {
	case TaskEscrow:
		report, err := r.Escrow.ProcessReleases(ctx, now)
		if err != nil {
			return err
		}
		if len(report.Failures) > 0 {
			r.Logger.Warn("escrow task completed with failures",
				zap.Strings("failures", report.Failures))
		}
		if _, err := r.Waitlist.ExpireSweep(ctx, now); err != nil {
			return err
		}
		return nil

	case TaskBookings:
		if _, err := r.Bookings.ExpirePendingHolds(ctx, now); err != nil {
			return err
		}
		_, err := r.Bookings.ApplyNoShowSweep(ctx, now)
		return err

	case TaskNotifications:
		_, err := r.Notifier.RedeliverUnsent(ctx, 500)
		return err

	case TaskReminders:
		return r.sendReminders(ctx, now)

	case TaskRatings:
		return r.promptRatings(ctx, now)

	case TaskAll:
		for _, t := range []string{TaskEscrow, TaskBookings, TaskNotifications, TaskReminders, TaskRatings} {
			if err := r.Run(ctx, t); err != nil {
				r.Logger.Error("task failed during 'all' run",
					zap.String("task", t), zap.Error(err))
			}
		}
		return nil

	default:
		return models.NotFoundError{Resource: "task", ID: name}
	}
}

// sendReminders nudges clients about accepted bookings starting within the
// next 24 hours.
func (r *TaskRunner) sendReminders(ctx context.Context, now time.Time) error {
	upcoming, err := r.BookingRepo.ListAcceptedStartingBetween(ctx, now, now.Add(24*time.Hour))
	if err != nil {
		return err
	}
	sent := 0
	for _, b := range upcoming {
		err := r.Notifier.Notify(ctx, b.ClientID, "booking_reminder", "Upcoming booking",
			fmt.Sprintf("Your booking starts at %s.", b.ScheduledStart.Format(time.RFC1123)),
			map[string]string{"bookingId": b.ID})
		if err != nil {
			r.Logger.Warn("reminder failed", zap.String("booking", b.ID), zap.Error(err))
			continue
		}
		sent++
	}
	r.Logger.Info("reminders task finished", zap.Int("sent", sent))
	return nil
}

// promptRatings asks clients to rate bookings completed in the last 24 hours.
func (r *TaskRunner) promptRatings(ctx context.Context, now time.Time) error {
	recent, err := r.BookingRepo.ListCompletedBetween(ctx, now.Add(-24*time.Hour), now)
	if err != nil {
		return err
	}
	prompted := 0
	for _, b := range recent {
		err := r.Notifier.Notify(ctx, b.ClientID, "rating_prompt", "How did it go?",
			"Rate your recent booking to help other clients.",
			map[string]string{"bookingId": b.ID})
		if err != nil {
			r.Logger.Warn("rating prompt failed", zap.String("booking", b.ID), zap.Error(err))
			continue
		}
		prompted++
	}
	r.Logger.Info("ratings task finished", zap.Int("prompted", prompted))
	return nil
}
