package handlers

import (
	"servana/cron"
	"servana/services/availability"
	"servana/services/booking"
	"servana/services/escrow"
	"servana/services/notification"
	"servana/services/policy"
	"servana/services/waitlist"
)

// HandlerBundle groups the endpoint handlers and the services they drive
// into one struct, constructed once in main.
type HandlerBundle struct {
	Availability availability.AvailabilityService
	Bookings     booking.BookingService
	Escrow       escrow.EscrowService
	Policy       policy.PolicyEngine
	Waitlist     waitlist.WaitlistService
	Notifier     notification.NotificationService
	Tasks        *cron.TaskRunner
}
