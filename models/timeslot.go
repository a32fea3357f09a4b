package models

import "time"

// TimeSlot represents a single bookable window on a provider's calendar.
// At most one active booking may hold a slot; IsBooked and BookingID are
// always written together in one conditional update.
type TimeSlot struct {
	ID         string    `bson:"id" json:"id"`
	ProviderID string    `bson:"providerId" json:"providerId"`
	Date       string    `bson:"date" json:"date"` // "2006-01-02", derived from Start
	Start      time.Time `bson:"start" json:"start"`
	End        time.Time `bson:"end" json:"end"`
	IsBooked   bool      `bson:"isBooked" json:"isBooked"`
	BookingID  string    `bson:"bookingId,omitempty" json:"bookingId,omitempty"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
}

// AvailabilityWindow is one recurring working window on a weekday.
// Start and End are minutes from midnight (e.g. 420 for 7:00 AM).
type AvailabilityWindow struct {
	Day   string `bson:"day" json:"day"` // "Mon".."Sun"
	Start int    `bson:"start" json:"start"`
	End   int    `bson:"end" json:"end"`
}

// WeeklyAvailability is a provider's recurring availability template.
// Editing it never touches slots that were already generated.
type WeeklyAvailability struct {
	ProviderID string               `bson:"providerId" json:"providerId"`
	Windows    []AvailabilityWindow `bson:"windows" json:"windows"`
	UpdatedAt  time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// WeekdayNames orders availability days the way schedules are displayed.
var WeekdayNames = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// WeekdayName maps time.Weekday to the short names used in templates.
func WeekdayName(d time.Weekday) string {
	switch d {
	case time.Monday:
		return "Mon"
	case time.Tuesday:
		return "Tue"
	case time.Wednesday:
		return "Wed"
	case time.Thursday:
		return "Thu"
	case time.Friday:
		return "Fri"
	case time.Saturday:
		return "Sat"
	default:
		return "Sun"
	}
}
