package models

import "time"

// Waitlist entry statuses.
const (
	WaitlistWaiting   = "waiting"
	WaitlistNotified  = "notified"
	WaitlistConverted = "converted"
	WaitlistExpired   = "expired"
	WaitlistLeft      = "left"
)

// WaitlistEntry queues a user for a service until capacity frees up.
// waiting and notified count as active; a user may hold at most one active
// entry per service.
type WaitlistEntry struct {
	ID               string     `bson:"id" json:"id"`
	ServiceID        string     `bson:"serviceId" json:"serviceId"`
	UserID           string     `bson:"userId" json:"userId"`
	PreferredDate    string     `bson:"preferredDate" json:"preferredDate"`
	AlternativeDates []string   `bson:"alternativeDates,omitempty" json:"alternativeDates,omitempty"`
	Priority         int        `bson:"priority" json:"priority"`
	Status           string     `bson:"status" json:"status"`
	OfferedSlotID    string     `bson:"offeredSlotId,omitempty" json:"offeredSlotId,omitempty"`
	ExpiresAt        *time.Time `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	CreatedAt        time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// ActiveWaitlistStatuses are the statuses blocking a duplicate join.
var ActiveWaitlistStatuses = []string{WaitlistWaiting, WaitlistNotified}
