package models

import "time"

// Booking statuses. A booking is never deleted; terminal states are
// declined, completed and cancelled.
const (
	BookingPending   = "pending"
	BookingAccepted  = "accepted"
	BookingDeclined  = "declined"
	BookingCompleted = "completed"
	BookingCancelled = "cancelled"
)

// Booking is the lifecycle record for a reserved time slot.
type Booking struct {
	ID                 string    `bson:"id" json:"id"`
	ServiceID          string    `bson:"serviceId" json:"serviceId"`
	ClientID           string    `bson:"clientId" json:"clientId"`
	ProviderID         string    `bson:"providerId" json:"providerId"`
	TimeSlotID         string    `bson:"timeSlotId" json:"timeSlotId"`
	Status             string    `bson:"status" json:"status"`
	Amount             float64   `bson:"amount" json:"amount"`
	ScheduledStart     time.Time `bson:"scheduledStart" json:"scheduledStart"`
	ScheduledEnd       time.Time `bson:"scheduledEnd" json:"scheduledEnd"`
	CancellationReason string    `bson:"cancellationReason,omitempty" json:"cancellationReason,omitempty"`
	CancelledBy        string    `bson:"cancelledBy,omitempty" json:"cancelledBy,omitempty"`
	CreatedAt          time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Terminal reports whether the booking permits no further transitions.
func (b *Booking) Terminal() bool {
	return b.Status == BookingDeclined || b.Status == BookingCompleted || b.Status == BookingCancelled
}

// BookingDraft carries the client request that creates a booking.
type BookingDraft struct {
	ServiceID  string  `json:"serviceId" binding:"required"`
	ClientID   string  `json:"-"`
	ProviderID string  `json:"providerId" binding:"required"`
	TimeSlotID string  `json:"timeSlotId" binding:"required"`
	Amount     float64 `json:"amount" binding:"required"`
}
