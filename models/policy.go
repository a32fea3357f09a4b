package models

import "time"

// Policy types.
const (
	PolicyCancellation = "cancellation"
	PolicyRescheduling = "rescheduling"
	PolicyNoShow       = "no-show"
)

// Penalty types.
const (
	PenaltyPercentage = "percentage"
	PenaltyFixed      = "fixed"
)

// BookingPolicy configures the penalty applied when a booking is cancelled,
// rescheduled or missed inside the protected window. A policy with an empty
// ServiceID is the platform default; service-specific policies override it.
// Edits apply prospectively only; past evaluations are never recomputed.
type BookingPolicy struct {
	ID                 string    `bson:"id" json:"id"`
	ServiceID          string    `bson:"serviceId,omitempty" json:"serviceId,omitempty"`
	Type               string    `bson:"type" json:"type"`
	HoursBeforeBooking int       `bson:"hoursBeforeBooking" json:"hoursBeforeBooking"`
	PenaltyType        string    `bson:"penaltyType" json:"penaltyType"`
	PenaltyValue       float64   `bson:"penaltyValue" json:"penaltyValue"`
	AllowExceptions    bool      `bson:"allowExceptions" json:"allowExceptions"`
	CreatedAt          time.Time `bson:"createdAt" json:"createdAt"`
}

// PolicyVerdict is the outcome of a policy evaluation. The engine only
// scores; acting on the verdict is the caller's job.
type PolicyVerdict struct {
	Allowed       bool    `json:"allowed"`
	PenaltyAmount float64 `json:"penaltyAmount"`
	PolicyApplied string  `json:"policyApplied,omitempty"`
	Waived        bool    `json:"waived"`
}
