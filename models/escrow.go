package models

import "time"

// Escrow record statuses, mirroring the payment lifecycle.
const (
	EscrowPending           = "pending"
	EscrowPaid              = "paid"
	EscrowFailed            = "failed"
	EscrowRefunded          = "refunded"
	EscrowPartiallyRefunded = "partially_refunded"
)

// EscrowRecord holds a client payment until the release condition is met.
// EscrowReleaseDate is set exactly when the record turns paid; ReleasedAt is
// written at most once; release is one-way and idempotent.
type EscrowRecord struct {
	ID                string     `bson:"id" json:"id"`
	BookingID         string     `bson:"bookingId" json:"bookingId"`
	ProviderID        string     `bson:"providerId" json:"providerId"`
	PaymentGatewayID  string     `bson:"paymentGatewayId,omitempty" json:"paymentGatewayId,omitempty"`
	Amount            float64    `bson:"amount" json:"amount"`
	NetAmount         float64    `bson:"netAmount" json:"netAmount"`
	Status            string     `bson:"status" json:"status"`
	EscrowReleaseDate *time.Time `bson:"escrowReleaseDate,omitempty" json:"escrowReleaseDate,omitempty"`
	ReleasedAt        *time.Time `bson:"releasedAt,omitempty" json:"releasedAt,omitempty"`
	RefundAmount      float64    `bson:"refundAmount" json:"refundAmount"`
	RefundedAt        *time.Time `bson:"refundedAt,omitempty" json:"refundedAt,omitempty"`
	Disputed          bool       `bson:"disputed" json:"disputed"`
	DisputeReason     string     `bson:"disputeReason,omitempty" json:"disputeReason,omitempty"`
	EarlyRelease      bool       `bson:"earlyRelease" json:"earlyRelease"`
	EarlyReleaseNote  string     `bson:"earlyReleaseNote,omitempty" json:"earlyReleaseNote,omitempty"`
	CreatedAt         time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// ReleaseReport summarizes one processReleases batch run. Per-record failures
// are collected here, never propagated as a batch abort.
type ReleaseReport struct {
	Processed int      `json:"processed"`
	Released  int      `json:"released"`
	Skipped   int      `json:"skipped"`
	Failures  []string `json:"failures,omitempty"`
}

// GatewayEvent is a decoded, signature-verified payment gateway webhook
// event. BookingID is carried in the charge metadata; the first event for a
// charge uses it to bind the charge to its escrow record.
type GatewayEvent struct {
	ID             string  `json:"id"`
	Kind           string  `json:"kind"` // charge.paid, charge.payment_failed, charge.refunded, charge.partial_refunded
	ChargeID       string  `json:"chargeId"`
	BookingID      string  `json:"bookingId,omitempty"`
	Amount         float64 `json:"amount"`
	RefundedAmount float64 `json:"refundedAmount,omitempty"`
}

// Gateway event kinds consumed by the escrow ledger.
const (
	EventChargePaid            = "charge.paid"
	EventChargePaymentFailed   = "charge.payment_failed"
	EventChargeRefunded        = "charge.refunded"
	EventChargePartialRefunded = "charge.partial_refunded"
)

// EarningsOverview is the provider-facing money summary.
type EarningsOverview struct {
	ProviderID        string       `json:"providerId"`
	AvailableBalance  float64      `json:"availableBalance"`
	PendingEscrow     float64      `json:"pendingEscrow"`
	ReleasedTotal     float64      `json:"releasedTotal"`
	RecentWithdrawals []Withdrawal `json:"recentWithdrawals"`
}
