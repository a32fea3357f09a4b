package models

import "time"

// Withdrawal statuses.
const (
	WithdrawalPending   = "pending"
	WithdrawalCompleted = "completed"
	WithdrawalFailed    = "failed"
)

// Withdrawal is a payout request against a user's account balance. Creating
// one decrements the balance in the same transaction, so outstanding
// withdrawals are always reflected as reserved funds.
type Withdrawal struct {
	ID            string     `bson:"id" json:"id"`
	UserID        string     `bson:"userId" json:"userId"`
	Amount        float64    `bson:"amount" json:"amount"`
	BankAccountID string     `bson:"bankAccountId,omitempty" json:"bankAccountId,omitempty"`
	Status        string     `bson:"status" json:"status"`
	CreatedAt     time.Time  `bson:"createdAt" json:"createdAt"`
	ProcessedAt   *time.Time `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
}

// AccountBalance is a user's withdrawable balance. Credits come from escrow
// releases; debits only ever happen through withdrawal creation.
type AccountBalance struct {
	UserID    string    `bson:"userId" json:"userId"`
	Balance   float64   `bson:"balance" json:"balance"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
