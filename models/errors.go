package models

import "fmt"

// Domain error taxonomy. Handlers map these onto HTTP statuses; anything
// else is treated as a retryable internal failure.

// SlotConflictError means the caller lost a race for a time slot.
type SlotConflictError struct {
	SlotID string
}

func (e SlotConflictError) Error() string {
	return fmt.Sprintf("time slot %s is already booked", e.SlotID)
}

// InvalidTransitionError signals an illegal booking state-machine move.
type InvalidTransitionError struct {
	BookingID string
	From      string
	To        string
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("booking %s: cannot transition from %s to %s", e.BookingID, e.From, e.To)
}

// InvalidStateError signals an operation attempted against an entity whose
// current state forbids it (e.g. releasing a slot held by a live booking).
type InvalidStateError struct {
	Reason string
}

func (e InvalidStateError) Error() string {
	return e.Reason
}

// PolicyViolationError means a cancellation or reschedule is disallowed by
// policy and no exception applies.
type PolicyViolationError struct {
	PolicyID string
	Reason   string
}

func (e PolicyViolationError) Error() string {
	return e.Reason
}

// InsufficientBalanceError rejects a withdrawal exceeding the balance.
type InsufficientBalanceError struct {
	Requested float64
	Available float64
}

func (e InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: requested %.2f, available %.2f", e.Requested, e.Available)
}

// NotFoundError marks a missing resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ConflictError marks a duplicate resource.
type ConflictError struct {
	Resource string
	Reason   string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Resource, e.Reason)
}
