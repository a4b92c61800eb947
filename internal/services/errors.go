package services

import (
	"errors"
	"fmt"
)

// Validation errors, surfaced before any lock is taken or store touched.
var (
	ErrInvalidAccountID = errors.New("account ID must be a positive integer")
	ErrInvalidAmount    = errors.New("amount must be a positive integer")
)

// InsufficientBalanceError rejects a spend that exceeds the current balance.
type InsufficientBalanceError struct {
	Current   int64
	Requested int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: current %d, requested %d", e.Current, e.Requested)
}

// MaxBalanceExceededError rejects a charge that would push the balance past
// the ceiling.
type MaxBalanceExceededError struct {
	Current int64
	Amount  int64
	Max     int64
}

func (e *MaxBalanceExceededError) Error() string {
	return fmt.Sprintf("max balance exceeded: current %d, charge %d, ceiling %d", e.Current, e.Amount, e.Max)
}

// TransactionError wraps an unexpected store failure inside the locked
// critical section. Stage is "read", "write" or "history". When Stage is
// "history" the balance write already committed and Balance carries the new
// value; the mutation is not rolled back, only its record is missing.
type TransactionError struct {
	Stage   string
	Balance int64
	Err     error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("point transaction failed at %s: %v", e.Stage, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}
