package models

import (
	"time"
)

// TransactionType classifies a point mutation.
type TransactionType string

const (
	TransactionCharge TransactionType = "CHARGE"
	TransactionSpend  TransactionType = "SPEND"
)

type PointBalance struct {
	AccountID int64     `json:"accountId" db:"account_id"`
	Balance   int64     `json:"balance" db:"balance"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type PointHistory struct {
	ID        int64           `json:"id" db:"id"`
	AccountID int64           `json:"accountId" db:"account_id"`
	Amount    int64           `json:"amount" db:"amount"` // magnitude of the change, always positive
	Type      TransactionType `json:"type" db:"type"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}
