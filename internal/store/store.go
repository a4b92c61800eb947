package store

import (
	"context"
	"time"

	"github.com/pointvault/backend/internal/models"
)

// BalanceStore persists one point balance row per account. Get returns a
// zero-balance record when the account has never been written; Upsert
// creates or replaces the row. Neither performs any coordination: callers
// that mutate must hold the account's keyed lock.
type BalanceStore interface {
	Get(ctx context.Context, accountID int64) (models.PointBalance, error)
	Upsert(ctx context.Context, accountID, balance int64) (models.PointBalance, error)
}

// HistoryStore is the append-only log of committed point mutations.
// ListByAccount returns records in commit order.
type HistoryStore interface {
	Append(ctx context.Context, accountID, amount int64, txType models.TransactionType, at time.Time) (models.PointHistory, error)
	ListByAccount(ctx context.Context, accountID int64) ([]models.PointHistory, error)
}

// Store combines both halves; the Postgres and memory drivers implement it.
type Store interface {
	BalanceStore
	HistoryStore
}
