package store

import (
	"context"
	"sync"
	"time"

	"github.com/pointvault/backend/internal/models"
)

// MemoryStore keeps balances and histories in process memory. It is wired
// in when storage.driver is "memory" (local development) and backs the
// engine's concurrency tests. History IDs are assigned from a single
// monotonic counter, matching the serial column of the Postgres driver.
type MemoryStore struct {
	mu        sync.RWMutex
	balances  map[int64]models.PointBalance
	histories map[int64][]models.PointHistory
	nextID    int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		balances:  make(map[int64]models.PointBalance),
		histories: make(map[int64][]models.PointHistory),
	}
}

func (s *MemoryStore) Get(_ context.Context, accountID int64) (models.PointBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if balance, ok := s.balances[accountID]; ok {
		return balance, nil
	}
	return models.PointBalance{AccountID: accountID, Balance: 0}, nil
}

func (s *MemoryStore) Upsert(_ context.Context, accountID, balance int64) (models.PointBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := models.PointBalance{
		AccountID: accountID,
		Balance:   balance,
		UpdatedAt: time.Now(),
	}
	s.balances[accountID] = updated
	return updated, nil
}

func (s *MemoryStore) Append(_ context.Context, accountID, amount int64, txType models.TransactionType, at time.Time) (models.PointHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	record := models.PointHistory{
		ID:        s.nextID,
		AccountID: accountID,
		Amount:    amount,
		Type:      txType,
		CreatedAt: at,
	}
	s.histories[accountID] = append(s.histories[accountID], record)
	return record, nil
}

func (s *MemoryStore) ListByAccount(_ context.Context, accountID int64) ([]models.PointHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.histories[accountID]
	out := make([]models.PointHistory, len(records))
	copy(out, records)
	return out, nil
}
