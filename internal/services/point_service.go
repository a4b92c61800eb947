package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"

	"github.com/pointvault/backend/internal/audit"
	"github.com/pointvault/backend/internal/config"
	"github.com/pointvault/backend/internal/lock"
	"github.com/pointvault/backend/internal/models"
	"github.com/pointvault/backend/internal/store"
)

// PointService implements the point transaction engine: balance and history
// reads, and charge/spend mutations serialized per account through a
// KeyedLock. Reads take no lock; mutations hold the account's lock across
// the whole read-check-write-append sequence so the invariant checks cannot
// race a concurrent mutation on the same account.
type PointService struct {
	balances  store.BalanceStore
	histories store.HistoryStore
	locks     lock.KeyedLock
	redis     *redis.Client
	audit     *audit.AuditLogger
	validator *ValidationHelper
	cfg       *config.PointsConfig
}

func NewPointService(st store.Store, locks lock.KeyedLock, redisClient *redis.Client, cfg *config.PointsConfig) *PointService {
	return &PointService{
		balances:  st,
		histories: st,
		locks:     locks,
		redis:     redisClient,
		audit:     audit.NewAuditLogger(),
		validator: NewValidationHelper(),
		cfg:       cfg,
	}
}

// GetBalance returns the account's current balance, defaulting to zero for
// accounts that were never written. Read-only, so no lock is taken; a value
// read concurrently with an in-flight mutation may be stale.
func (ps *PointService) GetBalance(ctx context.Context, accountID int64) (models.PointBalance, error) {
	if accountID < 1 {
		return models.PointBalance{}, ErrInvalidAccountID
	}
	return ps.balances.Get(ctx, accountID)
}

// GetHistories returns the account's committed mutations in commit order.
func (ps *PointService) GetHistories(ctx context.Context, accountID int64) ([]models.PointHistory, error) {
	if accountID < 1 {
		return nil, ErrInvalidAccountID
	}
	return ps.histories.ListByAccount(ctx, accountID)
}

// Charge credits amount to the account. Fails with MaxBalanceExceededError
// when the result would pass the ceiling; the ceiling itself is reachable.
func (ps *PointService) Charge(ctx context.Context, accountID, amount int64) (models.PointBalance, error) {
	if accountID < 1 {
		return models.PointBalance{}, ErrInvalidAccountID
	}
	if amount < 1 {
		return models.PointBalance{}, ErrInvalidAmount
	}

	release := ps.locks.Acquire(accountID)
	defer release()

	current, err := ps.balances.Get(ctx, accountID)
	if err != nil {
		ps.audit.LogError("CHARGE", accountID, amount, err)
		return models.PointBalance{}, &TransactionError{Stage: "read", Err: err}
	}

	// Compared this way round so an absurdly large amount cannot overflow
	// past the ceiling check.
	if amount > ps.cfg.MaxBalance-current.Balance {
		exceeded := &MaxBalanceExceededError{Current: current.Balance, Amount: amount, Max: ps.cfg.MaxBalance}
		ps.audit.LogError("CHARGE", accountID, amount, exceeded)
		return models.PointBalance{}, exceeded
	}

	updated, err := ps.balances.Upsert(ctx, accountID, current.Balance+amount)
	if err != nil {
		ps.audit.LogError("CHARGE", accountID, amount, err)
		return models.PointBalance{}, &TransactionError{Stage: "write", Err: err}
	}

	if _, err := ps.histories.Append(ctx, accountID, amount, models.TransactionCharge, time.Now()); err != nil {
		// The balance write is the commit point; the mutation stands even
		// though its record is missing. The caller learns both facts.
		ps.audit.LogError("CHARGE_HISTORY", accountID, amount, err)
		return models.PointBalance{}, &TransactionError{Stage: "history", Balance: updated.Balance, Err: err}
	}

	ps.audit.LogMutation("CHARGE", accountID, amount, updated.Balance)
	ps.queuePointEvent(ctx, accountID, amount, models.TransactionCharge, updated.Balance)
	return updated, nil
}

// Spend debits amount from the account. Fails with InsufficientBalanceError
// when the balance cannot cover it; spending to exactly zero is valid.
func (ps *PointService) Spend(ctx context.Context, accountID, amount int64) (models.PointBalance, error) {
	if accountID < 1 {
		return models.PointBalance{}, ErrInvalidAccountID
	}
	if amount < 1 {
		return models.PointBalance{}, ErrInvalidAmount
	}

	release := ps.locks.Acquire(accountID)
	defer release()

	current, err := ps.balances.Get(ctx, accountID)
	if err != nil {
		ps.audit.LogError("SPEND", accountID, amount, err)
		return models.PointBalance{}, &TransactionError{Stage: "read", Err: err}
	}

	if current.Balance < amount {
		insufficient := &InsufficientBalanceError{Current: current.Balance, Requested: amount}
		ps.audit.LogError("SPEND", accountID, amount, insufficient)
		return models.PointBalance{}, insufficient
	}

	updated, err := ps.balances.Upsert(ctx, accountID, current.Balance-amount)
	if err != nil {
		ps.audit.LogError("SPEND", accountID, amount, err)
		return models.PointBalance{}, &TransactionError{Stage: "write", Err: err}
	}

	if _, err := ps.histories.Append(ctx, accountID, amount, models.TransactionSpend, time.Now()); err != nil {
		ps.audit.LogError("SPEND_HISTORY", accountID, amount, err)
		return models.PointBalance{}, &TransactionError{Stage: "history", Balance: updated.Balance, Err: err}
	}

	ps.audit.LogMutation("SPEND", accountID, amount, updated.Balance)
	ps.queuePointEvent(ctx, accountID, amount, models.TransactionSpend, updated.Balance)
	return updated, nil
}

// queuePointEvent pushes a committed mutation onto the redis event queue for
// downstream consumers. Best effort: a queue failure never fails the call.
func (ps *PointService) queuePointEvent(ctx context.Context, accountID, amount int64, txType models.TransactionType, balance int64) {
	if ps.redis == nil {
		return
	}

	data, err := json.Marshal(map[string]any{
		"accountId": accountID,
		"amount":    amount,
		"type":      txType,
		"balance":   balance,
		"timestamp": time.Now().Unix(),
	})
	if err != nil {
		return
	}

	if err := ps.redis.RPush(ctx, ps.cfg.EventQueueKey, data).Err(); err != nil {
		log.Printf("[POINT] Failed to queue point event for account %d: %v", accountID, err)
	}
}

// HTTP handlers

type amountRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// GetPointBalance retrieves an account's point balance
// @Summary Get point balance
// @Description Retrieve the current point balance for an account
// @Tags points
// @Produce json
// @Security BearerAuth
// @Param accountId path int true "Account ID"
// @Success 200 {object} models.PointBalance
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /points/{accountId} [get]
func (ps *PointService) GetPointBalance(w http.ResponseWriter, r *http.Request) {
	accountID, ok := ps.parseAccountID(w, r)
	if !ok {
		return
	}

	balance, err := ps.GetBalance(r.Context(), accountID)
	if err != nil {
		ps.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(balance)
}

// GetPointHistories retrieves an account's transaction history
// @Summary Get point histories
// @Description Retrieve all charge/spend records for an account in commit order
// @Tags points
// @Produce json
// @Security BearerAuth
// @Param accountId path int true "Account ID"
// @Success 200 {array} models.PointHistory
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /points/{accountId}/histories [get]
func (ps *PointService) GetPointHistories(w http.ResponseWriter, r *http.Request) {
	accountID, ok := ps.parseAccountID(w, r)
	if !ok {
		return
	}

	histories, err := ps.GetHistories(r.Context(), accountID)
	if err != nil {
		ps.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(histories)
}

// ChargePoints credits points to an account
// @Summary Charge points
// @Description Credit points to an account, up to the configured ceiling
// @Tags points
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param accountId path int true "Account ID"
// @Param request body amountRequest true "Charge amount"
// @Success 200 {object} models.PointBalance
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /points/{accountId}/charge [patch]
func (ps *PointService) ChargePoints(w http.ResponseWriter, r *http.Request) {
	accountID, ok := ps.parseAccountID(w, r)
	if !ok {
		return
	}
	req, ok := ps.decodeAmount(w, r)
	if !ok {
		return
	}

	log.Printf("[POINT] Charge request: account %d, amount %d", accountID, req.Amount)

	balance, err := ps.Charge(r.Context(), accountID, req.Amount)
	if err != nil {
		ps.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(balance)
}

// SpendPoints debits points from an account
// @Summary Spend points
// @Description Debit points from an account; fails if the balance cannot cover it
// @Tags points
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param accountId path int true "Account ID"
// @Param request body amountRequest true "Spend amount"
// @Success 200 {object} models.PointBalance
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /points/{accountId}/use [patch]
func (ps *PointService) SpendPoints(w http.ResponseWriter, r *http.Request) {
	accountID, ok := ps.parseAccountID(w, r)
	if !ok {
		return
	}
	req, ok := ps.decodeAmount(w, r)
	if !ok {
		return
	}

	log.Printf("[POINT] Spend request: account %d, amount %d", accountID, req.Amount)

	balance, err := ps.Spend(r.Context(), accountID, req.Amount)
	if err != nil {
		ps.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(balance)
}

func (ps *PointService) parseAccountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "accountId")
	accountID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || accountID < 1 {
		SendErrorResponse(w, ErrInvalidAccountID.Error(), http.StatusBadRequest, nil)
		return 0, false
	}
	return accountID, true
}

func (ps *PointService) decodeAmount(w http.ResponseWriter, r *http.Request) (amountRequest, bool) {
	var req amountRequest

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return req, false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return req, false
	}

	if err := ps.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return req, false
	}

	return req, true
}

func (ps *PointService) writeServiceError(w http.ResponseWriter, err error) {
	var insufficient *InsufficientBalanceError
	var exceeded *MaxBalanceExceededError
	var txErr *TransactionError

	switch {
	case errors.Is(err, ErrInvalidAccountID), errors.Is(err, ErrInvalidAmount):
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
	case errors.As(err, &insufficient), errors.As(err, &exceeded):
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
	case errors.As(err, &txErr):
		log.Printf("[POINT] Transaction failure: %v", err)
		SendErrorResponse(w, "Failed to process point transaction", http.StatusInternalServerError, nil)
	default:
		log.Printf("[POINT] Unexpected error: %v", err)
		SendErrorResponse(w, "Failed to process request", http.StatusInternalServerError, nil)
	}
}
