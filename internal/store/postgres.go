package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pointvault/backend/internal/models"
)

// PostgresStore backs balances and histories with two tables:
//
//	point_balances  (account_id bigint primary key, balance bigint, updated_at timestamptz)
//	point_histories (id bigserial primary key, account_id bigint, amount bigint,
//	                 type text, created_at timestamptz)
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, accountID int64) (models.PointBalance, error) {
	var balance models.PointBalance
	err := s.db.QueryRowContext(ctx, `
		SELECT account_id, balance, updated_at
		FROM point_balances
		WHERE account_id = $1
	`, accountID).Scan(&balance.AccountID, &balance.Balance, &balance.UpdatedAt)

	if err == sql.ErrNoRows {
		// Accounts exist implicitly with a zero balance until first written.
		return models.PointBalance{AccountID: accountID, Balance: 0, UpdatedAt: time.Time{}}, nil
	}
	if err != nil {
		return models.PointBalance{}, fmt.Errorf("reading balance for account %d: %w", accountID, err)
	}

	return balance, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, accountID, balance int64) (models.PointBalance, error) {
	var updated models.PointBalance
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO point_balances (account_id, balance, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (account_id)
		DO UPDATE SET balance = $2, updated_at = NOW()
		RETURNING account_id, balance, updated_at
	`, accountID, balance).Scan(&updated.AccountID, &updated.Balance, &updated.UpdatedAt)

	if err != nil {
		return models.PointBalance{}, fmt.Errorf("writing balance for account %d: %w", accountID, err)
	}

	return updated, nil
}

func (s *PostgresStore) Append(ctx context.Context, accountID, amount int64, txType models.TransactionType, at time.Time) (models.PointHistory, error) {
	var record models.PointHistory
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO point_histories (account_id, amount, type, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, account_id, amount, type, created_at
	`, accountID, amount, string(txType), at).Scan(
		&record.ID, &record.AccountID, &record.Amount, &record.Type, &record.CreatedAt,
	)

	if err != nil {
		return models.PointHistory{}, fmt.Errorf("appending history for account %d: %w", accountID, err)
	}

	return record, nil
}

func (s *PostgresStore) ListByAccount(ctx context.Context, accountID int64) ([]models.PointHistory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, amount, type, created_at
		FROM point_histories
		WHERE account_id = $1
		ORDER BY id
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing histories for account %d: %w", accountID, err)
	}
	defer rows.Close()

	histories := []models.PointHistory{}
	for rows.Next() {
		var record models.PointHistory
		if err := rows.Scan(&record.ID, &record.AccountID, &record.Amount, &record.Type, &record.CreatedAt); err != nil {
			return nil, err
		}
		histories = append(histories, record)
	}

	return histories, rows.Err()
}
