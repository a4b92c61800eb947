package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/pointvault/backend/internal/models"
)

func TestPostgresStore_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)

	t.Run("existing account", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery("SELECT account_id, balance, updated_at FROM point_balances WHERE account_id = \\$1").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"account_id", "balance", "updated_at"}).
				AddRow(1, 500, now))

		balance, err := store.Get(context.Background(), 1)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), balance.AccountID)
		assert.Equal(t, int64(500), balance.Balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing account defaults to zero balance", func(t *testing.T) {
		mock.ExpectQuery("SELECT account_id, balance, updated_at FROM point_balances WHERE account_id = \\$1").
			WithArgs(int64(99)).
			WillReturnError(sql.ErrNoRows)

		balance, err := store.Get(context.Background(), 99)
		assert.NoError(t, err)
		assert.Equal(t, int64(99), balance.AccountID)
		assert.Equal(t, int64(0), balance.Balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query failure surfaces", func(t *testing.T) {
		mock.ExpectQuery("SELECT account_id, balance, updated_at FROM point_balances WHERE account_id = \\$1").
			WithArgs(int64(2)).
			WillReturnError(sql.ErrConnDone)

		_, err := store.Get(context.Background(), 2)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)

	t.Run("upsert returns updated row", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery("INSERT INTO point_balances").
			WithArgs(int64(1), int64(700)).
			WillReturnRows(sqlmock.NewRows([]string{"account_id", "balance", "updated_at"}).
				AddRow(1, 700, now))

		balance, err := store.Upsert(context.Background(), 1, 700)
		assert.NoError(t, err)
		assert.Equal(t, int64(700), balance.Balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_Append(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)

	now := time.Now()
	mock.ExpectQuery("INSERT INTO point_histories").
		WithArgs(int64(1), int64(100), "CHARGE", now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "amount", "type", "created_at"}).
			AddRow(7, 1, 100, "CHARGE", now))

	record, err := store.Append(context.Background(), 1, 100, models.TransactionCharge, now)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), record.ID)
	assert.Equal(t, models.TransactionCharge, record.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListByAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)

	t.Run("returns records in commit order", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery("SELECT id, account_id, amount, type, created_at FROM point_histories WHERE account_id = \\$1 ORDER BY id").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "amount", "type", "created_at"}).
				AddRow(1, 1, 100, "CHARGE", now).
				AddRow(2, 1, 40, "SPEND", now))

		histories, err := store.ListByAccount(context.Background(), 1)
		assert.NoError(t, err)
		assert.Len(t, histories, 2)
		assert.Equal(t, models.TransactionCharge, histories[0].Type)
		assert.Equal(t, models.TransactionSpend, histories[1].Type)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no records yields empty slice", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, account_id, amount, type, created_at FROM point_histories WHERE account_id = \\$1 ORDER BY id").
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "amount", "type", "created_at"}))

		histories, err := store.ListByAccount(context.Background(), 5)
		assert.NoError(t, err)
		assert.Empty(t, histories)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
