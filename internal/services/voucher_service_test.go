package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"

	"github.com/pointvault/backend/internal/config"
	"github.com/pointvault/backend/internal/lock"
	"github.com/pointvault/backend/internal/store"
)

func newTestVoucherService() (*VoucherService, redismock.ClientMock, *store.MemoryStore) {
	st := store.NewMemoryStore()
	cfg := &config.PointsConfig{
		MaxBalance:     1_000_000,
		VoucherTimeout: 5 * time.Minute,
		EventQueueKey:  "point_events",
	}
	points := NewPointService(st, lock.NewQueueLock(), nil, cfg)
	redisClient, mock := redismock.NewClientMock()
	return NewVoucherService(redisClient, points, cfg), mock, st
}

func voucherCode(t *testing.T, accountID, amount int64) (string, []byte) {
	t.Helper()
	payload := voucherPayload{
		AccountID: accountID,
		Amount:    amount,
		IssuedAt:  time.Now().Unix(),
		Nonce:     "test-nonce",
	}
	data, err := json.Marshal(payload)
	assert.NoError(t, err)
	return base64.URLEncoding.EncodeToString(data), data
}

func TestVoucherService_GenerateVoucher(t *testing.T) {
	ctx := context.Background()

	t.Run("issues code and QR image", func(t *testing.T) {
		service, mock, _ := newTestVoucherService()
		mock.Regexp().ExpectSet(`voucher:.*`, `.*`, 5*time.Minute).SetVal("OK")

		code, image, err := service.GenerateVoucher(ctx, 1, 500)
		assert.NoError(t, err)
		assert.NotEmpty(t, code)
		assert.NotEmpty(t, image)

		// Code decodes back to the pinned account and amount.
		data, err := base64.URLEncoding.DecodeString(code)
		assert.NoError(t, err)
		var payload voucherPayload
		assert.NoError(t, json.Unmarshal(data, &payload))
		assert.Equal(t, int64(1), payload.AccountID)
		assert.Equal(t, int64(500), payload.Amount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects invalid account", func(t *testing.T) {
		service, _, _ := newTestVoucherService()
		_, _, err := service.GenerateVoucher(ctx, 0, 500)
		assert.ErrorIs(t, err, ErrInvalidAccountID)
	})

	t.Run("rejects invalid amount", func(t *testing.T) {
		service, _, _ := newTestVoucherService()
		_, _, err := service.GenerateVoucher(ctx, 1, 0)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestVoucherService_RedeemVoucher(t *testing.T) {
	ctx := context.Background()

	t.Run("redeem charges pinned account", func(t *testing.T) {
		service, mock, _ := newTestVoucherService()
		code, data := voucherCode(t, 7, 300)
		mock.ExpectGetDel(fmt.Sprintf("voucher:%s", code)).SetVal(string(data))

		balance, err := service.RedeemVoucher(ctx, code)
		assert.NoError(t, err)
		assert.Equal(t, int64(7), balance.AccountID)
		assert.Equal(t, int64(300), balance.Balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown voucher", func(t *testing.T) {
		service, mock, _ := newTestVoucherService()
		mock.ExpectGetDel("voucher:bogus").RedisNil()

		_, err := service.RedeemVoucher(ctx, "bogus")
		assert.Error(t, err)
	})

	t.Run("redeem past ceiling leaves balance untouched", func(t *testing.T) {
		service, mock, st := newTestVoucherService()
		_, err := service.points.Charge(ctx, 7, 999_900)
		assert.NoError(t, err)

		code, data := voucherCode(t, 7, 300)
		mock.ExpectGetDel(fmt.Sprintf("voucher:%s", code)).SetVal(string(data))

		_, err = service.RedeemVoucher(ctx, code)
		var maxErr *MaxBalanceExceededError
		assert.ErrorAs(t, err, &maxErr)

		current, err := st.Get(ctx, 7)
		assert.NoError(t, err)
		assert.Equal(t, int64(999_900), current.Balance)
	})
}
