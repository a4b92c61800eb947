package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/skip2/go-qrcode"

	"github.com/pointvault/backend/internal/config"
	"github.com/pointvault/backend/internal/models"
)

// VoucherService issues one-shot top-up vouchers as QR codes. A voucher
// pins an account and an amount, lives in redis for a limited time, and is
// consumed atomically on redemption; redeeming runs an ordinary Charge, so
// the balance ceiling and per-account serialization still apply.
type VoucherService struct {
	redis  *redis.Client
	points *PointService
	cfg    *config.PointsConfig
}

type voucherPayload struct {
	AccountID int64  `json:"accountId"`
	Amount    int64  `json:"amount"`
	IssuedAt  int64  `json:"issuedAt"`
	Nonce     string `json:"nonce"`
}

func NewVoucherService(redisClient *redis.Client, points *PointService, cfg *config.PointsConfig) *VoucherService {
	return &VoucherService{
		redis:  redisClient,
		points: points,
		cfg:    cfg,
	}
}

func (s *VoucherService) GenerateVoucher(ctx context.Context, accountID, amount int64) (string, string, error) {
	if accountID < 1 {
		return "", "", ErrInvalidAccountID
	}
	if amount < 1 {
		return "", "", ErrInvalidAmount
	}

	payload := voucherPayload{
		AccountID: accountID,
		Amount:    amount,
		IssuedAt:  time.Now().Unix(),
		Nonce:     s.generateNonce(),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", "", err
	}

	code := base64.URLEncoding.EncodeToString(jsonData)

	key := fmt.Sprintf("voucher:%s", code)
	if err := s.redis.Set(ctx, key, jsonData, s.cfg.VoucherTimeout).Err(); err != nil {
		return "", "", err
	}

	qr, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return "", "", err
	}

	return code, base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// RedeemVoucher consumes the voucher and charges its amount to the pinned
// account. GetDel makes consumption one-shot even under concurrent redeems.
func (s *VoucherService) RedeemVoucher(ctx context.Context, code string) (models.PointBalance, error) {
	key := fmt.Sprintf("voucher:%s", code)

	data, err := s.redis.GetDel(ctx, key).Bytes()
	if err == redis.Nil {
		return models.PointBalance{}, fmt.Errorf("invalid or expired voucher")
	}
	if err != nil {
		return models.PointBalance{}, err
	}

	var payload voucherPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return models.PointBalance{}, err
	}

	return s.points.Charge(ctx, payload.AccountID, payload.Amount)
}

func (s *VoucherService) generateNonce() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
