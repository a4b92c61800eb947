package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/pointvault/backend/internal/services"
)

type VoucherHandler struct {
	service   *services.VoucherService
	validator *services.ValidationHelper
}

func NewVoucherHandler(service *services.VoucherService) *VoucherHandler {
	return &VoucherHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// GenerateVoucher generates a one-shot top-up voucher QR code
// @Summary Generate top-up voucher
// @Description Generate a QR voucher that credits the given amount to an account when redeemed
// @Tags vouchers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{accountId=int64,amount=int64} true "Voucher request"
// @Success 200 {object} object{code=string,qrImage=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /vouchers/generate [post]
func (h *VoucherHandler) GenerateVoucher(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		AccountID int64 `json:"accountId" validate:"required,gt=0"`
		Amount    int64 `json:"amount" validate:"required,gt=0"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	code, qrImage, err := h.service.GenerateVoucher(r.Context(), req.AccountID, req.Amount)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"code":    code,
		"qrImage": qrImage,
	})
}

// RedeemVoucher redeems a scanned voucher
// @Summary Redeem top-up voucher
// @Description Redeem a voucher code and credit its amount to the pinned account
// @Tags vouchers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{code=string} true "Voucher redemption request"
// @Success 200 {object} models.PointBalance
// @Failure 400 {object} services.ErrorResponse
// @Router /vouchers/redeem [post]
func (h *VoucherHandler) RedeemVoucher(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code" validate:"required"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	balance, err := h.service.RedeemVoucher(r.Context(), req.Code)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"balance": balance,
	})
}
