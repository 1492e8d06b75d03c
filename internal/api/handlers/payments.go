// Package handlers contains the HTTP handlers for the ZapNest payment API.
//
// Every handler is public: checkout callers are anonymous, and the gateway
// webhook is authenticated by its X-Razorpay-Signature header.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"zapnest/internal/core"
	"zapnest/internal/payments"
)

// isoMillis matches the timestamp format checkout clients already parse.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// PaymentConfirmer runs the post-checkout confirmation flow.
type PaymentConfirmer interface {
	Confirm(ctx context.Context, req payments.ConfirmRequest) (*payments.Confirmation, error)
}

// OrderCreator creates gateway orders for checkout.
type OrderCreator interface {
	CreateOrder(ctx context.Context, email, tier string) (*payments.CheckoutOrder, error)
}

// PaymentsHandler serves order creation and payment verification.
type PaymentsHandler struct {
	confirmer PaymentConfirmer
	orders    OrderCreator
	validator *core.Validator
	logger    *slog.Logger
}

// NewPaymentsHandler creates a PaymentsHandler.
func NewPaymentsHandler(confirmer PaymentConfirmer, orders OrderCreator, v *core.Validator, logger *slog.Logger) *PaymentsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentsHandler{
		confirmer: confirmer,
		orders:    orders,
		validator: v,
		logger:    logger,
	}
}

// RegisterRoutes mounts the checkout endpoints.
func (h *PaymentsHandler) RegisterRoutes(r chi.Router) {
	r.Post("/create-payment", h.CreatePayment)
	r.Post("/verify-payment", h.VerifyPayment)
}

type createPaymentRequest struct {
	Email string `json:"email" validate:"required,email"`
	Tier  string `json:"tier" validate:"required"`
}

type prefill struct {
	Email string `json:"email"`
}

type theme struct {
	Color string `json:"color"`
}

type createPaymentResponse struct {
	Success  bool              `json:"success"`
	OrderID  string            `json:"order_id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	KeyID    string            `json:"key_id"`
	Prefill  prefill           `json:"prefill"`
	Notes    map[string]string `json:"notes"`
	Theme    theme             `json:"theme"`
}

// CreatePayment creates a Razorpay order for one month of the requested tier.
func (h *PaymentsHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	order, err := h.orders.CreateOrder(r.Context(), req.Email, req.Tier)
	if err != nil {
		h.logger.WarnContext(r.Context(), "order creation failed", "tier", req.Tier, "error", err.Error())
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "order created", "order_id", order.OrderID, "amount", order.Amount)
	core.JSON(w, r, http.StatusOK, createPaymentResponse{
		Success:  true,
		OrderID:  order.OrderID,
		Amount:   order.Amount,
		Currency: order.Currency,
		KeyID:    order.KeyID,
		Prefill:  prefill{Email: order.Email},
		Notes:    order.Notes,
		Theme:    theme{Color: "#00FF88"},
	})
}

type verifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
	Email     string `json:"email"`
	Tier      string `json:"tier"`
}

type verifyPaymentResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	PaymentID       string `json:"payment_id"`
	OrderID         string `json:"order_id"`
	Tier            string `json:"tier"`
	NextBillingDate string `json:"next_billing_date"`
}

// VerifyPayment checks the checkout signature and activates the
// subscription. Downstream write failures do not change the response.
func (h *PaymentsHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	conf, err := h.confirmer.Confirm(r.Context(), payments.ConfirmRequest{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
		Email:     req.Email,
		Tier:      req.Tier,
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, verifyPaymentResponse{
		Success:         true,
		Message:         "Payment verified and subscription activated",
		PaymentID:       conf.PaymentID,
		OrderID:         conf.OrderID,
		Tier:            string(conf.Tier),
		NextBillingDate: conf.NextBillingDate.UTC().Format(isoMillis),
	})
}
