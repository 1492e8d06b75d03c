package external

import (
	"context"
)

// ---------------------------------------------------------------------------
// Payment Gateway (Razorpay)
// ---------------------------------------------------------------------------

// OrderCreator abstracts the Razorpay Orders API. Checkout needs an order id
// before the browser can open the payment modal.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
}

// OrderRequest is the body of POST /v1/orders. Amount is in paise.
type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order is the subset of the Razorpay order entity the service reads.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// ---------------------------------------------------------------------------
// Email (Resend)
// ---------------------------------------------------------------------------

// EmailSender transmits a pre-rendered email and returns the provider's
// message id.
type EmailSender interface {
	Send(ctx context.Context, email Email) (string, error)
}

// Email is a rendered message ready for delivery.
type Email struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
	// IdempotencyKey lets the provider drop duplicate sends of the same message.
	IdempotencyKey string
}
