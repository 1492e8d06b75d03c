// Package payments implements Razorpay payment reconciliation: signature
// verification, the idempotent subscriber upsert, the payment ledger, the
// webhook event router, and the confirmation flow that ties them together.
package payments

import (
	"context"
	"time"

	"zapnest/internal/types"
)

// SubscriberStore persists subscribers keyed by normalized email.
// Implemented by db.SubscriberRepository and MemoryStore.
type SubscriberStore interface {
	GetByEmail(ctx context.Context, email string) (*types.Subscriber, error)
	// Create returns conflict_email_exists or conflict_referral_code_exists
	// when a unique constraint rejects the row.
	Create(ctx context.Context, s *types.Subscriber) error
	UpdateBilling(ctx context.Context, email string, b types.SubscriberBilling) error
	Cancel(ctx context.Context, email string, at time.Time) error
}

// PaymentStore persists ledger rows keyed by the gateway payment id.
// Mark* methods report false when no row in an eligible status exists.
type PaymentStore interface {
	// Insert reports false when a row with the same payment id exists.
	Insert(ctx context.Context, p *types.Payment) (bool, error)
	MarkCaptured(ctx context.Context, paymentID string, at time.Time) (bool, error)
	MarkRefundPending(ctx context.Context, paymentID, refundID string, amountINR float64) (bool, error)
	MarkRefunded(ctx context.Context, paymentID string, at time.Time) (bool, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*types.Payment, error)
}

// WaitlistStore persists pre-launch signups.
type WaitlistStore interface {
	Create(ctx context.Context, e *types.WaitlistEntry) error
	// MarkConverted reports whether an entry existed for email.
	MarkConverted(ctx context.Context, email string, at time.Time) (bool, error)
}

// Stores groups the three stores. A nil field disables the writes that need
// it; the flow still answers the caller.
type Stores struct {
	Subscribers SubscriberStore
	Payments    PaymentStore
	Waitlist    WaitlistStore
}
