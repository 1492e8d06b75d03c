package payments

import (
	"context"
	"time"

	"zapnest/internal/billing"
	"zapnest/internal/types"
)

// Ledger writes payment rows. Inserts are idempotent on the gateway payment
// id; status updates only apply along valid ledger transitions.
type Ledger struct {
	store PaymentStore
	now   func() time.Time
}

// NewLedger creates a Ledger over store.
func NewLedger(store PaymentStore) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// RecordVerified inserts the captured row for a browser-confirmed payment.
// The amount is the tier's monthly price. A retried confirmation reports
// inserted=false.
func (l *Ledger) RecordVerified(ctx context.Context, email, orderID, paymentID string, tier types.Tier, amountINR int) (bool, error) {
	at := l.now().UTC()
	return l.store.Insert(ctx, &types.Payment{
		Email:             email,
		RazorpayOrderID:   orderID,
		RazorpayPaymentID: paymentID,
		AmountINR:         float64(amountINR),
		Currency:          billing.Currency,
		Status:            types.PaymentCaptured,
		Tier:              tier,
		CapturedAt:        &at,
	})
}

// RecordCaptured restamps an existing row as captured, then inserts the row
// in case the browser confirmation never arrived.
func (l *Ledger) RecordCaptured(ctx context.Context, p *PaymentEntity) error {
	at := l.now().UTC()
	if _, err := l.store.MarkCaptured(ctx, p.ID, at); err != nil {
		return err
	}
	_, err := l.store.Insert(ctx, &types.Payment{
		Email:             p.CustomerEmail(),
		RazorpayOrderID:   p.OrderID,
		RazorpayPaymentID: p.ID,
		AmountINR:         billing.PaiseToRupees(p.Amount),
		Currency:          p.currency(),
		Status:            types.PaymentCaptured,
		Tier:              p.Tier(),
		CapturedAt:        &at,
	})
	return err
}

// RecordFailed inserts a failed row carrying the gateway error.
func (l *Ledger) RecordFailed(ctx context.Context, p *PaymentEntity) error {
	_, err := l.store.Insert(ctx, &types.Payment{
		Email:             p.CustomerEmail(),
		RazorpayOrderID:   p.OrderID,
		RazorpayPaymentID: p.ID,
		AmountINR:         billing.PaiseToRupees(p.Amount),
		Currency:          p.currency(),
		Status:            types.PaymentFailed,
		Tier:              p.Tier(),
		ErrorCode:         p.ErrorCode,
		ErrorDescription:  p.ErrorDescription,
	})
	return err
}

// RecordRefundCreated moves the refunded payment to refund_pending.
func (l *Ledger) RecordRefundCreated(ctx context.Context, r *RefundEntity) (bool, error) {
	return l.store.MarkRefundPending(ctx, r.PaymentID, r.ID, billing.PaiseToRupees(r.Amount))
}

// RecordRefundProcessed marks the payment refunded and returns the ledger row
// so the caller can cascade to the subscriber. applied is true only when this
// call moved the row to refunded; a redelivered event reports false. The row
// is nil when the payment is unknown.
func (l *Ledger) RecordRefundProcessed(ctx context.Context, r *RefundEntity) (row *types.Payment, applied bool, err error) {
	applied, err = l.store.MarkRefunded(ctx, r.PaymentID, l.now().UTC())
	if err != nil {
		return nil, false, err
	}
	row, err = l.store.GetByPaymentID(ctx, r.PaymentID)
	if err != nil {
		if types.IsCode(err, types.ErrCodeNotFoundPayment) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return row, applied, nil
}
