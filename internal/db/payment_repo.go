package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"zapnest/internal/types"
)

const paymentColumns = `id, email, razorpay_order_id, razorpay_payment_id, amount_inr, currency,
	status, tier, error_code, error_description, refund_id, refund_amount,
	captured_at, refunded_at, created_at`

// PaymentRepository is the payment ledger. Rows are keyed by the gateway
// payment id; every status update is guarded by the transition table in
// types.PaymentStatus so out-of-order webhooks cannot regress a row.
type PaymentRepository struct {
	db DBTX
}

// NewPaymentRepository creates a PaymentRepository backed by the given
// connection (pool or transaction).
func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Insert records a ledger row. A duplicate payment id is ignored and reported
// as inserted=false.
func (r *PaymentRepository) Insert(ctx context.Context, p *types.Payment) (bool, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Currency == "" {
		p.Currency = "INR"
	}
	tag, err := r.db.Exec(ctx,
		`INSERT INTO payments (
			id, email, razorpay_order_id, razorpay_payment_id, amount_inr, currency,
			status, tier, error_code, error_description, captured_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (razorpay_payment_id) DO NOTHING`,
		p.ID,
		nilIfEmpty(p.Email),
		nilIfEmpty(p.RazorpayOrderID),
		p.RazorpayPaymentID,
		p.AmountINR,
		p.Currency,
		p.Status,
		nilIfEmpty(string(p.Tier)),
		nilIfEmpty(p.ErrorCode),
		nilIfEmpty(p.ErrorDescription),
		p.CapturedAt,
	)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to insert payment", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkCaptured restamps captured_at on an existing captured row. It reports
// whether a row was updated.
func (r *PaymentRepository) MarkCaptured(ctx context.Context, paymentID string, at time.Time) (bool, error) {
	return r.transition(ctx, types.PaymentCaptured,
		`UPDATE payments
		 SET status = $1, captured_at = $2
		 WHERE razorpay_payment_id = $3 AND status = ANY($4)`,
		types.PaymentCaptured, at, paymentID, previousStatuses(types.PaymentCaptured),
	)
}

// MarkRefundPending records a created refund against a captured payment.
func (r *PaymentRepository) MarkRefundPending(ctx context.Context, paymentID, refundID string, amountINR float64) (bool, error) {
	return r.transition(ctx, types.PaymentRefundPending,
		`UPDATE payments
		 SET status = $1, refund_id = $2, refund_amount = $3
		 WHERE razorpay_payment_id = $4 AND status = ANY($5)`,
		types.PaymentRefundPending, refundID, amountINR, paymentID, previousStatuses(types.PaymentRefundPending),
	)
}

// MarkRefunded completes a refund and stamps refunded_at.
func (r *PaymentRepository) MarkRefunded(ctx context.Context, paymentID string, at time.Time) (bool, error) {
	return r.transition(ctx, types.PaymentRefunded,
		`UPDATE payments
		 SET status = $1, refunded_at = $2
		 WHERE razorpay_payment_id = $3 AND status = ANY($4)`,
		types.PaymentRefunded, at, paymentID, previousStatuses(types.PaymentRefunded),
	)
}

func (r *PaymentRepository) transition(ctx context.Context, next types.PaymentStatus, sql string, args ...any) (bool, error) {
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, types.NewAppErrorWithDetails(types.ErrCodeInternalDB, "failed to update payment", err,
			map[string]any{"next_status": string(next)})
	}
	return tag.RowsAffected() > 0, nil
}

// GetByPaymentID loads a ledger row by gateway payment id.
func (r *PaymentRepository) GetByPaymentID(ctx context.Context, paymentID string) (*types.Payment, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE razorpay_payment_id = $1`,
		paymentID,
	)

	var (
		p                          types.Payment
		email, orderID, tier       *string
		errCode, errDesc, refundID *string
	)
	err := row.Scan(
		&p.ID,
		&email,
		&orderID,
		&p.RazorpayPaymentID,
		&p.AmountINR,
		&p.Currency,
		&p.Status,
		&tier,
		&errCode,
		&errDesc,
		&refundID,
		&p.RefundAmount,
		&p.CapturedAt,
		&p.RefundedAt,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundPayment, "payment not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load payment", err)
	}
	p.Email = derefString(email)
	p.RazorpayOrderID = derefString(orderID)
	p.Tier = types.Tier(derefString(tier))
	p.ErrorCode = derefString(errCode)
	p.ErrorDescription = derefString(errDesc)
	p.RefundID = derefString(refundID)
	p.CapturedAt = utcPtr(p.CapturedAt)
	p.RefundedAt = utcPtr(p.RefundedAt)
	return &p, nil
}

// previousStatuses converts the transition sources to a text array argument.
func previousStatuses(next types.PaymentStatus) []string {
	from := types.PreviousStatuses(next)
	out := make([]string, len(from))
	for i, s := range from {
		out[i] = string(s)
	}
	return out
}
