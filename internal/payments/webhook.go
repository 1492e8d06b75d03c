package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"zapnest/internal/billing"
	"zapnest/internal/notifications"
	"zapnest/internal/telemetry"
	"zapnest/internal/types"
)

// Webhook event types handled by the router.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventOrderPaid       = "order.paid"
	EventRefundCreated   = "refund.created"
	EventRefundProcessed = "refund.processed"
)

// Envelope is the Razorpay webhook body.
type Envelope struct {
	Event   string  `json:"event"`
	Payload Payload `json:"payload"`
}

// Payload holds the entity sub-objects. Only the ones relevant to the event
// are present.
type Payload struct {
	Payment *Wrapped[PaymentEntity] `json:"payment"`
	Order   *Wrapped[OrderEntity]   `json:"order"`
	Refund  *Wrapped[RefundEntity]  `json:"refund"`
}

// Wrapped is Razorpay's {"entity": {...}} wrapper.
type Wrapped[T any] struct {
	Entity *T `json:"entity"`
}

// PaymentEntity is the subset of a Razorpay payment the ledger uses.
type PaymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	Email            string `json:"email"`
	Notes            Notes  `json:"notes"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
}

// CustomerEmail prefers the email recorded in the order notes over the one
// the customer typed into checkout.
func (p *PaymentEntity) CustomerEmail() string {
	if e := p.Notes["email"]; e != "" {
		return types.NormalizeEmail(e)
	}
	return types.NormalizeEmail(p.Email)
}

// Tier returns the tier from the order notes, defaulting to core.
func (p *PaymentEntity) Tier() types.Tier {
	if t := p.Notes["tier"]; t != "" {
		return types.NormalizeTier(t)
	}
	return types.TierCore
}

func (p *PaymentEntity) currency() string {
	if p.Currency == "" {
		return billing.Currency
	}
	return p.Currency
}

// OrderEntity is the subset of a Razorpay order logged on order.paid.
type OrderEntity struct {
	ID      string `json:"id"`
	Amount  int64  `json:"amount"`
	Receipt string `json:"receipt"`
	Status  string `json:"status"`
}

// RefundEntity is the subset of a Razorpay refund the ledger uses.
type RefundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// Notes is the free-form key/value map attached to orders and payments.
// Razorpay serializes an empty map as [], and values may be non-strings.
type Notes map[string]string

// UnmarshalJSON accepts an object, null, or an array. Arrays carry no keys
// and decode as empty notes.
func (n *Notes) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("notes: %w", err)
	}
	out := Notes{}
	switch v := raw.(type) {
	case nil, []any:
	case map[string]any:
		for k, val := range v {
			switch val := val.(type) {
			case nil:
			case string:
				out[k] = val
			default:
				out[k] = fmt.Sprint(val)
			}
		}
	default:
		return fmt.Errorf("notes: unexpected JSON %T", raw)
	}
	*n = out
	return nil
}

type eventHandler func(ctx context.Context, p Payload) error

// WebhookRouter dispatches verified webhook envelopes to per-event handlers.
// Handler errors and panics are returned as errors; they never escape as
// panics.
type WebhookRouter struct {
	ledger      *Ledger
	subscribers SubscriberStore
	recorder    telemetry.Recorder
	logger      *slog.Logger
	now         func() time.Time
	handlers    map[string]eventHandler
}

// NewWebhookRouter creates a router. A nil ledger or subscriber store turns
// the corresponding writes into logged no-ops.
func NewWebhookRouter(ledger *Ledger, subscribers SubscriberStore, recorder telemetry.Recorder, logger *slog.Logger) *WebhookRouter {
	if recorder == nil {
		recorder = telemetry.NopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &WebhookRouter{
		ledger:      ledger,
		subscribers: subscribers,
		recorder:    recorder,
		logger:      logger,
		now:         time.Now,
	}
	r.handlers = map[string]eventHandler{
		EventPaymentCaptured: r.paymentCaptured,
		EventPaymentFailed:   r.paymentFailed,
		EventOrderPaid:       r.orderPaid,
		EventRefundCreated:   r.refundCreated,
		EventRefundProcessed: r.refundProcessed,
	}
	return r
}

// Route runs the handler for env.Event. Unknown events are logged and
// ignored.
func (r *WebhookRouter) Route(ctx context.Context, env Envelope) (err error) {
	handler, ok := r.handlers[env.Event]
	if !ok {
		r.logger.InfoContext(ctx, "webhook event ignored", "event", env.Event)
		r.recorder.RecordOutcome(ctx, "webhook", types.ResultIgnored)
		return nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "webhook handler panic",
				"event", env.Event,
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()),
			)
			err = types.NewAppError(types.ErrCodeInternalUnexpected, "webhook handler panicked", fmt.Errorf("%v", rec))
		}
		result := types.ResultSuccess
		if err != nil {
			result = types.ResultFailure
		}
		r.recorder.RecordOutcome(ctx, env.Event, result)
	}()

	r.logger.InfoContext(ctx, "webhook event received", "event", env.Event)
	return handler(ctx, env.Payload)
}

func (r *WebhookRouter) paymentCaptured(ctx context.Context, p Payload) error {
	payment := paymentEntity(p)
	if payment == nil || r.ledger == nil {
		return nil
	}
	r.logger.InfoContext(ctx, "payment captured",
		"payment_id", payment.ID,
		"to", notifications.RedactEmail(payment.CustomerEmail()),
	)
	return r.ledger.RecordCaptured(ctx, payment)
}

func (r *WebhookRouter) paymentFailed(ctx context.Context, p Payload) error {
	payment := paymentEntity(p)
	if payment == nil || r.ledger == nil {
		return nil
	}
	r.logger.WarnContext(ctx, "payment failed",
		"payment_id", payment.ID,
		"error_code", payment.ErrorCode,
		"error_description", payment.ErrorDescription,
	)
	return r.ledger.RecordFailed(ctx, payment)
}

// orderPaid is informational; payment.captured carries the ledger write.
func (r *WebhookRouter) orderPaid(ctx context.Context, p Payload) error {
	if p.Order == nil || p.Order.Entity == nil {
		return nil
	}
	r.logger.InfoContext(ctx, "order paid", "order_id", p.Order.Entity.ID)
	return nil
}

func (r *WebhookRouter) refundCreated(ctx context.Context, p Payload) error {
	refund := refundEntity(p)
	if refund == nil || r.ledger == nil {
		return nil
	}
	applied, err := r.ledger.RecordRefundCreated(ctx, refund)
	if err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "refund created",
		"refund_id", refund.ID,
		"payment_id", refund.PaymentID,
		"applied", applied,
	)
	return nil
}

// refundProcessed marks the payment refunded and cancels its subscriber.
func (r *WebhookRouter) refundProcessed(ctx context.Context, p Payload) error {
	refund := refundEntity(p)
	if refund == nil || r.ledger == nil {
		return nil
	}
	row, applied, err := r.ledger.RecordRefundProcessed(ctx, refund)
	if err != nil {
		return err
	}
	if row != nil && row.Status == types.PaymentRefunded && !applied {
		r.logger.InfoContext(ctx, "refund already processed",
			"refund_id", refund.ID,
			"payment_id", refund.PaymentID,
		)
		return nil
	}
	if row == nil || !applied {
		r.logger.WarnContext(ctx, "refund processed for payment not in refundable state",
			"refund_id", refund.ID,
			"payment_id", refund.PaymentID,
		)
		return nil
	}
	r.logger.InfoContext(ctx, "refund processed", "refund_id", refund.ID, "payment_id", refund.PaymentID)

	if r.subscribers == nil || row.Email == "" {
		return nil
	}
	err = r.subscribers.Cancel(ctx, row.Email, r.now().UTC())
	if types.IsCode(err, types.ErrCodeNotFoundSubscriber) {
		r.logger.InfoContext(ctx, "no subscriber to cancel for refunded payment", "payment_id", refund.PaymentID)
		return nil
	}
	return err
}

func paymentEntity(p Payload) *PaymentEntity {
	if p.Payment == nil {
		return nil
	}
	return p.Payment.Entity
}

func refundEntity(p Payload) *RefundEntity {
	if p.Refund == nil {
		return nil
	}
	return p.Refund.Entity
}
