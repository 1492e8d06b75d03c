package types

import (
	"strings"
	"time"
)

// Tier is a subscription price plan. Values are always lower-case; an
// unrecognized tier string is kept as-is (lower-cased) so it can still be
// recorded on the ledger.
type Tier string

const (
	TierLite  Tier = "lite"
	TierCore  Tier = "core"
	TierElite Tier = "elite"
)

// NormalizeTier case-folds and trims a client-supplied tier string.
func NormalizeTier(raw string) Tier {
	return Tier(strings.ToLower(strings.TrimSpace(raw)))
}

// NormalizeEmail lower-cases and trims an email address. Subscribers and
// waitlist entries are keyed by the normalized form.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// SubscriberStatus is the lifecycle state of a subscriber.
type SubscriberStatus string

const (
	SubscriberActive        SubscriberStatus = "active"
	SubscriberCancelled     SubscriberStatus = "cancelled"
	SubscriberRefundPending SubscriberStatus = "refund_pending"
	SubscriberRefunded      SubscriberStatus = "refunded"
)

// PaymentStatus is the ledger state of a single gateway payment.
type PaymentStatus string

const (
	PaymentCaptured      PaymentStatus = "captured"
	PaymentFailed        PaymentStatus = "failed"
	PaymentRefundPending PaymentStatus = "refund_pending"
	PaymentRefunded      PaymentStatus = "refunded"
)

// paymentTransitions lists the states each ledger status may move to.
// A captured row may be re-captured (the webhook restamps captured_at).
// Failed and refunded rows are terminal.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentCaptured:      {PaymentCaptured, PaymentRefundPending, PaymentRefunded},
	PaymentRefundPending: {PaymentRefunded},
}

// CanTransitionTo reports whether a ledger row in status s may be updated to next.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PreviousStatuses returns the statuses from which next is reachable in one
// step. Stores use it to build guarded UPDATE statements.
func PreviousStatuses(next PaymentStatus) []PaymentStatus {
	var from []PaymentStatus
	for _, s := range []PaymentStatus{PaymentCaptured, PaymentFailed, PaymentRefundPending, PaymentRefunded} {
		if s.CanTransitionTo(next) {
			from = append(from, s)
		}
	}
	return from
}

// Subscriber is a paying member, keyed by normalized email.
type Subscriber struct {
	ID                     string           `json:"id"`
	Email                  string           `json:"email"`
	Tier                   Tier             `json:"tier"`
	Status                 SubscriberStatus `json:"status"`
	MonthlyPrice           int              `json:"monthly_price"`
	IsFounder              bool             `json:"is_founder"`
	ReferralCode           string           `json:"referral_code"`
	NextBillingDate        time.Time        `json:"next_billing_date"`
	RazorpaySubscriptionID string           `json:"razorpay_subscription_id,omitempty"`
	CancelledAt            *time.Time       `json:"cancelled_at,omitempty"`
	CreatedAt              time.Time        `json:"created_at"`
	UpdatedAt              time.Time        `json:"updated_at"`
}

// SubscriberBilling is the set of fields written on every successful payment,
// for both new and existing subscribers.
type SubscriberBilling struct {
	Tier                   Tier
	MonthlyPrice           int
	NextBillingDate        time.Time
	RazorpaySubscriptionID string
}

// Payment is one ledger row, keyed by the gateway payment id.
type Payment struct {
	ID                string        `json:"id"`
	Email             string        `json:"email"`
	RazorpayOrderID   string        `json:"razorpay_order_id"`
	RazorpayPaymentID string        `json:"razorpay_payment_id"`
	AmountINR         float64       `json:"amount_inr"`
	Currency          string        `json:"currency"`
	Status            PaymentStatus `json:"status"`
	Tier              Tier          `json:"tier"`
	ErrorCode         string        `json:"error_code,omitempty"`
	ErrorDescription  string        `json:"error_description,omitempty"`
	RefundID          string        `json:"refund_id,omitempty"`
	RefundAmount      *float64      `json:"refund_amount,omitempty"`
	CapturedAt        *time.Time    `json:"captured_at,omitempty"`
	RefundedAt        *time.Time    `json:"refunded_at,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
}

// WaitlistEntry is a pre-launch signup.
type WaitlistEntry struct {
	ID                    string     `json:"id"`
	Email                 string     `json:"email"`
	Tier                  Tier       `json:"tier,omitempty"`
	ReferralCode          string     `json:"referral_code,omitempty"`
	ConvertedToSubscriber bool       `json:"converted_to_subscriber"`
	ConvertedAt           *time.Time `json:"converted_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}
