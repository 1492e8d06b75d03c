package payments

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"zapnest/internal/billing"
	"zapnest/internal/notifications"
	"zapnest/internal/telemetry"
	"zapnest/internal/types"
)

// EmailDateLayout is the date format used in email bodies.
const EmailDateLayout = "2 January 2006"

// Side effect names reported by Confirm.
const (
	SideEffectSubscriberUpsert   = "subscriber_upsert"
	SideEffectPaymentLedger      = "payment_ledger"
	SideEffectWaitlistConversion = "waitlist_conversion"
	SideEffectConfirmationEmail  = "confirmation_email"
)

// SideEffect is the outcome of one downstream write. Attempted is false when
// the backing store or provider is not configured.
type SideEffect struct {
	Name      string
	Attempted bool
	Succeeded bool
	Err       error
}

func (s SideEffect) result() string {
	switch {
	case !s.Attempted:
		return types.ResultSkipped
	case s.Succeeded:
		return types.ResultSuccess
	default:
		return types.ResultFailure
	}
}

func skipped(name string) SideEffect { return SideEffect{Name: name} }

func attempted(name string, err error) SideEffect {
	return SideEffect{Name: name, Attempted: true, Succeeded: err == nil, Err: err}
}

// ConfirmRequest is the browser's post-checkout confirmation.
type ConfirmRequest struct {
	OrderID   string
	PaymentID string
	Signature string
	Email     string
	Tier      string
}

// Confirmation is the result of a verified payment. SideEffects lists every
// downstream write in execution order.
type Confirmation struct {
	OrderID         string
	PaymentID       string
	Tier            types.Tier
	NextBillingDate time.Time
	SideEffects     []SideEffect
}

// Config carries the secrets and links the service needs.
type Config struct {
	KeySecret     types.SecretString
	WebhookSecret types.SecretString
	DashboardURL  string
}

// Service runs the payment confirmation and webhook reconciliation flows.
// Calls are sequential; none are retried.
type Service struct {
	cfg        Config
	stores     Stores
	plans      billing.PlanRegistry
	upserter   *SubscriberUpserter
	ledger     *Ledger
	router     *WebhookRouter
	dispatcher notifications.Dispatcher
	recorder   telemetry.Recorder
	logger     *slog.Logger
	now        func() time.Time
}

// NewService wires the flow. Nil stores disable their writes; a nil
// dispatcher skips email.
func NewService(cfg Config, stores Stores, plans billing.PlanRegistry, dispatcher notifications.Dispatcher, recorder telemetry.Recorder, logger *slog.Logger) *Service {
	if plans == nil {
		plans = billing.NewStaticPlanRegistry()
	}
	if dispatcher == nil {
		dispatcher = notifications.DisabledDispatcher{Logger: logger}
	}
	if recorder == nil {
		recorder = telemetry.NopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		cfg:        cfg,
		stores:     stores,
		plans:      plans,
		dispatcher: dispatcher,
		recorder:   recorder,
		logger:     logger,
		now:        time.Now,
	}
	if stores.Subscribers != nil {
		s.upserter = NewSubscriberUpserter(stores.Subscribers, plans)
	}
	if stores.Payments != nil {
		s.ledger = NewLedger(stores.Payments)
	}
	s.router = NewWebhookRouter(s.ledger, stores.Subscribers, recorder, logger)
	return s
}

// Confirm verifies a checkout signature and activates the subscription.
// Only input and signature problems are returned as errors; downstream
// failures are reported in Confirmation.SideEffects.
func (s *Service) Confirm(ctx context.Context, req ConfirmRequest) (*Confirmation, error) {
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		return nil, types.NewAppError(types.ErrCodeValidationMissingField, "Missing payment verification data", nil)
	}
	if req.Email == "" || req.Tier == "" {
		return nil, types.NewAppError(types.ErrCodeValidationMissingField, "Missing email or tier", nil)
	}

	switch err := VerifyPaymentSignature(req.OrderID, req.PaymentID, req.Signature, s.cfg.KeySecret); {
	case errors.Is(err, ErrSecretNotConfigured):
		s.logger.ErrorContext(ctx, "payment verification requested without RAZORPAY_KEY_SECRET")
		return nil, types.NewAppError(types.ErrCodeInternalMisconfigured, "Payment verification not configured", err)
	case err != nil:
		s.logger.WarnContext(ctx, "payment signature rejected", "order_id", req.OrderID, "payment_id", req.PaymentID)
		s.recorder.RecordOutcome(ctx, "verify_payment", types.ResultFailure)
		return nil, types.NewAppError(types.ErrCodeValidationSignatureMismatch, "Invalid payment signature", err)
	}

	email := types.NormalizeEmail(req.Email)
	tier := types.NormalizeTier(req.Tier)
	now := s.now().UTC()

	conf := &Confirmation{
		OrderID:         req.OrderID,
		PaymentID:       req.PaymentID,
		Tier:            tier,
		NextBillingDate: billing.NextBillingDate(now),
	}
	price := s.plans.MonthlyPrice(tier)

	var referralCode string
	upsert := skipped(SideEffectSubscriberUpsert)
	if s.upserter != nil {
		res, err := s.upserter.Upsert(ctx, email, tier, req.PaymentID)
		upsert = attempted(SideEffectSubscriberUpsert, err)
		if err == nil {
			conf.NextBillingDate = res.NextBillingDate
			referralCode = res.ReferralCode
		}
	}

	ledger := skipped(SideEffectPaymentLedger)
	if s.ledger != nil {
		_, err := s.ledger.RecordVerified(ctx, email, req.OrderID, req.PaymentID, tier, price)
		ledger = attempted(SideEffectPaymentLedger, err)
	}

	waitlist := skipped(SideEffectWaitlistConversion)
	if s.stores.Waitlist != nil {
		_, err := s.stores.Waitlist.MarkConverted(ctx, email, now)
		waitlist = attempted(SideEffectWaitlistConversion, err)
	}

	dispatch := s.dispatcher.Dispatch(ctx, types.EmailMessage{
		Template:        types.EmailTemplatePaymentConfirmation,
		To:              email,
		Tier:            tier,
		TierName:        billing.TierName(tier),
		MonthlyPrice:    price,
		OrderID:         req.OrderID,
		PaymentID:       req.PaymentID,
		NextBillingDate: conf.NextBillingDate.Format(EmailDateLayout),
		ReferralCode:    referralCode,
		DashboardURL:    s.cfg.DashboardURL,
	})
	notify := SideEffect{
		Name:      SideEffectConfirmationEmail,
		Attempted: dispatch.Attempted,
		Succeeded: dispatch.Succeeded,
		Err:       dispatch.Err,
	}

	conf.SideEffects = []SideEffect{upsert, ledger, waitlist, notify}
	s.reportSideEffects(ctx, req.PaymentID, conf.SideEffects)
	s.recorder.RecordOutcome(ctx, "verify_payment", types.ResultSuccess)
	return conf, nil
}

func (s *Service) reportSideEffects(ctx context.Context, paymentID string, effects []SideEffect) {
	for _, e := range effects {
		s.recorder.RecordOutcome(ctx, e.Name, e.result())
		if e.Err != nil {
			s.logger.ErrorContext(ctx, "payment side effect failed",
				"payment_id", paymentID,
				"side_effect", e.Name,
				"error", e.Err.Error(),
			)
			continue
		}
		s.logger.InfoContext(ctx, "payment side effect",
			"payment_id", paymentID,
			"side_effect", e.Name,
			"result", e.result(),
		)
	}
}

// VerifyWebhook checks the webhook signature over the raw body.
func (s *Service) VerifyWebhook(ctx context.Context, rawBody []byte, signature string) error {
	err := VerifyWebhookSignature(rawBody, signature, s.cfg.WebhookSecret)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrSignatureMismatch):
		s.logger.WarnContext(ctx, "webhook signature verification failed")
		return types.NewAppError(types.ErrCodeAuthSignatureInvalid, "Invalid signature", err)
	default:
		s.logger.ErrorContext(ctx, "webhook missing signature or secret", "error", err.Error())
		return types.NewAppError(types.ErrCodeAuthSignatureMissing, "Unauthorized", err)
	}
}

// ProcessWebhook decodes a verified body and routes it. It returns the event
// type when the envelope could be decoded.
func (s *Service) ProcessWebhook(ctx context.Context, rawBody []byte) (string, error) {
	var env Envelope
	if err := json.Unmarshal(rawBody, &env); err != nil {
		s.logger.ErrorContext(ctx, "webhook body is not a valid envelope", "error", err.Error())
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "malformed webhook envelope", err)
	}
	if err := s.router.Route(ctx, env); err != nil {
		s.logger.ErrorContext(ctx, "webhook processing failed", "event", env.Event, "error", err.Error())
		return env.Event, err
	}
	return env.Event, nil
}
