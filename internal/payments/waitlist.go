package payments

import (
	"context"
	"log/slog"

	"zapnest/internal/billing"
	"zapnest/internal/notifications"
	"zapnest/internal/telemetry"
	"zapnest/internal/types"
)

// SideEffectWelcomeEmail names the founder welcome dispatch.
const SideEffectWelcomeEmail = "welcome_email"

// WaitlistService records pre-launch signups and sends the founder welcome.
type WaitlistService struct {
	store        WaitlistStore
	plans        billing.PlanRegistry
	dispatcher   notifications.Dispatcher
	recorder     telemetry.Recorder
	dashboardURL string
	logger       *slog.Logger
}

// NewWaitlistService creates a WaitlistService. A nil store makes Join
// report a misconfiguration.
func NewWaitlistService(store WaitlistStore, plans billing.PlanRegistry, dispatcher notifications.Dispatcher, recorder telemetry.Recorder, dashboardURL string, logger *slog.Logger) *WaitlistService {
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
	return &WaitlistService{
		store:        store,
		plans:        plans,
		dispatcher:   dispatcher,
		recorder:     recorder,
		dashboardURL: dashboardURL,
		logger:       logger,
	}
}

// Join inserts the waitlist row and dispatches the welcome email. A duplicate
// email returns conflict_email_exists; email failure is reported in the
// returned SideEffect only.
func (w *WaitlistService) Join(ctx context.Context, email, tier, referralCode string) (SideEffect, error) {
	if w.store == nil {
		return SideEffect{}, types.NewAppError(types.ErrCodeInternalMisconfigured, "Waitlist not configured", nil)
	}
	entry := &types.WaitlistEntry{
		Email:        types.NormalizeEmail(email),
		Tier:         types.NormalizeTier(tier),
		ReferralCode: referralCode,
	}
	if err := w.store.Create(ctx, entry); err != nil {
		w.recorder.RecordOutcome(ctx, "waitlist_join", types.ResultFailure)
		return SideEffect{}, err
	}
	w.recorder.RecordOutcome(ctx, "waitlist_join", types.ResultSuccess)
	w.logger.InfoContext(ctx, "waitlist joined",
		"to", notifications.RedactEmail(entry.Email),
		"tier", string(entry.Tier),
	)

	welcomeTier := entry.Tier
	if _, ok := w.plans.Lookup(welcomeTier); !ok {
		welcomeTier = types.TierCore
	}
	res := w.dispatcher.Dispatch(ctx, types.EmailMessage{
		Template:     types.EmailTemplateFounderWelcome,
		To:           entry.Email,
		Tier:         welcomeTier,
		TierName:     billing.TierName(welcomeTier),
		MonthlyPrice: w.plans.MonthlyPrice(welcomeTier),
		DashboardURL: w.dashboardURL,
	})
	effect := SideEffect{
		Name:      SideEffectWelcomeEmail,
		Attempted: res.Attempted,
		Succeeded: res.Succeeded,
		Err:       res.Err,
	}
	w.recorder.RecordOutcome(ctx, effect.Name, effect.result())
	return effect, nil
}
