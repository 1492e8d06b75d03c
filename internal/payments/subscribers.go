package payments

import (
	"context"
	"fmt"
	"time"

	"zapnest/internal/billing"
	"zapnest/internal/types"
)

// maxReferralAttempts bounds regeneration after referral_code collisions.
const maxReferralAttempts = 5

// UpsertResult describes the subscriber state after a successful payment.
type UpsertResult struct {
	Created         bool
	Tier            types.Tier
	MonthlyPrice    int
	NextBillingDate time.Time
	ReferralCode    string
}

// SubscriberUpserter activates a subscriber for a verified payment. It is
// safe to call repeatedly for the same email and payment.
type SubscriberUpserter struct {
	store   SubscriberStore
	plans   billing.PlanRegistry
	newCode func() (string, error)
	now     func() time.Time
}

// NewSubscriberUpserter creates an upserter pricing tiers through plans.
func NewSubscriberUpserter(store SubscriberStore, plans billing.PlanRegistry) *SubscriberUpserter {
	return &SubscriberUpserter{
		store:   store,
		plans:   plans,
		newCode: billing.GenerateReferralCode,
		now:     time.Now,
	}
}

// Upsert patches an existing subscriber or inserts a founder row. The email
// must already be normalized.
//
// A concurrent verification for the same email surfaces as an email unique
// violation on insert, which falls back to the patch path.
func (u *SubscriberUpserter) Upsert(ctx context.Context, email string, tier types.Tier, paymentID string) (*UpsertResult, error) {
	tier = types.NormalizeTier(string(tier))
	billingFields := types.SubscriberBilling{
		Tier:                   tier,
		MonthlyPrice:           u.plans.MonthlyPrice(tier),
		NextBillingDate:        billing.NextBillingDate(u.now()).UTC(),
		RazorpaySubscriptionID: paymentID,
	}
	res := &UpsertResult{
		Tier:            tier,
		MonthlyPrice:    billingFields.MonthlyPrice,
		NextBillingDate: billingFields.NextBillingDate,
	}

	existing, err := u.store.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if err := u.store.UpdateBilling(ctx, email, billingFields); err != nil {
			return nil, err
		}
		res.ReferralCode = existing.ReferralCode
		return res, nil
	case !types.IsCode(err, types.ErrCodeNotFoundSubscriber):
		return nil, err
	}

	for attempt := 0; attempt < maxReferralAttempts; attempt++ {
		code, err := u.newCode()
		if err != nil {
			return nil, err
		}
		err = u.store.Create(ctx, &types.Subscriber{
			Email:                  email,
			Tier:                   tier,
			Status:                 types.SubscriberActive,
			MonthlyPrice:           billingFields.MonthlyPrice,
			IsFounder:              true,
			ReferralCode:           code,
			NextBillingDate:        billingFields.NextBillingDate,
			RazorpaySubscriptionID: paymentID,
		})
		switch {
		case err == nil:
			res.Created = true
			res.ReferralCode = code
			return res, nil
		case types.IsCode(err, types.ErrCodeConflictReferralCode):
			continue
		case types.IsCode(err, types.ErrCodeConflictEmail):
			if err := u.store.UpdateBilling(ctx, email, billingFields); err != nil {
				return nil, err
			}
			if sub, err := u.store.GetByEmail(ctx, email); err == nil {
				res.ReferralCode = sub.ReferralCode
			}
			return res, nil
		default:
			return nil, err
		}
	}
	return nil, types.NewAppError(types.ErrCodeConflictReferralCode,
		fmt.Sprintf("no unique referral code after %d attempts", maxReferralAttempts), nil)
}
