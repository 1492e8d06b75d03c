// Package billing provides the tier price table and referral code generation.
package billing

import (
	"time"

	"zapnest/internal/types"
)

const (
	// Currency is the only currency orders are created in.
	Currency = "INR"

	// FallbackMonthlyPrice is charged for a tier string the registry does not
	// recognize.
	FallbackMonthlyPrice = 2999

	// BillingCycle is the interval between next_billing_date stamps.
	BillingCycle = 30 * 24 * time.Hour

	paisePerRupee = 100
)

// Plan describes one subscription tier.
type Plan struct {
	Tier         types.Tier
	Name         string
	MonthlyPrice int // whole rupees
}

// AmountPaise returns the monthly price in the gateway's minor unit.
func (p Plan) AmountPaise() int64 {
	return int64(p.MonthlyPrice) * paisePerRupee
}

// PlanRegistry resolves tiers to plans.
type PlanRegistry interface {
	// Lookup returns the plan for a tier. ok is false for unknown tiers.
	Lookup(tier types.Tier) (Plan, bool)

	// MonthlyPrice returns the price for a tier, falling back to
	// FallbackMonthlyPrice for unknown tiers.
	MonthlyPrice(tier types.Tier) int
}

// staticPlanRegistry is a compile-time plan registry backed by an in-memory map.
type staticPlanRegistry struct {
	plans map[types.Tier]Plan
}

// planDefaults is the tier price table.
//
//	| Tier  | Name  | Monthly (INR) |
//	|-------|-------|---------------|
//	| lite  | Lite  | 1,599         |
//	| core  | Core  | 2,999         |
//	| elite | Elite | 4,999         |
var planDefaults = map[types.Tier]Plan{
	types.TierLite:  {Tier: types.TierLite, Name: "Lite", MonthlyPrice: 1599},
	types.TierCore:  {Tier: types.TierCore, Name: "Core", MonthlyPrice: 2999},
	types.TierElite: {Tier: types.TierElite, Name: "Elite", MonthlyPrice: 4999},
}

// NewStaticPlanRegistry returns a PlanRegistry backed by the hardcoded price
// table. No database or external service is required.
func NewStaticPlanRegistry() PlanRegistry {
	// Copy the defaults so callers cannot mutate the package-level variable.
	m := make(map[types.Tier]Plan, len(planDefaults))
	for k, v := range planDefaults {
		m[k] = v
	}
	return &staticPlanRegistry{plans: m}
}

// Lookup case-folds the tier before resolving it.
func (r *staticPlanRegistry) Lookup(tier types.Tier) (Plan, bool) {
	p, ok := r.plans[types.NormalizeTier(string(tier))]
	return p, ok
}

func (r *staticPlanRegistry) MonthlyPrice(tier types.Tier) int {
	if p, ok := r.Lookup(tier); ok {
		return p.MonthlyPrice
	}
	return FallbackMonthlyPrice
}

// TierName returns the display name of a tier, or "Core" for unknown tiers.
func TierName(tier types.Tier) string {
	if p, ok := planDefaults[types.NormalizeTier(string(tier))]; ok {
		return p.Name
	}
	return planDefaults[types.TierCore].Name
}

// NextBillingDate returns the billing date one cycle after now.
func NextBillingDate(now time.Time) time.Time {
	return now.Add(BillingCycle)
}

// PaiseToRupees converts a gateway amount in paise to major units.
func PaiseToRupees(paise int64) float64 {
	return float64(paise) / paisePerRupee
}
