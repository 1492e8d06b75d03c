package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"zapnest/internal/billing"
	"zapnest/internal/external"
	"zapnest/internal/types"
)

// orderSource tags orders created from the member dashboard.
const orderSource = "member_dashboard"

// CheckoutOrder is what the browser needs to open Razorpay checkout.
type CheckoutOrder struct {
	OrderID  string
	Amount   int64
	Currency string
	KeyID    string
	Email    string
	Notes    map[string]string
}

// OrderService creates gateway orders for a tier.
type OrderService struct {
	creator external.OrderCreator
	keyID   string
	secret  types.SecretString
	plans   billing.PlanRegistry
	nowMS   func() int64
}

// NewOrderService creates an OrderService. creator may be nil when the
// gateway is not configured; CreateOrder then reports a misconfiguration.
func NewOrderService(creator external.OrderCreator, keyID string, secret types.SecretString, plans billing.PlanRegistry) *OrderService {
	if plans == nil {
		plans = billing.NewStaticPlanRegistry()
	}
	return &OrderService{
		creator: creator,
		keyID:   keyID,
		secret:  secret,
		plans:   plans,
		nowMS:   func() int64 { return time.Now().UnixMilli() },
	}
}

// CreateOrder validates the tier and creates a Razorpay order for one month.
func (o *OrderService) CreateOrder(ctx context.Context, email, tier string) (*CheckoutOrder, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(tier) == "" {
		return nil, types.NewAppError(types.ErrCodeValidationMissingField, "Email and tier are required", nil)
	}
	plan, ok := o.plans.Lookup(types.Tier(tier))
	if !ok {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidTier, "Invalid tier. Must be lite, core, or elite", nil)
	}
	if o.creator == nil || o.keyID == "" || !o.secret.IsSet() {
		return nil, types.NewAppError(types.ErrCodeInternalMisconfigured, "Payment system not configured", nil)
	}

	normalized := types.NormalizeEmail(email)
	notes := map[string]string{
		"email":     normalized,
		"tier":      string(plan.Tier),
		"tier_name": plan.Name,
		"source":    orderSource,
	}
	order, err := o.creator.CreateOrder(ctx, external.OrderRequest{
		Amount:   plan.AmountPaise(),
		Currency: billing.Currency,
		Receipt:  receipt(o.nowMS(), email),
		Notes:    notes,
	})
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamGateway, "Failed to create payment order", err)
	}

	return &CheckoutOrder{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		KeyID:    o.keyID,
		Email:    normalized,
		Notes:    notes,
	}, nil
}

// receipt builds "zn_<unix-ms>_<local part, at most 10 chars>".
func receipt(ms int64, email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	if r := []rune(local); len(r) > 10 {
		local = string(r[:10])
	}
	return fmt.Sprintf("zn_%d_%s", ms, local)
}
