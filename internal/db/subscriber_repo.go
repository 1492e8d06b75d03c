package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"zapnest/internal/types"
)

const (
	constraintSubscriberEmail    = "subscribers_email_key"
	constraintSubscriberReferral = "subscribers_referral_code_key"
)

const subscriberColumns = `id, email, tier, status, monthly_price, is_founder, referral_code,
	next_billing_date, razorpay_subscription_id, cancelled_at, created_at, updated_at`

// SubscriberRepository persists subscribers keyed by normalized email.
type SubscriberRepository struct {
	db DBTX
}

// NewSubscriberRepository creates a SubscriberRepository backed by the given
// connection (pool or transaction).
func NewSubscriberRepository(db DBTX) *SubscriberRepository {
	return &SubscriberRepository{db: db}
}

func scanSubscriber(row pgx.Row) (*types.Subscriber, error) {
	var (
		s      types.Subscriber
		extRef *string
	)
	err := row.Scan(
		&s.ID,
		&s.Email,
		&s.Tier,
		&s.Status,
		&s.MonthlyPrice,
		&s.IsFounder,
		&s.ReferralCode,
		&s.NextBillingDate,
		&extRef,
		&s.CancelledAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.RazorpaySubscriptionID = derefString(extRef)
	s.CancelledAt = utcPtr(s.CancelledAt)
	return &s, nil
}

// GetByEmail returns the subscriber for a normalized email or a
// not_found_subscriber error.
func (r *SubscriberRepository) GetByEmail(ctx context.Context, email string) (*types.Subscriber, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+subscriberColumns+` FROM subscribers WHERE email = $1`,
		email,
	)
	s, err := scanSubscriber(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundSubscriber, "subscriber not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load subscriber", err)
	}
	return s, nil
}

// Create inserts a new subscriber. Unique violations are reported as
// conflict_email_exists or conflict_referral_code_exists so callers can
// fall back to the patch path or regenerate the code.
func (r *SubscriberRepository) Create(ctx context.Context, s *types.Subscriber) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO subscribers (
			id, email, tier, status, monthly_price, is_founder, referral_code,
			next_billing_date, razorpay_subscription_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		s.ID,
		s.Email,
		s.Tier,
		s.Status,
		s.MonthlyPrice,
		s.IsFounder,
		s.ReferralCode,
		s.NextBillingDate,
		nilIfEmpty(s.RazorpaySubscriptionID),
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			if constraint == constraintSubscriberReferral {
				return types.NewAppError(types.ErrCodeConflictReferralCode, "referral code already in use", err)
			}
			return types.NewAppError(types.ErrCodeConflictEmail, "subscriber already exists", err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create subscriber", err)
	}
	return nil
}

// UpdateBilling applies a successful payment to an existing subscriber: the
// status returns to active and the billing fields are overwritten. The
// referral code and founder flag are left untouched.
func (r *SubscriberRepository) UpdateBilling(ctx context.Context, email string, b types.SubscriberBilling) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE subscribers
		 SET tier = $1,
		     status = $2,
		     monthly_price = $3,
		     next_billing_date = $4,
		     razorpay_subscription_id = $5,
		     updated_at = NOW()
		 WHERE email = $6`,
		b.Tier,
		types.SubscriberActive,
		b.MonthlyPrice,
		b.NextBillingDate,
		nilIfEmpty(b.RazorpaySubscriptionID),
		email,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update subscriber billing", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundSubscriber, "subscriber not found", nil)
	}
	return nil
}

// Cancel marks the subscriber cancelled and stamps cancelled_at.
func (r *SubscriberRepository) Cancel(ctx context.Context, email string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE subscribers
		 SET status = $1,
		     cancelled_at = $2,
		     updated_at = NOW()
		 WHERE email = $3`,
		types.SubscriberCancelled,
		at,
		email,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to cancel subscriber", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundSubscriber, "subscriber not found", nil)
	}
	return nil
}
