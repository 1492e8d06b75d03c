package db

import (
	"context"
	"time"

	"github.com/google/uuid"

	"zapnest/internal/types"
)

// WaitlistRepository persists pre-launch signups keyed by email.
type WaitlistRepository struct {
	db DBTX
}

// NewWaitlistRepository creates a WaitlistRepository backed by the given
// connection (pool or transaction).
func NewWaitlistRepository(db DBTX) *WaitlistRepository {
	return &WaitlistRepository{db: db}
}

// Create inserts a waitlist entry. An existing email is reported as
// conflict_email_exists.
func (r *WaitlistRepository) Create(ctx context.Context, e *types.WaitlistEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO waitlist (id, email, tier, referral_code)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		e.ID,
		e.Email,
		nilIfEmpty(string(e.Tier)),
		nilIfEmpty(e.ReferralCode),
	).Scan(&e.CreatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return types.NewAppError(types.ErrCodeConflictEmail, "This email is already on the waitlist.", err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to join waitlist", err)
	}
	return nil
}

// MarkConverted flags the entry for email as converted. It reports whether an
// entry existed; a missing entry is not an error.
func (r *WaitlistRepository) MarkConverted(ctx context.Context, email string, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE waitlist
		 SET converted_to_subscriber = TRUE,
		     converted_at = $1
		 WHERE email = $2`,
		at,
		email,
	)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to mark waitlist conversion", err)
	}
	return tag.RowsAffected() > 0, nil
}
