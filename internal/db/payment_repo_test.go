package db

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"zapnest/internal/types"
)

func TestPaymentRepository_Insert(t *testing.T) {
	tests := []struct {
		name         string
		tag          string
		wantInserted bool
	}{
		{"new row", "INSERT 0 1", true},
		{"duplicate ignored", "INSERT 0 0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := new(mockDBTX)
			repo := NewPaymentRepository(db)

			db.On("Exec", mock.Anything, mock.MatchedBy(func(sql string) bool {
				return strings.Contains(sql, "INSERT INTO payments") &&
					strings.Contains(sql, "ON CONFLICT (razorpay_payment_id) DO NOTHING")
			}), mock.Anything).Return(pgconn.NewCommandTag(tt.tag), nil)

			p := &types.Payment{
				RazorpayPaymentID: "pay_1",
				AmountINR:         2999,
				Status:            types.PaymentCaptured,
			}
			inserted, err := repo.Insert(context.Background(), p)
			require.NoError(t, err)
			assert.Equal(t, tt.wantInserted, inserted)
			assert.NotEmpty(t, p.ID)
			assert.Equal(t, "INR", p.Currency)
		})
	}
}

func TestPaymentRepository_Insert_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPaymentRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("connection refused"))

	_, err := repo.Insert(context.Background(), &types.Payment{RazorpayPaymentID: "pay_1"})
	assert.True(t, types.IsCode(err, types.ErrCodeInternalDB))
}

func TestPaymentRepository_TransitionsAreGuarded(t *testing.T) {
	at := time.Now().UTC()

	tests := []struct {
		name     string
		call     func(r *PaymentRepository) (bool, error)
		wantFrom []string
	}{
		{
			name:     "captured",
			call:     func(r *PaymentRepository) (bool, error) { return r.MarkCaptured(context.Background(), "pay_1", at) },
			wantFrom: []string{"captured"},
		},
		{
			name: "refund pending",
			call: func(r *PaymentRepository) (bool, error) {
				return r.MarkRefundPending(context.Background(), "pay_1", "rfnd_1", 2999)
			},
			wantFrom: []string{"captured"},
		},
		{
			name:     "refunded",
			call:     func(r *PaymentRepository) (bool, error) { return r.MarkRefunded(context.Background(), "pay_1", at) },
			wantFrom: []string{"captured", "refund_pending"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := new(mockDBTX)
			repo := NewPaymentRepository(db)

			db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.MatchedBy(func(args []any) bool {
				from, ok := args[len(args)-1].([]string)
				return ok && assert.ObjectsAreEqual(tt.wantFrom, from)
			})).Return(pgconn.NewCommandTag("UPDATE 1"), nil)

			updated, err := tt.call(repo)
			require.NoError(t, err)
			assert.True(t, updated)
			db.AssertExpectations(t)
		})
	}
}

func TestPaymentRepository_MarkRefunded_NoEligibleRow(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPaymentRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	updated, err := repo.MarkRefunded(context.Background(), "pay_failed", time.Now())
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestPaymentRepository_GetByPaymentID(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPaymentRepository(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"pay_1"}).
		Return(&mockRow{scanFn: func(dest ...any) error {
			*dest[0].(*string) = "row_1"
			email := "asha@zapnest.in"
			*dest[1].(**string) = &email
			*dest[3].(*string) = "pay_1"
			*dest[4].(*float64) = 2999
			*dest[5].(*string) = "INR"
			*dest[6].(*types.PaymentStatus) = types.PaymentRefunded
			return nil
		}})

	p, err := repo.GetByPaymentID(context.Background(), "pay_1")
	require.NoError(t, err)
	assert.Equal(t, "asha@zapnest.in", p.Email)
	assert.Equal(t, types.PaymentRefunded, p.Status)
	assert.Empty(t, p.RazorpayOrderID)
}

func TestPaymentRepository_GetByPaymentID_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPaymentRepository(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	_, err := repo.GetByPaymentID(context.Background(), "pay_missing")
	assert.True(t, types.IsCode(err, types.ErrCodeNotFoundPayment))
}
