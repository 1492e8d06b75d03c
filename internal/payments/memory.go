package payments

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"zapnest/internal/types"
)

// MemoryStore is an in-process implementation of all three stores for tests.
// It enforces the same unique keys and ledger transitions as the Postgres
// schema. Processes without DATABASE_URL run with nil stores instead, which
// skips persistence.
type MemoryStore struct {
	mu          sync.Mutex
	now         func() time.Time
	subscribers map[string]types.Subscriber
	referrals   map[string]string
	payments    map[string]types.Payment
	waitlist    map[string]types.WaitlistEntry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:         time.Now,
		subscribers: make(map[string]types.Subscriber),
		referrals:   make(map[string]string),
		payments:    make(map[string]types.Payment),
		waitlist:    make(map[string]types.WaitlistEntry),
	}
}

// Stores returns a Stores value backed entirely by m.
func (m *MemoryStore) Stores() Stores {
	return Stores{
		Subscribers: memorySubscribers{m},
		Payments:    memoryPayments{m},
		Waitlist:    memoryWaitlist{m},
	}
}

// Subscriber returns a copy of the subscriber for email.
func (m *MemoryStore) Subscriber(email string) (types.Subscriber, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subscribers[email]
	return s, ok
}

// Payment returns a copy of the ledger row for paymentID.
func (m *MemoryStore) Payment(paymentID string) (types.Payment, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	return p, ok
}

// WaitlistEntry returns a copy of the waitlist row for email.
func (m *MemoryStore) WaitlistEntry(email string) (types.WaitlistEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.waitlist[email]
	return e, ok
}

// Counts returns the number of subscribers, payments and waitlist rows.
func (m *MemoryStore) Counts() (subscribers, payments, waitlist int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers), len(m.payments), len(m.waitlist)
}

type memorySubscribers struct{ m *MemoryStore }

func (s memorySubscribers) GetByEmail(_ context.Context, email string) (*types.Subscriber, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sub, ok := s.m.subscribers[email]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundSubscriber, "subscriber not found", nil)
	}
	return &sub, nil
}

func (s memorySubscribers) Create(_ context.Context, sub *types.Subscriber) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.subscribers[sub.Email]; ok {
		return types.NewAppError(types.ErrCodeConflictEmail, "subscriber already exists", nil)
	}
	if _, ok := s.m.referrals[sub.ReferralCode]; ok {
		return types.NewAppError(types.ErrCodeConflictReferralCode, "referral code already in use", nil)
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	now := s.m.now().UTC()
	sub.CreatedAt, sub.UpdatedAt = now, now
	s.m.subscribers[sub.Email] = *sub
	s.m.referrals[sub.ReferralCode] = sub.Email
	return nil
}

func (s memorySubscribers) UpdateBilling(_ context.Context, email string, b types.SubscriberBilling) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sub, ok := s.m.subscribers[email]
	if !ok {
		return types.NewAppError(types.ErrCodeNotFoundSubscriber, "subscriber not found", nil)
	}
	sub.Tier = b.Tier
	sub.Status = types.SubscriberActive
	sub.MonthlyPrice = b.MonthlyPrice
	sub.NextBillingDate = b.NextBillingDate
	sub.RazorpaySubscriptionID = b.RazorpaySubscriptionID
	sub.UpdatedAt = s.m.now().UTC()
	s.m.subscribers[email] = sub
	return nil
}

func (s memorySubscribers) Cancel(_ context.Context, email string, at time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sub, ok := s.m.subscribers[email]
	if !ok {
		return types.NewAppError(types.ErrCodeNotFoundSubscriber, "subscriber not found", nil)
	}
	sub.Status = types.SubscriberCancelled
	sub.CancelledAt = &at
	sub.UpdatedAt = s.m.now().UTC()
	s.m.subscribers[email] = sub
	return nil
}

type memoryPayments struct{ m *MemoryStore }

func (p memoryPayments) Insert(_ context.Context, row *types.Payment) (bool, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	if _, ok := p.m.payments[row.RazorpayPaymentID]; ok {
		return false, nil
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.Currency == "" {
		row.Currency = "INR"
	}
	row.CreatedAt = p.m.now().UTC()
	p.m.payments[row.RazorpayPaymentID] = *row
	return true, nil
}

func (p memoryPayments) MarkCaptured(_ context.Context, paymentID string, at time.Time) (bool, error) {
	return p.transition(paymentID, types.PaymentCaptured, func(row *types.Payment) {
		row.CapturedAt = &at
	}), nil
}

func (p memoryPayments) MarkRefundPending(_ context.Context, paymentID, refundID string, amountINR float64) (bool, error) {
	return p.transition(paymentID, types.PaymentRefundPending, func(row *types.Payment) {
		row.RefundID = refundID
		row.RefundAmount = &amountINR
	}), nil
}

func (p memoryPayments) MarkRefunded(_ context.Context, paymentID string, at time.Time) (bool, error) {
	return p.transition(paymentID, types.PaymentRefunded, func(row *types.Payment) {
		row.RefundedAt = &at
	}), nil
}

func (p memoryPayments) transition(paymentID string, next types.PaymentStatus, apply func(*types.Payment)) bool {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	row, ok := p.m.payments[paymentID]
	if !ok || !row.Status.CanTransitionTo(next) {
		return false
	}
	row.Status = next
	apply(&row)
	p.m.payments[paymentID] = row
	return true
}

func (p memoryPayments) GetByPaymentID(_ context.Context, paymentID string) (*types.Payment, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	row, ok := p.m.payments[paymentID]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundPayment, "payment not found", nil)
	}
	return &row, nil
}

type memoryWaitlist struct{ m *MemoryStore }

func (w memoryWaitlist) Create(_ context.Context, e *types.WaitlistEntry) error {
	w.m.mu.Lock()
	defer w.m.mu.Unlock()
	if _, ok := w.m.waitlist[e.Email]; ok {
		return types.NewAppError(types.ErrCodeConflictEmail, "This email is already on the waitlist.", nil)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = w.m.now().UTC()
	w.m.waitlist[e.Email] = *e
	return nil
}

func (w memoryWaitlist) MarkConverted(_ context.Context, email string, at time.Time) (bool, error) {
	w.m.mu.Lock()
	defer w.m.mu.Unlock()
	e, ok := w.m.waitlist[email]
	if !ok {
		return false, nil
	}
	e.ConvertedToSubscriber = true
	e.ConvertedAt = &at
	w.m.waitlist[email] = e
	return true, nil
}

var (
	_ SubscriberStore = memorySubscribers{}
	_ PaymentStore    = memoryPayments{}
	_ WaitlistStore   = memoryWaitlist{}
)
