package payments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zapnest/internal/types"
)

func TestJoinWaitlist_SendsWelcome(t *testing.T) {
	mem := NewMemoryStore()
	d := newFakeDispatcher()
	w := NewWaitlistService(mem.Stores().Waitlist, nil, d, nil, "https://zapneststore.in/member/", discardLogger())

	effect, err := w.Join(context.Background(), "Priya@ZapNest.in", "Lite", "ZAP-K7M2")
	require.NoError(t, err)
	assert.True(t, effect.Succeeded)

	entry, ok := mem.WaitlistEntry("priya@zapnest.in")
	require.True(t, ok)
	assert.Equal(t, types.TierLite, entry.Tier)
	assert.Equal(t, "ZAP-K7M2", entry.ReferralCode)

	msgs := d.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, types.EmailTemplateFounderWelcome, msgs[0].Template)
	assert.Equal(t, "Lite", msgs[0].TierName)
	assert.Equal(t, 1599, msgs[0].MonthlyPrice)
}

func TestJoinWaitlist_NoTierWelcomesAsCore(t *testing.T) {
	d := newFakeDispatcher()
	w := NewWaitlistService(NewMemoryStore().Stores().Waitlist, nil, d, nil, "", discardLogger())

	_, err := w.Join(context.Background(), "ravi@zapnest.in", "", "")
	require.NoError(t, err)
	assert.Equal(t, types.TierCore, d.messages()[0].Tier)
}

func TestJoinWaitlist_Duplicate(t *testing.T) {
	mem := NewMemoryStore()
	d := newFakeDispatcher()
	w := NewWaitlistService(mem.Stores().Waitlist, nil, d, nil, "", discardLogger())

	_, err := w.Join(context.Background(), "priya@zapnest.in", "core", "")
	require.NoError(t, err)
	_, err = w.Join(context.Background(), " PRIYA@zapnest.in", "core", "")

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeConflictEmail, appErr.Code)
	assert.Equal(t, "This email is already on the waitlist.", appErr.Message)
	assert.Len(t, d.messages(), 1, "no welcome email for a duplicate signup")
}

func TestJoinWaitlist_EmailFailureIsReportedNotReturned(t *testing.T) {
	w := NewWaitlistService(NewMemoryStore().Stores().Waitlist, nil, failingDispatcher(), nil, "", discardLogger())

	effect, err := w.Join(context.Background(), "priya@zapnest.in", "core", "")
	require.NoError(t, err)
	assert.True(t, effect.Attempted)
	assert.False(t, effect.Succeeded)
}

func TestJoinWaitlist_NoStore(t *testing.T) {
	w := NewWaitlistService(nil, nil, nil, nil, "", discardLogger())
	_, err := w.Join(context.Background(), "priya@zapnest.in", "core", "")
	assert.True(t, types.IsCode(err, types.ErrCodeInternalMisconfigured))
}
