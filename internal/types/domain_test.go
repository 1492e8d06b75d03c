package types

import "testing"

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Founder@Example.COM", "founder@example.com"},
		{"  someone@zapnest.in \n", "someone@zapnest.in"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeEmail(tt.in); got != tt.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeTier(t *testing.T) {
	for _, raw := range []string{"Elite", "elite", "ELITE", " elite "} {
		if got := NormalizeTier(raw); got != TierElite {
			t.Errorf("NormalizeTier(%q) = %q, want %q", raw, got, TierElite)
		}
	}
	if got := NormalizeTier("Platinum"); got != Tier("platinum") {
		t.Errorf("unknown tier should be kept lower-cased, got %q", got)
	}
}

func TestPaymentStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to PaymentStatus
		want     bool
	}{
		{PaymentCaptured, PaymentCaptured, true},
		{PaymentCaptured, PaymentRefundPending, true},
		{PaymentCaptured, PaymentRefunded, true},
		{PaymentRefundPending, PaymentRefunded, true},

		{PaymentCaptured, PaymentFailed, false},
		{PaymentRefundPending, PaymentCaptured, false},
		{PaymentRefunded, PaymentCaptured, false},
		{PaymentRefunded, PaymentRefundPending, false},
		{PaymentFailed, PaymentCaptured, false},
		{PaymentFailed, PaymentRefunded, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPreviousStatuses(t *testing.T) {
	got := PreviousStatuses(PaymentRefunded)
	if len(got) != 2 || got[0] != PaymentCaptured || got[1] != PaymentRefundPending {
		t.Errorf("PreviousStatuses(refunded) = %v", got)
	}
	if got := PreviousStatuses(PaymentFailed); len(got) != 0 {
		t.Errorf("failed is insert-only, got %v", got)
	}
}

func TestEmailTemplateValid(t *testing.T) {
	for _, tmpl := range []EmailTemplate{EmailTemplatePaymentConfirmation, EmailTemplateFounderWelcome, EmailTemplateMagicLink} {
		if !tmpl.Valid() {
			t.Errorf("%q should be valid", tmpl)
		}
	}
	if EmailTemplate("password_reset").Valid() {
		t.Error("unknown template reported valid")
	}
}
