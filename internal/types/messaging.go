package types

// EmailTemplate names a transactional email body.
type EmailTemplate string

const (
	EmailTemplatePaymentConfirmation EmailTemplate = "payment_confirmation"
	EmailTemplateFounderWelcome      EmailTemplate = "founder_welcome"
	EmailTemplateMagicLink           EmailTemplate = "magic_link"
)

// Valid reports whether t names a known template.
func (t EmailTemplate) Valid() bool {
	switch t {
	case EmailTemplatePaymentConfirmation, EmailTemplateFounderWelcome, EmailTemplateMagicLink:
		return true
	}
	return false
}

// EmailMessage is the SQS payload published by the API when queued email
// dispatch is enabled and consumed by the email worker. It carries only the
// data needed to render the template; rendering happens in the worker.
type EmailMessage struct {
	MessageID string        `json:"message_id"`
	Template  EmailTemplate `json:"template"`
	To        string        `json:"to"`

	// Template data
	Tier            Tier   `json:"tier,omitempty"`
	TierName        string `json:"tier_name,omitempty"`
	MonthlyPrice    int    `json:"monthly_price,omitempty"`
	OrderID         string `json:"order_id,omitempty"`
	PaymentID       string `json:"payment_id,omitempty"`
	NextBillingDate string `json:"next_billing_date,omitempty"`
	ReferralCode    string `json:"referral_code,omitempty"`
	DashboardURL    string `json:"dashboard_url,omitempty"`
	MagicLink       string `json:"magic_link,omitempty"`
}
