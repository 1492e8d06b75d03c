// Package notifications renders and dispatches ZapNest transactional email:
// the payment confirmation sent after a verified payment, the founder
// welcome sent on waitlist signup and the dashboard sign-in link.
package notifications

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	texttemplate "text/template"

	"zapnest/internal/types"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

// RenderedEmail holds the pre-rendered email content ready for transmission.
type RenderedEmail struct {
	Subject  string
	BodyHTML string
	BodyText string
}

var subjects = map[types.EmailTemplate]string{
	types.EmailTemplatePaymentConfirmation: "Welcome to ZapNest! Your subscription is active",
	types.EmailTemplateFounderWelcome:      "You're a Founder! Welcome to ZapNest Black Box",
	types.EmailTemplateMagicLink:           "🔐 Sign in to your ZapNest dashboard",
}

// tierDetail is the per-tier copy used by the welcome email.
type tierDetail struct {
	Items       string
	AccentColor string
}

var tierDetails = map[types.Tier]tierDetail{
	types.TierLite:  {Items: "1 curated accessory", AccentColor: "#00FF88"},
	types.TierCore:  {Items: "1 hero product + accessories", AccentColor: "#00FF88"},
	types.TierElite: {Items: "Premium hero + 2-3 accessories", AccentColor: "#FFD700"},
}

// templateData is the struct passed into Go templates for rendering.
type templateData struct {
	Subject         string
	TierName        string
	Price           string
	Items           string
	AccentColor     string
	OrderID         string
	PaymentID       string
	NextBillingDate string
	ReferralCode    string
	DashboardURL    string
	MagicLink       string
}

// Renderer renders EmailMessages with embedded html/template and
// text/template files.
type Renderer struct {
	htmlTemplates map[types.EmailTemplate]*template.Template
	textTemplates map[types.EmailTemplate]*texttemplate.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{
		htmlTemplates: make(map[types.EmailTemplate]*template.Template),
		textTemplates: make(map[types.EmailTemplate]*texttemplate.Template),
	}

	baseHTML, err := templateFS.ReadFile("templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("renderer: failed to read base.html: %w", err)
	}

	for name := range subjects {
		htmlContent, err := templateFS.ReadFile(fmt.Sprintf("templates/%s.html", name))
		if err != nil {
			return nil, fmt.Errorf("renderer: failed to read %s.html: %w", name, err)
		}
		htmlTmpl, err := template.New("base").Parse(string(baseHTML))
		if err != nil {
			return nil, fmt.Errorf("renderer: failed to parse base.html: %w", err)
		}
		if _, err := htmlTmpl.Parse(string(htmlContent)); err != nil {
			return nil, fmt.Errorf("renderer: failed to parse %s.html: %w", name, err)
		}
		r.htmlTemplates[name] = htmlTmpl

		txtContent, err := templateFS.ReadFile(fmt.Sprintf("templates/%s.txt", name))
		if err != nil {
			return nil, fmt.Errorf("renderer: failed to read %s.txt: %w", name, err)
		}
		txtTmpl, err := texttemplate.New(string(name)).Parse(string(txtContent))
		if err != nil {
			return nil, fmt.Errorf("renderer: failed to parse %s.txt: %w", name, err)
		}
		r.textTemplates[name] = txtTmpl
	}

	return r, nil
}

// Render produces the subject and both bodies for msg.
func (r *Renderer) Render(msg types.EmailMessage) (*RenderedEmail, error) {
	htmlTmpl, ok := r.htmlTemplates[msg.Template]
	if !ok {
		return nil, fmt.Errorf("renderer: no HTML template %q", msg.Template)
	}
	txtTmpl := r.textTemplates[msg.Template]

	data := buildTemplateData(msg)

	var htmlBuf bytes.Buffer
	if err := htmlTmpl.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("renderer: failed to render HTML for %q: %w", msg.Template, err)
	}
	var txtBuf bytes.Buffer
	if err := txtTmpl.Execute(&txtBuf, data); err != nil {
		return nil, fmt.Errorf("renderer: failed to render text for %q: %w", msg.Template, err)
	}

	return &RenderedEmail{
		Subject:  data.Subject,
		BodyHTML: htmlBuf.String(),
		BodyText: txtBuf.String(),
	}, nil
}

func buildTemplateData(msg types.EmailMessage) templateData {
	detail, ok := tierDetails[msg.Tier]
	if !ok {
		detail = tierDetails[types.TierCore]
	}
	return templateData{
		Subject:         subjects[msg.Template],
		TierName:        msg.TierName,
		Price:           FormatINR(msg.MonthlyPrice),
		Items:           detail.Items,
		AccentColor:     detail.AccentColor,
		OrderID:         msg.OrderID,
		PaymentID:       msg.PaymentID,
		NextBillingDate: msg.NextBillingDate,
		ReferralCode:    msg.ReferralCode,
		DashboardURL:    msg.DashboardURL,
		MagicLink:       msg.MagicLink,
	}
}

// FormatINR formats whole rupees with Indian digit grouping: 2999 becomes
// "₹2,999" and 150000 becomes "₹1,50,000".
func FormatINR(rupees int) string {
	sign := ""
	if rupees < 0 {
		sign = "-"
		rupees = -rupees
	}
	s := strconv.Itoa(rupees)
	if len(s) <= 3 {
		return sign + "₹" + s
	}

	head, tail := s[:len(s)-3], s[len(s)-3:]
	var out []byte
	for i, c := range []byte(head) {
		if i > 0 && (len(head)-i)%2 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	return sign + "₹" + string(out) + "," + tail
}
