package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"zapnest/internal/core"
)

// WebhookProcessor verifies and applies Razorpay webhook deliveries.
type WebhookProcessor interface {
	VerifyWebhook(ctx context.Context, rawBody []byte, signature string) error
	ProcessWebhook(ctx context.Context, rawBody []byte) (event string, err error)
}

type webhookAck struct {
	Received bool   `json:"received"`
	Event    string `json:"event,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RazorpayWebhookHandler receives gateway events. It is not behind any auth
// middleware; the signature header is the authentication.
type RazorpayWebhookHandler struct {
	processor WebhookProcessor
	logger    *slog.Logger
}

// NewRazorpayWebhookHandler creates a RazorpayWebhookHandler.
func NewRazorpayWebhookHandler(processor WebhookProcessor, logger *slog.Logger) *RazorpayWebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RazorpayWebhookHandler{processor: processor, logger: logger}
}

// RegisterRoutes mounts the webhook endpoint.
func (h *RazorpayWebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/webhook/razorpay", h.Handle)
}

// Handle verifies the signature over the raw body, then routes the event.
// Once verified, the gateway always receives 200 so it stops redelivering;
// processing failures are reported in the body only.
func (h *RazorpayWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	raw, err := core.ReadBody(w, r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.processor.VerifyWebhook(r.Context(), raw, r.Header.Get("X-Razorpay-Signature")); err != nil {
		core.Error(w, r, err)
		return
	}

	event, err := h.processor.ProcessWebhook(r.Context(), raw)
	if err != nil {
		core.JSON(w, r, http.StatusOK, webhookAck{Received: true, Error: "Processing error"})
		return
	}
	core.JSON(w, r, http.StatusOK, webhookAck{Received: true, Event: event})
}
