package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"zapnest/internal/config"
	"zapnest/internal/notifications"
	"zapnest/internal/telemetry"
	"zapnest/internal/types"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubDispatcher struct {
	result notifications.DispatchResult
	sent   []types.EmailMessage
}

func (s *stubDispatcher) Dispatch(_ context.Context, msg types.EmailMessage) notifications.DispatchResult {
	s.sent = append(s.sent, msg)
	return s.result
}

const confirmationBody = `{"message_id":"msg-1","template":"payment_confirmation","to":"asha@zapnest.in","tier":"core","tier_name":"Core","monthly_price":2999,"order_id":"order_1","payment_id":"pay_1","next_billing_date":"16 November 2026"}`

func sqsEvent(bodies ...string) events.SQSEvent {
	var ev events.SQSEvent
	for i, b := range bodies {
		ev.Records = append(ev.Records, events.SQSMessage{MessageId: string(rune('a' + i)), Body: b})
	}
	return ev
}

func TestHandle_Success(t *testing.T) {
	d := &stubDispatcher{result: notifications.DispatchResult{Attempted: true, Succeeded: true}}
	h := &Handler{dispatcher: d, logger: discard}

	resp, err := h.Handle(context.Background(), sqsEvent(confirmationBody))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(resp.BatchItemFailures) != 0 {
		t.Errorf("unexpected failures %v", resp.BatchItemFailures)
	}
	if len(d.sent) != 1 || d.sent[0].MessageID != "msg-1" || d.sent[0].Template != types.EmailTemplatePaymentConfirmation {
		t.Errorf("unexpected dispatch %+v", d.sent)
	}
}

func TestHandle_PermanentFailuresAreAcked(t *testing.T) {
	d := &stubDispatcher{result: notifications.DispatchResult{Attempted: true, Succeeded: true}}
	h := &Handler{dispatcher: d, logger: discard}

	resp, err := h.Handle(context.Background(), sqsEvent(
		`{not json`,
		`{"template":"password_reset","to":"asha@zapnest.in"}`,
		`{"template":"founder_welcome"}`,
	))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(resp.BatchItemFailures) != 0 {
		t.Errorf("permanent failures should be ACKed, got %v", resp.BatchItemFailures)
	}
	if len(d.sent) != 0 {
		t.Errorf("nothing should be dispatched, got %d", len(d.sent))
	}
}

func TestHandle_TransientFailureIsRetried(t *testing.T) {
	d := &stubDispatcher{result: notifications.DispatchResult{
		Attempted: true,
		Err:       types.NewAppError(types.ErrCodeUpstreamEmailProvider, "resend unavailable", errors.New("503")),
	}}
	h := &Handler{dispatcher: d, logger: discard}

	resp, _ := h.Handle(context.Background(), sqsEvent(confirmationBody))
	if len(resp.BatchItemFailures) != 1 || resp.BatchItemFailures[0].ItemIdentifier != "a" {
		t.Errorf("expected message a to be retried, got %v", resp.BatchItemFailures)
	}
}

func TestHandle_MissingMessageIDUsesSQSID(t *testing.T) {
	d := &stubDispatcher{result: notifications.DispatchResult{Attempted: true, Succeeded: true}}
	h := &Handler{dispatcher: d, logger: discard}

	_, _ = h.Handle(context.Background(), sqsEvent(`{"template":"founder_welcome","to":"asha@zapnest.in","tier":"elite"}`))
	if len(d.sent) != 1 || d.sent[0].MessageID != "a" {
		t.Errorf("expected SQS message id as idempotency key, got %+v", d.sent)
	}
}

func TestIsRejected(t *testing.T) {
	rejected := func(status int) error {
		return types.NewAppErrorWithDetails(types.ErrCodeUpstreamEmailProvider, "resend", nil, map[string]any{"status": status})
	}
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"422", rejected(http.StatusUnprocessableEntity), true},
		{"403", rejected(http.StatusForbidden), true},
		{"429", rejected(http.StatusTooManyRequests), false},
		{"500", rejected(http.StatusInternalServerError), false},
		{"no details", types.NewAppError(types.ErrCodeUpstreamEmailProvider, "timeout", nil), false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		if got := isRejected(tt.err); got != tt.want {
			t.Errorf("%s: isRejected = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func newResendServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Idempotency-Key") == "" {
			t.Error("missing Idempotency-Key")
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Environment: "local",
		Email: config.EmailConfig{
			ResendAPIKey: "re_test_key",
			FromAddress:  "ZapNest <hello@zapneststore.in>",
			BaseURL:      baseURL,
		},
	}
}

func TestNewHandler_SendsThroughResend(t *testing.T) {
	server, calls := newResendServer(t, http.StatusOK, `{"id":"re_msg_1"}`)

	h, err := newHandler(testConfig(server.URL), telemetry.NopRecorder{}, discard)
	if err != nil {
		t.Fatalf("newHandler: %v", err)
	}
	resp, _ := h.Handle(context.Background(), sqsEvent(confirmationBody))
	if len(resp.BatchItemFailures) != 0 {
		t.Errorf("unexpected failures %v", resp.BatchItemFailures)
	}
	if calls.Load() != 1 {
		t.Errorf("expected one Resend call, got %d", calls.Load())
	}
}

func TestNewHandler_ProviderRejectionIsAcked(t *testing.T) {
	server, calls := newResendServer(t, http.StatusUnprocessableEntity,
		`{"statusCode":422,"name":"validation_error","message":"Invalid to field"}`)

	h, err := newHandler(testConfig(server.URL), telemetry.NopRecorder{}, discard)
	if err != nil {
		t.Fatalf("newHandler: %v", err)
	}
	resp, _ := h.Handle(context.Background(), sqsEvent(confirmationBody))
	if len(resp.BatchItemFailures) != 0 {
		t.Errorf("a 422 should not be retried, got %v", resp.BatchItemFailures)
	}
	if calls.Load() != 1 {
		t.Errorf("expected one Resend call, got %d", calls.Load())
	}
}

func TestRunLocal(t *testing.T) {
	d := &stubDispatcher{result: notifications.DispatchResult{Attempted: true, Succeeded: true}}
	h := &Handler{dispatcher: d, logger: discard}

	in := `{"Records":[{"messageId":"m-1","body":` + quoteJSON(confirmationBody) + `}]}`
	if err := runLocal(context.Background(), h, strings.NewReader(in), discard); err != nil {
		t.Fatalf("runLocal: %v", err)
	}
	if len(d.sent) != 1 {
		t.Errorf("expected one dispatch, got %d", len(d.sent))
	}

	if err := runLocal(context.Background(), h, strings.NewReader(""), discard); err == nil {
		t.Error("expected an error for empty input")
	}
	if err := runLocal(context.Background(), h, strings.NewReader("nope"), discard); err == nil {
		t.Error("expected an error for malformed input")
	}
}

func quoteJSON(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
