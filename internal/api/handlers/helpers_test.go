package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"zapnest/internal/core"
	"zapnest/internal/notifications"
	"zapnest/internal/payments"
	"zapnest/internal/types"
)

const (
	testKeySecret     = types.SecretString("rzp_key_secret")
	testWebhookSecret = types.SecretString("rzp_webhook_secret")
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubDispatcher returns a fixed dispatch result.
type stubDispatcher struct {
	fail bool
	sent int
}

func (d *stubDispatcher) Dispatch(context.Context, types.EmailMessage) notifications.DispatchResult {
	d.sent++
	if d.fail {
		return notifications.DispatchResult{Attempted: true, Err: errors.New("resend unavailable")}
	}
	return notifications.DispatchResult{Attempted: true, Succeeded: true, MessageID: "em_1"}
}

func newTestPaymentService(mem *payments.MemoryStore, d notifications.Dispatcher) *payments.Service {
	return payments.NewService(payments.Config{
		KeySecret:     testKeySecret,
		WebhookSecret: testWebhookSecret,
		DashboardURL:  "https://zapneststore.in/member/",
	}, mem.Stores(), nil, d, nil, discardLogger())
}

// newRouter mounts registrars under /api the way core.Server does.
func newRouter(registrars ...core.RouteRegistrar) http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(api chi.Router) {
		for _, reg := range registrars {
			reg(api)
		}
	})
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, rec.Body.String())
	}
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp core.APIErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error response is not JSON: %v", err)
	}
	return resp.Error.Code
}
