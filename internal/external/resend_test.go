package external

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"zapnest/internal/types"
)

func newTestResendClient(t *testing.T, serverURL string, policy RetryPolicy) *ResendClient {
	t.Helper()
	return NewResendClientWithBase(newTestClient(t, policy), ResendClientConfig{
		APIKey:  types.SecretString("re_test_key"),
		BaseURL: serverURL,
	})
}

func TestResendSend_Success(t *testing.T) {
	var (
		payload resendPayload
		auth    string
		idemKey string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/emails" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		idemKey = r.Header.Get("Idempotency-Key")
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"id":"49a3999c-0ce1-4ea6-ab68-afcd6dc2e794"}`))
	}))
	defer server.Close()

	client := newTestResendClient(t, server.URL, NoRetries())
	id, err := client.Send(context.Background(), Email{
		From:           "ZapNest <hello@zapneststore.in>",
		To:             "asha@zapnest.in",
		Subject:        "Payment confirmed",
		HTML:           "<p>hi</p>",
		Text:           "hi",
		IdempotencyKey: "msg-1",
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if id != "49a3999c-0ce1-4ea6-ab68-afcd6dc2e794" {
		t.Errorf("id = %q", id)
	}
	if auth != "Bearer re_test_key" {
		t.Errorf("Authorization = %q", auth)
	}
	if idemKey != "msg-1" {
		t.Errorf("Idempotency-Key = %q", idemKey)
	}
	if len(payload.To) != 1 || payload.To[0] != "asha@zapnest.in" || payload.Subject != "Payment confirmed" {
		t.Errorf("unexpected payload %+v", payload)
	}
}

func TestResendSend_ValidationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"Invalid to field"}`))
	}))
	defer server.Close()

	_, err := newTestResendClient(t, server.URL, NoRetries()).Send(context.Background(), Email{To: "bad"})
	if !types.IsCode(err, types.ErrCodeUpstreamEmailProvider) {
		t.Fatalf("expected upstream email provider error, got %v", err)
	}
}

func TestResendSend_WorkerPolicyRetries5xx(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"id":"msg_ok"}`))
	}))
	defer server.Close()

	id, err := newTestResendClient(t, server.URL, testPolicy(2)).Send(context.Background(), Email{To: "asha@zapnest.in"})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if id != "msg_ok" || calls.Load() != 2 {
		t.Errorf("id=%q calls=%d", id, calls.Load())
	}
}

func TestResendSend_NoRetriesReportsFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestResendClient(t, server.URL, NoRetries()).Send(context.Background(), Email{To: "asha@zapnest.in"})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", calls.Load())
	}
}
