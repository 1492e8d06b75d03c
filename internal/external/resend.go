package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"zapnest/internal/types"
)

// resendAPIBase is the default Resend API base URL.
const resendAPIBase = "https://api.resend.com"

// ResendClientConfig holds the configuration for creating a ResendClient.
type ResendClientConfig struct {
	APIKey      types.SecretString
	BaseURL     string // Override for testing; defaults to resendAPIBase
	RetryPolicy RetryPolicy
	Logger      *slog.Logger
}

// ResendClient implements EmailSender against POST /emails.
type ResendClient struct {
	base    *BaseClient
	apiKey  types.SecretString
	baseURL string
	logger  *slog.Logger
}

// NewResendClient creates a ResendClient. The API process passes NoRetries;
// the email worker passes WorkerRetryPolicy.
func NewResendClient(httpClient *http.Client, cfg ResendClientConfig) *ResendClient {
	base := NewBaseClient(httpClient, "resend", cfg.RetryPolicy, userAgent)
	return NewResendClientWithBase(base, cfg)
}

// NewResendClientWithBase creates a ResendClient with a pre-configured
// BaseClient.
func NewResendClientWithBase(base *BaseClient, cfg ResendClientConfig) *ResendClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = resendAPIBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ResendClient{
		base:    base,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

type resendPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

type resendSendResponse struct {
	ID string `json:"id"`
}

type resendErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

// Send transmits the email and returns the Resend message id.
//
// Error mapping:
//   - 4xx -> upstream_email_provider_unavailable with the provider message
//   - 429/5xx/transport -> mapped by BaseClient
func (c *ResendClient) Send(ctx context.Context, email Email) (string, error) {
	body, err := json.Marshal(resendPayload{
		From:    email.From,
		To:      []string{email.To},
		Subject: email.Subject,
		HTML:    email.HTML,
		Text:    email.Text,
	})
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal email payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create email request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey.Unmask())
	if email.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", email.IdempotencyKey)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return "", wrapUpstreamError("resend send", types.ErrCodeUpstreamEmailProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", c.handleErrorResponse(resp)
	}

	var out resendSendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", types.NewAppError(types.ErrCodeUpstreamEmailProvider, "failed to decode resend response", err)
	}
	return out.ID, nil
}

func (c *ResendClient) handleErrorResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	msg := strings.TrimSpace(string(raw))
	var rsErr resendErrorResponse
	if err := json.Unmarshal(raw, &rsErr); err == nil && rsErr.Message != "" {
		msg = rsErr.Message
	}

	return types.NewAppErrorWithDetails(
		types.ErrCodeUpstreamEmailProvider,
		fmt.Sprintf("resend send: status %d: %s", resp.StatusCode, msg),
		nil,
		map[string]any{"provider_error": rsErr.Name, "status": resp.StatusCode},
	)
}

var _ EmailSender = (*ResendClient)(nil)
