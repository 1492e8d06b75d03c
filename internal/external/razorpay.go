package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"zapnest/internal/types"
)

// razorpayAPIBase is the default Razorpay API base URL.
const razorpayAPIBase = "https://api.razorpay.com"

// RazorpayClientConfig holds the configuration for creating a RazorpayClient.
type RazorpayClientConfig struct {
	KeyID     string
	KeySecret types.SecretString
	BaseURL   string // Override for testing; defaults to razorpayAPIBase
	Logger    *slog.Logger
}

// RazorpayClient implements OrderCreator over the Razorpay REST API using
// HTTP basic auth (key id / key secret).
type RazorpayClient struct {
	base      *BaseClient
	keyID     string
	keySecret types.SecretString
	baseURL   string
	logger    *slog.Logger
}

// NewRazorpayClient creates a RazorpayClient. Requests are never retried: a
// retried order creation would leave an orphan order on the gateway.
func NewRazorpayClient(httpClient *http.Client, cfg RazorpayClientConfig) *RazorpayClient {
	base := NewBaseClient(httpClient, "razorpay", NoRetries(), userAgent)
	return NewRazorpayClientWithBase(base, cfg)
}

// NewRazorpayClientWithBase creates a RazorpayClient with a pre-configured
// BaseClient.
func NewRazorpayClientWithBase(base *BaseClient, cfg RazorpayClientConfig) *RazorpayClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = razorpayAPIBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RazorpayClient{
		base:      base,
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		logger:    logger,
	}
}

// KeyID returns the public key id the checkout widget is initialised with.
func (c *RazorpayClient) KeyID() string { return c.keyID }

// CreateOrder calls POST /v1/orders.
//
// Error mapping:
//   - 4xx -> upstream_payment_gateway_unavailable carrying the gateway's description
//   - 429/5xx/transport -> mapped by BaseClient
func (c *RazorpayClient) CreateOrder(ctx context.Context, in OrderRequest) (*Order, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal order request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create order request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret.Unmask())

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, wrapUpstreamError("razorpay create order", types.ErrCodeUpstreamGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp)
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamGateway, "failed to decode razorpay order", err)
	}
	if order.ID == "" {
		return nil, types.NewAppError(types.ErrCodeUpstreamGateway, "razorpay returned an order without an id", nil)
	}

	c.logger.InfoContext(ctx, "razorpay order created",
		"order_id", order.ID,
		"amount_paise", order.Amount,
		"receipt", order.Receipt,
	)
	return &order, nil
}

// razorpayErrorResponse is the JSON error body returned by Razorpay.
type razorpayErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (c *RazorpayClient) handleErrorResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var rzErr razorpayErrorResponse
	msg := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &rzErr); err == nil && rzErr.Error.Description != "" {
		msg = rzErr.Error.Description
	}

	return types.NewAppErrorWithDetails(
		types.ErrCodeUpstreamGateway,
		fmt.Sprintf("razorpay create order: status %d: %s", resp.StatusCode, msg),
		nil,
		map[string]any{"gateway_code": rzErr.Error.Code, "status": resp.StatusCode},
	)
}

// wrapUpstreamError keeps AppErrors from BaseClient and tags anything else
// with the provider-specific code.
func wrapUpstreamError(operation string, code types.ErrorCode, err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return types.NewAppError(code, fmt.Sprintf("%s: %v", operation, err), err)
}

var _ OrderCreator = (*RazorpayClient)(nil)
