// Package main is the entrypoint for the Email Worker Lambda function.
//
// The worker consumes EmailMessages published by the API when EMAIL_QUEUE_URL
// is set, renders them and sends them through Resend. Each invocation receives
// a batch of SQS messages.
//
// Handler flow, per message:
//
//  1. Unmarshal the EmailMessage. Malformed bodies are ACKed and logged.
//  2. Drop messages with an unknown template or no recipient.
//  3. Render and send. The message id is the Resend idempotency key, so a
//     redelivered message is not sent twice.
//  4. Transient failures are reported in batchItemFailures for SQS to retry;
//     a 4xx rejection from Resend (other than 429) is permanent and ACKed.
//
// With APP_ENV=local the worker reads one SQS event as JSON from stdin instead
// of starting the Lambda runtime.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"zapnest/internal/config"
	"zapnest/internal/external"
	"zapnest/internal/notifications"
	"zapnest/internal/security"
	"zapnest/internal/telemetry"
	"zapnest/internal/types"
)

// errPermanent marks a message that will never succeed on redelivery.
var errPermanent = errors.New("permanent delivery failure")

// Handler holds the dependencies for the email worker Lambda handler.
type Handler struct {
	dispatcher notifications.Dispatcher
	logger     *slog.Logger
}

// Handle processes an SQS event. Lambda SQS integration uses partial batch
// responses: messages that fail transiently are returned in batchItemFailures
// so SQS retries only those.
func (h *Handler) Handle(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	response := events.SQSEventResponse{}

	for _, record := range sqsEvent.Records {
		err := h.processMessage(ctx, record)
		switch {
		case err == nil:
		case errors.Is(err, errPermanent):
			h.logger.ErrorContext(ctx, "dropping undeliverable email message",
				"message_id", record.MessageId,
				"error", err.Error(),
			)
		default:
			h.logger.WarnContext(ctx, "email message will be retried",
				"message_id", record.MessageId,
				"error", err.Error(),
			)
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId},
			)
		}
	}

	return response, nil
}

func (h *Handler) processMessage(ctx context.Context, record events.SQSMessage) error {
	var msg types.EmailMessage
	if err := json.Unmarshal([]byte(record.Body), &msg); err != nil {
		return fmt.Errorf("%w: unmarshal email message: %v", errPermanent, err)
	}
	if !msg.Template.Valid() {
		return fmt.Errorf("%w: unknown template %q", errPermanent, msg.Template)
	}
	if msg.To == "" {
		return fmt.Errorf("%w: message has no recipient", errPermanent)
	}
	if msg.MessageID == "" {
		msg.MessageID = record.MessageId
	}

	res := h.dispatcher.Dispatch(ctx, msg)
	if res.Succeeded || !res.Attempted {
		return nil
	}
	if isRejected(res.Err) {
		return fmt.Errorf("%w: %v", errPermanent, res.Err)
	}
	return res.Err
}

// isRejected reports whether the provider refused the email outright. Only
// 429 among the 4xx statuses is worth retrying.
func isRejected(err error) bool {
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		return false
	}
	status, ok := appErr.Details["status"].(int)
	return ok && status >= 400 && status < 500 && status != http.StatusTooManyRequests
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("Email Worker Lambda initializing (cold start)")

	if err := run(logger); err != nil {
		logger.Error("email worker failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig(config.NewFileProvider())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if !cfg.Email.ResendAPIKey.IsSet() {
		return errors.New("RESEND_API_KEY is required by the email worker")
	}

	var recorder telemetry.Recorder = telemetry.NopRecorder{}
	if cfg.Observability.EnableMetrics {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
		if err != nil {
			return fmt.Errorf("loading AWS SDK config: %w", err)
		}
		cw := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
		recorder = telemetry.NewCloudWatchRecorder(cw, cfg.Observability.MetricNamespace, logger)
	}

	handler, err := newHandler(cfg, recorder, logger)
	if err != nil {
		return err
	}

	if cfg.Environment == "local" {
		return runLocal(ctx, handler, os.Stdin, logger)
	}

	lambda.Start(handler.Handle)
	return nil
}

// newHandler builds a Handler backed by the renderer and a retrying Resend
// client.
func newHandler(cfg *config.Config, recorder telemetry.Recorder, logger *slog.Logger) (*Handler, error) {
	renderer, err := notifications.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("loading email templates: %w", err)
	}
	sender := external.NewResendClient(security.NewOutboundClient(security.OutboundConfig{
		Timeout:      cfg.Email.Timeout,
		AllowPrivate: cfg.Environment == "local",
	}), external.ResendClientConfig{
		APIKey:      cfg.Email.ResendAPIKey,
		BaseURL:     cfg.Email.BaseURL,
		RetryPolicy: external.WorkerRetryPolicy(),
		Logger:      logger,
	})
	return &Handler{
		dispatcher: notifications.NewDirectDispatcher(renderer, sender, cfg.Email.FromAddress, recorder, logger),
		logger:     logger,
	}, nil
}

// runLocal processes a single SQS event read from in.
func runLocal(ctx context.Context, h *Handler, in io.Reader, logger *slog.Logger) error {
	logger.Info("APP_ENV=local: reading SQS event from stdin")
	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	if len(raw) == 0 {
		return errors.New("no input received on stdin")
	}

	var event events.SQSEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return fmt.Errorf("parsing stdin as SQS event: %w", err)
	}

	response, err := h.Handle(ctx, event)
	if err != nil {
		return err
	}
	logger.Info("local run complete",
		"records", len(event.Records),
		"failures", len(response.BatchItemFailures),
	)
	return nil
}
