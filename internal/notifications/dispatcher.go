package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"zapnest/internal/external"
	"zapnest/internal/telemetry"
	"zapnest/internal/types"
)

// DispatchResult is the outcome of one dispatch. Attempted is false when the
// dispatch was skipped (no backend configured); Err is set only for attempted
// dispatches that failed.
type DispatchResult struct {
	Attempted bool
	Succeeded bool
	MessageID string
	Err       error
}

// Dispatcher hands an email to a delivery backend. Dispatch never panics and
// never returns an error directly; callers inspect the result.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg types.EmailMessage) DispatchResult
}

// resultLabel maps a dispatch result to the metric Result dimension.
func resultLabel(res DispatchResult) string {
	switch {
	case !res.Attempted:
		return types.ResultSkipped
	case res.Succeeded:
		return types.ResultSuccess
	default:
		return types.ResultFailure
	}
}

// ---------------------------------------------------------------------------
// Direct (render + Resend)
// ---------------------------------------------------------------------------

// DirectDispatcher renders the message in-process and sends it through the
// email provider.
type DirectDispatcher struct {
	renderer *Renderer
	sender   external.EmailSender
	from     string
	recorder telemetry.Recorder
	logger   *slog.Logger
}

// NewDirectDispatcher creates a DirectDispatcher. A nil recorder disables
// metrics.
func NewDirectDispatcher(renderer *Renderer, sender external.EmailSender, from string, recorder telemetry.Recorder, logger *slog.Logger) *DirectDispatcher {
	if recorder == nil {
		recorder = telemetry.NopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectDispatcher{renderer: renderer, sender: sender, from: from, recorder: recorder, logger: logger}
}

// Dispatch renders and sends msg. The message id doubles as the provider
// idempotency key so a redelivered queue message is not sent twice.
func (d *DirectDispatcher) Dispatch(ctx context.Context, msg types.EmailMessage) DispatchResult {
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}
	res := d.send(ctx, msg)
	d.recorder.RecordEmailDispatch(ctx, msg.Template, resultLabel(res))

	if res.Err != nil {
		d.recorder.RecordExternalFailure(ctx, "resend")
		d.logger.WarnContext(ctx, "email dispatch failed",
			"template", string(msg.Template),
			"to", RedactEmail(msg.To),
			"message_id", msg.MessageID,
			"error", res.Err.Error(),
		)
		return res
	}
	d.logger.InfoContext(ctx, "email sent",
		"template", string(msg.Template),
		"to", RedactEmail(msg.To),
		"provider_message_id", res.MessageID,
	)
	return res
}

func (d *DirectDispatcher) send(ctx context.Context, msg types.EmailMessage) DispatchResult {
	rendered, err := d.renderer.Render(msg)
	if err != nil {
		return DispatchResult{Attempted: true, Err: err}
	}

	providerID, err := d.sender.Send(ctx, external.Email{
		From:           d.from,
		To:             msg.To,
		Subject:        rendered.Subject,
		HTML:           rendered.BodyHTML,
		Text:           rendered.BodyText,
		IdempotencyKey: msg.MessageID,
	})
	if err != nil {
		return DispatchResult{Attempted: true, Err: err}
	}
	return DispatchResult{Attempted: true, Succeeded: true, MessageID: providerID}
}

// ---------------------------------------------------------------------------
// Queued (SQS -> email worker)
// ---------------------------------------------------------------------------

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// QueueDispatcher publishes EmailMessages to the email queue. Rendering and
// delivery happen in cmd/email-worker.
type QueueDispatcher struct {
	client   SQSSender
	queueURL string
	recorder telemetry.Recorder
	logger   *slog.Logger
}

// NewQueueDispatcher creates a QueueDispatcher targeting queueURL.
func NewQueueDispatcher(client SQSSender, queueURL string, recorder telemetry.Recorder, logger *slog.Logger) *QueueDispatcher {
	if recorder == nil {
		recorder = telemetry.NopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueDispatcher{client: client, queueURL: queueURL, recorder: recorder, logger: logger}
}

// Dispatch serializes msg and sends it to the queue. Success means the
// message was enqueued, not delivered.
func (q *QueueDispatcher) Dispatch(ctx context.Context, msg types.EmailMessage) DispatchResult {
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}
	res := q.publish(ctx, msg)
	q.recorder.RecordEmailDispatch(ctx, msg.Template, resultLabel(res))

	if res.Err != nil {
		q.logger.WarnContext(ctx, "email enqueue failed",
			"template", string(msg.Template),
			"message_id", msg.MessageID,
			"error", res.Err.Error(),
		)
		return res
	}
	q.logger.InfoContext(ctx, "email message published",
		"template", string(msg.Template),
		"message_id", msg.MessageID,
		"sqs_message_id", res.MessageID,
	)
	return res
}

func (q *QueueDispatcher) publish(ctx context.Context, msg types.EmailMessage) DispatchResult {
	body, err := json.Marshal(msg)
	if err != nil {
		return DispatchResult{Attempted: true, Err: fmt.Errorf("email queue: failed to marshal message: %w", err)}
	}

	out, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"template": {DataType: aws.String("String"), StringValue: aws.String(string(msg.Template))},
		},
	})
	if err != nil {
		return DispatchResult{
			Attempted: true,
			Err:       types.NewAppError(types.ErrCodeUpstreamQueue, "failed to enqueue email", err),
		}
	}
	return DispatchResult{Attempted: true, Succeeded: true, MessageID: aws.ToString(out.MessageId)}
}

// ---------------------------------------------------------------------------
// Disabled
// ---------------------------------------------------------------------------

// DisabledDispatcher skips every dispatch. Used when neither an email API
// key nor a queue is configured.
type DisabledDispatcher struct {
	Logger *slog.Logger
}

// Dispatch reports a skipped dispatch.
func (d DisabledDispatcher) Dispatch(ctx context.Context, msg types.EmailMessage) DispatchResult {
	if d.Logger != nil {
		d.Logger.InfoContext(ctx, "email dispatch skipped: no backend configured",
			"template", string(msg.Template),
		)
	}
	return DispatchResult{}
}

var (
	_ Dispatcher = (*DirectDispatcher)(nil)
	_ Dispatcher = (*QueueDispatcher)(nil)
	_ Dispatcher = DisabledDispatcher{}
)
