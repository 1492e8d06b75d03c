// Package telemetry publishes reconciliation and API metrics to CloudWatch.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"zapnest/internal/types"
)

// putTimeout bounds RecordRequest, which has no caller context.
const putTimeout = 2 * time.Second

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Recorder receives business outcomes from the payment flow and the email
// pipeline. Implementations must not fail the caller.
type Recorder interface {
	// RecordOutcome counts one reconciliation step (verify, webhook event,
	// ledger write) with its result.
	RecordOutcome(ctx context.Context, operation, result string)

	// RecordEmailDispatch counts one email dispatch attempt.
	RecordEmailDispatch(ctx context.Context, template types.EmailTemplate, result string)

	// RecordExternalFailure counts a failed call to a vendor API.
	RecordExternalFailure(ctx context.Context, provider string)
}

// CloudWatchRecorder implements Recorder and core.MetricsCollector.
//
// Metrics emitted:
//   - ReconciliationEvent: Dims {Operation, Result}
//   - EmailDispatch: Dims {Template, Result}
//   - ExternalAPIFailure: Dims {Provider}
//   - APIRequests / APILatency: Dims {Endpoint, Status}
type CloudWatchRecorder struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// NewCloudWatchRecorder creates a recorder publishing to namespace. An empty
// namespace falls back to types.MetricNamespace.
func NewCloudWatchRecorder(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchRecorder {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchRecorder{client: client, namespace: namespace, logger: logger}
}

// RecordOutcome emits ReconciliationEvent{Operation, Result} = 1.
func (r *CloudWatchRecorder) RecordOutcome(ctx context.Context, operation, result string) {
	r.put(ctx, "reconciliation",
		countDatum(types.MetricReconciliationEvent, dim(types.DimOperation, operation), dim(types.DimResult, result)),
	)
}

// RecordEmailDispatch emits EmailDispatch{Template, Result} = 1.
func (r *CloudWatchRecorder) RecordEmailDispatch(ctx context.Context, template types.EmailTemplate, result string) {
	r.put(ctx, "email dispatch",
		countDatum(types.MetricEmailDispatch, dim(types.DimTemplate, string(template)), dim(types.DimResult, result)),
	)
}

// RecordExternalFailure emits ExternalAPIFailure{Provider} = 1.
func (r *CloudWatchRecorder) RecordExternalFailure(ctx context.Context, provider string) {
	r.put(ctx, "external failure",
		countDatum(types.MetricExternalAPIFailure, dim(types.DimProvider, provider)),
	)
}

// RecordRequest implements core.MetricsCollector. Count and latency go out in
// one PutMetricData call.
func (r *CloudWatchRecorder) RecordRequest(method, endpoint, status string, duration time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), putTimeout)
	defer cancel()

	dims := []cwtypes.Dimension{dim(types.DimEndpoint, method+" "+endpoint), dim(types.DimStatus, status)}
	r.put(ctx, "api request",
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricAPIRequests),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: dims,
		},
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricAPILatency),
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Dimensions: dims,
		},
	)
}

func (r *CloudWatchRecorder) put(ctx context.Context, what string, data ...cwtypes.MetricDatum) {
	_, err := r.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(r.namespace),
		MetricData: data,
	})
	if err != nil {
		r.logger.WarnContext(ctx, "failed to record metric",
			"metric", what,
			"error", err.Error(),
		)
	}
}

func countDatum(name string, dims ...cwtypes.Dimension) cwtypes.MetricDatum {
	return cwtypes.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: dims,
	}
}

func dim(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}

// NopRecorder discards everything. Used when metrics are disabled.
type NopRecorder struct{}

func (NopRecorder) RecordOutcome(context.Context, string, string)                    {}
func (NopRecorder) RecordEmailDispatch(context.Context, types.EmailTemplate, string) {}
func (NopRecorder) RecordExternalFailure(context.Context, string)                    {}

var (
	_ Recorder = (*CloudWatchRecorder)(nil)
	_ Recorder = NopRecorder{}
)
