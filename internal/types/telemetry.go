package types

// Telemetry metric names for CloudWatch.
// All components MUST use these constants.
const (
	// Metric Names
	MetricReconciliationEvent = "ReconciliationEvent"
	MetricAPILatency          = "APILatency"
	MetricAPIRequests         = "APIRequests"
	MetricEmailDispatch       = "EmailDispatch"
	MetricExternalAPIFailure  = "ExternalAPIFailure"

	// Dimension Keys
	DimOperation = "Operation"
	DimResult    = "Result"
	DimEndpoint  = "Endpoint"
	DimStatus    = "Status"
	DimProvider  = "Provider"
	DimTemplate  = "Template"

	// Metric Namespace
	MetricNamespace = "ZapNest"
)

// Outcome values for the Result dimension.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
	ResultIgnored = "ignored"
)
