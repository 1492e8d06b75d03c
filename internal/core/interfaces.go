package core

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
)

// MetricsCollector records API telemetry. Implementations record request
// latency and count metrics to CloudWatch or equivalent backends.
type MetricsCollector interface {
	// RecordRequest records one completed request. endpoint is the matched
	// route pattern, not the raw path.
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// HealthProbe is a subsystem health check. Each probe represents a dependency
// (database, queue) that must be operational for the service to function.
type HealthProbe interface {
	// Name returns a human-readable identifier for the probe (e.g., "database").
	Name() string

	// Check should respect the context deadline and return an error if the
	// subsystem is unhealthy or unreachable.
	Check(ctx context.Context) error
}

// RouteRegistrar mounts a group of handlers under the /api prefix. Handler
// packages provide registrars so core does not import them.
type RouteRegistrar func(r chi.Router)
