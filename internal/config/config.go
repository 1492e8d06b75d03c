// Package config defines the configuration structure for the ZapNest payment
// service. Configuration is loaded once at process initialization and is
// immutable thereafter; components receive it by injection.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> *_FILE secret pointers (Lowest)
//
// Integration credentials are optional. A missing credential disables the
// feature that needs it (payments, persistence, email) instead of failing
// startup; only malformed values fail fast.
package config

import (
	"time"

	"zapnest/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type used
// throughout configuration to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"zapnest-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	// Domain Configurations
	Server        ServerConfig
	Database      DatabaseConfig
	Razorpay      RazorpayConfig
	Email         EmailConfig
	AWS           AWSConfig
	Security      SecurityConfig
	Observability ObservabilityConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server and public URL configuration.
type ServerConfig struct {
	Port              string        `envconfig:"PORT" default:"8080"`
	DashboardURL      string        `envconfig:"DASHBOARD_URL" default:"https://zapneststore.in/member/" validate:"url"`
	ReadHeaderTimeout time.Duration `envconfig:"HTTP_READ_HEADER_TIMEOUT" default:"5s"`
	WriteTimeout      time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout   time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
	MaxBodyBytes      int64         `envconfig:"HTTP_MAX_BODY_BYTES" default:"1048576"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
// An empty URL disables persistence.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"omitempty,url"`

	// Tuning Parameters
	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"5"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"0"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// Enabled reports whether a database URL is configured.
func (c DatabaseConfig) Enabled() bool { return c.URL.IsSet() }

// RazorpayConfig holds payment gateway credentials.
type RazorpayConfig struct {
	KeyID         string        `envconfig:"RAZORPAY_KEY_ID"`
	KeySecret     SecretString  `envconfig:"RAZORPAY_KEY_SECRET"`
	WebhookSecret SecretString  `envconfig:"RAZORPAY_WEBHOOK_SECRET"`
	BaseURL       string        `envconfig:"RAZORPAY_BASE_URL" default:"https://api.razorpay.com" validate:"url"`
	Timeout       time.Duration `envconfig:"RAZORPAY_TIMEOUT" default:"10s"`
}

// OrdersEnabled reports whether both API credentials are configured.
func (c RazorpayConfig) OrdersEnabled() bool {
	return c.KeyID != "" && c.KeySecret.IsSet()
}

// EmailConfig holds email delivery provider credentials.
type EmailConfig struct {
	ResendAPIKey SecretString  `envconfig:"RESEND_API_KEY"`
	FromAddress  string        `envconfig:"EMAIL_FROM_ADDRESS" default:"ZapNest <hello@zapneststore.in>"`
	BaseURL      string        `envconfig:"RESEND_BASE_URL" default:"https://api.resend.com" validate:"url"`
	Timeout      time.Duration `envconfig:"RESEND_TIMEOUT" default:"10s"`
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"ap-south-1"`

	// EmailQueueURL switches notification dispatch to queued mode when set.
	EmailQueueURL string `envconfig:"EMAIL_QUEUE_URL" validate:"omitempty,url"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// SecurityConfig holds CORS settings.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"ZapNest"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"false"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrSecretResolution indicates a failure reading a *_FILE secret pointer.
	ErrSecretResolution ConfigErrorType = "SECRET_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
