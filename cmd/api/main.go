// Package main is the entry point for the ZapNest payment API.
//
// It loads configuration, builds the stores, gateway and email clients, mounts
// the handlers on the core chassis and serves them. Locally it runs a plain
// HTTP server; inside AWS Lambda it serves API Gateway HTTP API events.
//
// Integrations are optional. Without DATABASE_URL the flow answers callers
// but skips persistence; without Razorpay credentials order creation and
// verification report a misconfiguration; without RESEND_API_KEY or
// EMAIL_QUEUE_URL email is skipped.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"golang.org/x/sync/errgroup"

	"zapnest/internal/api/handlers"
	"zapnest/internal/billing"
	"zapnest/internal/config"
	"zapnest/internal/core"
	"zapnest/internal/db"
	"zapnest/internal/external"
	"zapnest/internal/notifications"
	"zapnest/internal/payments"
	"zapnest/internal/security"
	"zapnest/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig(config.NewFileProvider())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("zapnest API starting",
		"environment", cfg.Environment,
		"build", cfg.Build.String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := buildServer(ctx, cfg, logger, newAWSLoader(cfg))
	if err != nil {
		return err
	}
	defer func() { _ = srv.Shutdown(context.Background()) }()

	if isLambdaEnvironment() {
		lambda.StartWithOptions(newLambdaHandler(srv.Handler()).Invoke, lambda.WithContext(ctx))
		return nil
	}
	return runHTTPServer(ctx, srv, cfg, logger)
}

// awsLoader loads the shared AWS config on first use so deployments without
// queue or metrics never touch AWS credentials.
type awsLoader func(ctx context.Context) (aws.Config, error)

func newAWSLoader(cfg *config.Config) awsLoader {
	var once sync.Once
	var (
		loaded aws.Config
		err    error
	)
	return func(ctx context.Context) (aws.Config, error) {
		once.Do(func() {
			loaded, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
		})
		return loaded, err
	}
}

// buildServer wires every dependency and mounts the routes.
func buildServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, loadAWS awsLoader) (*core.Server, error) {
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}

	recorder, err := newRecorder(ctx, cfg, logger, loadAWS)
	if err != nil {
		return nil, err
	}
	if cw, ok := recorder.(*telemetry.CloudWatchRecorder); ok {
		srv.Metrics = cw
	}

	stores := payments.Stores{}
	if cfg.Database.Enabled() {
		pool, err := db.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		stores = payments.Stores{
			Subscribers: db.NewSubscriberRepository(pool),
			Payments:    db.NewPaymentRepository(pool),
			Waitlist:    db.NewWaitlistRepository(pool),
		}
		srv.HealthProbes = append(srv.HealthProbes, db.NewHealthProbe(pool))
		srv.Closers = append(srv.Closers, pool.Close)
	} else {
		logger.Warn("DATABASE_URL not set: subscriber, ledger and waitlist writes are disabled")
	}

	dispatcher, err := newDispatcher(ctx, cfg, recorder, logger, loadAWS)
	if err != nil {
		return nil, err
	}

	plans := billing.NewStaticPlanRegistry()

	var orders external.OrderCreator
	if cfg.Razorpay.OrdersEnabled() {
		orders = external.NewRazorpayClient(outboundClient(cfg, cfg.Razorpay.Timeout), external.RazorpayClientConfig{
			KeyID:     cfg.Razorpay.KeyID,
			KeySecret: cfg.Razorpay.KeySecret,
			BaseURL:   cfg.Razorpay.BaseURL,
			Logger:    logger,
		})
	} else {
		logger.Warn("Razorpay credentials not set: order creation is disabled")
	}

	paymentSvc := payments.NewService(payments.Config{
		KeySecret:     cfg.Razorpay.KeySecret,
		WebhookSecret: cfg.Razorpay.WebhookSecret,
		DashboardURL:  cfg.Server.DashboardURL,
	}, stores, plans, dispatcher, recorder, logger)
	orderSvc := payments.NewOrderService(orders, cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, plans)
	waitlistSvc := payments.NewWaitlistService(stores.Waitlist, plans, dispatcher, recorder, cfg.Server.DashboardURL, logger)
	signInSvc := payments.NewSignInService(dispatcher, recorder, cfg.Server.DashboardURL, logger)

	srv.RouteRegistrars = append(srv.RouteRegistrars,
		handlers.NewPaymentsHandler(paymentSvc, orderSvc, srv.Validator, logger).RegisterRoutes,
		handlers.NewRazorpayWebhookHandler(paymentSvc, logger).RegisterRoutes,
		handlers.NewWaitlistHandler(waitlistSvc, srv.Validator, logger).RegisterRoutes,
		handlers.NewSignInHandler(signInSvc, srv.Validator, logger).RegisterRoutes,
	)
	srv.MountRoutes()
	return srv, nil
}

func newRecorder(ctx context.Context, cfg *config.Config, logger *slog.Logger, loadAWS awsLoader) (telemetry.Recorder, error) {
	if !cfg.Observability.EnableMetrics {
		return telemetry.NopRecorder{}, nil
	}
	awsCfg, err := loadAWS(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for metrics: %w", err)
	}
	client := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
	})
	return telemetry.NewCloudWatchRecorder(client, cfg.Observability.MetricNamespace, logger), nil
}

// newDispatcher prefers the queue, then direct Resend delivery, then none.
func newDispatcher(ctx context.Context, cfg *config.Config, recorder telemetry.Recorder, logger *slog.Logger, loadAWS awsLoader) (notifications.Dispatcher, error) {
	switch {
	case cfg.AWS.EmailQueueURL != "":
		awsCfg, err := loadAWS(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading AWS config for email queue: %w", err)
		}
		client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
		logger.Info("email dispatch: queued", "queue_url", cfg.AWS.EmailQueueURL)
		return notifications.NewQueueDispatcher(client, cfg.AWS.EmailQueueURL, recorder, logger), nil

	case cfg.Email.ResendAPIKey.IsSet():
		renderer, err := notifications.NewRenderer()
		if err != nil {
			return nil, fmt.Errorf("loading email templates: %w", err)
		}
		sender := external.NewResendClient(outboundClient(cfg, cfg.Email.Timeout), external.ResendClientConfig{
			APIKey:      cfg.Email.ResendAPIKey,
			BaseURL:     cfg.Email.BaseURL,
			RetryPolicy: external.NoRetries(),
			Logger:      logger,
		})
		logger.Info("email dispatch: direct")
		return notifications.NewDirectDispatcher(renderer, sender, cfg.Email.FromAddress, recorder, logger), nil

	default:
		logger.Warn("neither EMAIL_QUEUE_URL nor RESEND_API_KEY set: email is disabled")
		return notifications.DisabledDispatcher{Logger: logger}, nil
	}
}

// outboundClient guards vendor calls against internal addresses outside local
// development.
func outboundClient(cfg *config.Config, timeout time.Duration) *http.Client {
	return security.NewOutboundClient(security.OutboundConfig{
		Timeout:      timeout,
		AllowPrivate: cfg.Environment == "local",
	})
}

// isLambdaEnvironment reports whether the process runs inside AWS Lambda.
func isLambdaEnvironment() bool {
	_, hasRuntimeAPI := os.LookupEnv("AWS_LAMBDA_RUNTIME_API")
	_, hasServerPort := os.LookupEnv("_LAMBDA_SERVER_PORT")
	return hasRuntimeAPI || hasServerPort
}

// runHTTPServer serves until ctx is cancelled, then shuts down gracefully.
func runHTTPServer(ctx context.Context, srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("initiating graceful shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a JSON slog.Logger for the given level name.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
