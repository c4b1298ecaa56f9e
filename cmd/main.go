package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/onwards-ai/xboard-payments/infra/config"
	"github.com/onwards-ai/xboard-payments/infra/logger"
	"github.com/onwards-ai/xboard-payments/infra/metrics"
	"github.com/onwards-ai/xboard-payments/infra/middle"
	"github.com/onwards-ai/xboard-payments/infra/opensearch"
	"github.com/onwards-ai/xboard-payments/infra/response"
	"github.com/onwards-ai/xboard-payments/provider"
	"github.com/onwards-ai/xboard-payments/router"
	v1 "github.com/onwards-ai/xboard-payments/router/v1"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func main() {
	// Load Env; a missing .env is fine when the environment is set directly
	envErr := godotenv.Load(".env")

	cfg := config.GetAppConfig()

	var openSearchLogger *opensearch.Logger
	if cfg.EnableLogging {
		names := make([]string, 0, len(provider.Names()))
		for _, n := range provider.Names() {
			names = append(names, string(n))
		}
		osClient, err := opensearch.NewClient(cfg, names...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize OpenSearch client, continuing without it: %v\n", err)
		} else {
			openSearchLogger = opensearch.NewLogger(osClient)
		}
	}

	logger.InitGlobalLogger(openSearchLogger, cfg)
	defer func() { _ = logger.GetGlobalLogger().Sync() }()

	if envErr != nil {
		logger.Debug("no .env file loaded: " + envErr.Error())
	}

	shutdownTracing := setupTracing(cfg)
	defer shutdownTracing()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	serviceOpts := []provider.ServiceOption{
		provider.WithMetrics(metrics.New(reg)),
		provider.WithValidator(config.App().Validator),
	}
	if openSearchLogger != nil {
		serviceOpts = append(serviceOpts, provider.WithPaymentLogger(provider.NewOpenSearchPaymentLogger(openSearchLogger)))
	}
	paymentService := provider.NewPaymentService(serviceOpts...)

	// Provider configuration: SQLite first, environment overrides
	storage, err := config.NewSQLiteStorage(cfg.ConfigDBPath)
	if err != nil {
		logger.Warn("SQLite config storage unavailable, configs are kept in memory: " + err.Error())
		storage = nil
	} else {
		defer storage.Close()
	}
	providerConfig := config.NewProviderConfig(storage)
	if err := providerConfig.LoadFromStorage(); err != nil {
		logger.Error("failed to load stored provider configs", err)
	}
	v1.LoadConfiguredProviders(paymentService, providerConfig, cfg.ProviderAllowlist)

	if err := middle.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Fatal("invalid TRUSTED_PROXIES", err)
	}

	rateLimiter := middle.NewRateLimiter(cfg.RateLimitPerMin, cfg.RateLimitBurst)
	defer rateLimiter.Stop()

	// Chi Define Routes
	r := chi.NewRouter()

	r.Use(middle.PanicRecoveryMiddleware())
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middle.SecurityHeadersMiddleware())
	r.Use(middle.RequestValidationMiddleware())
	r.Use(middle.RequestLoggingMiddleware())

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "Retry-After"},
		MaxAge:         300, // Preflight cache time (second)
	}))

	deps := router.Dependencies{
		PaymentService: paymentService,
		ProviderConfig: providerConfig,
		RateLimiter:    rateLimiter,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		APIKey:         cfg.APIKey,
		AdminIPs:       cfg.AdminIPAllowlist,
	}
	if openSearchLogger != nil {
		deps.AuditLog = openSearchLogger
	}
	router.Routes(r, deps)

	// Not Found
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotFound, "Not Found", nil)
	})

	// Create a context that listens for interrupt and terminate signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", err)
		}
	}()

	logger.Info("API is running on " + cfg.Port)

	// Block until a signal is received
	<-ctx.Done()

	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", err)
	}
}

// setupTracing installs a stdout span exporter when tracing is enabled
func setupTracing(cfg *config.AppConfig) func() {
	if !cfg.EnableTracing {
		return func() {}
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		logger.Error("failed to create trace exporter", err)
		return func() {}
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	logger.Info("tracing enabled")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("failed to flush traces", err)
		}
	}
}
