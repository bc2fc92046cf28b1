package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xshopai/chat-gateway/internal/catalog"
	"github.com/xshopai/chat-gateway/internal/chat"
	"github.com/xshopai/chat-gateway/internal/config"
	"github.com/xshopai/chat-gateway/internal/httpapi"
	"github.com/xshopai/chat-gateway/internal/invoke"
	"github.com/xshopai/chat-gateway/internal/llm"
	"github.com/xshopai/chat-gateway/internal/observability"
	"github.com/xshopai/chat-gateway/internal/orders"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("deployment", cfg.AzureOpenAIDeployment).
		Bool("model_configured", cfg.ModelConfigured()).
		Str("product_service", cfg.ProductServiceAppID).
		Str("order_service", cfg.OrderServiceAppID).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Chat Gateway Service starting")

	if !cfg.ModelConfigured() {
		logger.Warn().Msg("Azure OpenAI credentials missing, chat requests will receive a fallback response")
	}

	// Wire the service: sidecar invocation client, downstream clients, model
	// gateway, tool dispatcher, and the orchestrator on top
	inv := invoke.New(cfg)
	catalogClient := catalog.NewClient(inv, cfg)
	orderClient := orders.NewClient(inv, cfg)
	gateway := llm.NewGateway(cfg)
	dispatcher := chat.NewDispatcher(catalogClient, orderClient)
	orchestrator := chat.NewOrchestrator(gateway, dispatcher)

	mux := http.NewServeMux()

	// Chat API routes
	httpapi.NewHandler(cfg, orchestrator).Register(mux)

	// Health check endpoint
	mux.HandleFunc("/health", observability.HealthCheckHandler(cfg.ServiceName, cfg.ServiceVersion))

	// Readiness endpoint - create health check functions here to avoid import cycles
	modelCheck := func(ctx context.Context) (bool, error) {
		if !gateway.Configured() {
			return false, fmt.Errorf("azure openai credentials not configured")
		}
		return true, nil
	}

	catalogCheck := func(ctx context.Context) (bool, error) {
		if _, err := catalogClient.Categories(ctx); err != nil {
			return false, err
		}
		return true, nil
	}

	mux.HandleFunc("/ready", observability.ReadinessHandler(cfg.ServiceName, cfg.ServiceVersion, map[string]observability.HealthCheckFunc{
		"model":           modelCheck,
		"product_service": catalogCheck,
	}))

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	// Create HTTP server with timeouts. The write timeout leaves room for a
	// full tool loop: up to five model calls plus downstream invocations.
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("http://localhost:%s/api/chat/message", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}
