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

	"github.com/medvox/voice-command-gateway/internal/config"
	"github.com/medvox/voice-command-gateway/internal/dispatch"
	"github.com/medvox/voice-command-gateway/internal/executor"
	"github.com/medvox/voice-command-gateway/internal/nlu"
	"github.com/medvox/voice-command-gateway/internal/observability"
	"github.com/medvox/voice-command-gateway/internal/resilience"
	"github.com/medvox/voice-command-gateway/internal/stt"
	"github.com/medvox/voice-command-gateway/internal/tts"
	"github.com/medvox/voice-command-gateway/internal/voicews"
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
		Str("language", cfg.Language).
		Str("capture_backend", cfg.CaptureBackend).
		Str("synthesis_backend", cfg.SynthesisBackend).
		Str("executor_addr", cfg.ExecutorAddr).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Voice Command Gateway starting")

	provider := cfg.Provider()
	retry := &resilience.RetryConfig{
		MaxAttempts:       cfg.RetryMaxAttempts,
		InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
		MaxBackoff:        2 * time.Second,
		BackoffMultiplier: 2.0,
	}

	// Pattern catalog
	catalog := nlu.DefaultCatalog()
	if cfg.CatalogFile != "" {
		if catalog, err = nlu.LoadCatalogFile(catalog, cfg.CatalogFile); err != nil {
			logger.Fatal().Err(err).Str("path", cfg.CatalogFile).Msg("Failed to load catalog file")
		}
		logger.Info().Str("path", cfg.CatalogFile).Msg("Catalog extension loaded")
	}
	resolver := nlu.NewResolver(catalog)

	// Speech recognition
	recognizer, err := stt.NewStreamRecognizer(cfg, newBreaker(cfg, "deepgram-live"))
	if err != nil {
		logger.Fatal().Err(err).Msg("No on-device recognition engine")
	}
	deps := voicews.Deps{
		Provider:    provider,
		Recognizer:  recognizer,
		Transcriber: stt.NewTranscriber(cfg, newBreaker(cfg, "transcription")),
		Retry:       retry,
		Resolver:    resolver,
	}
	logger.Info().
		Str("engine", recognizer.Name()).
		Bool("remote_transcription", deps.Transcriber != nil).
		Msg("Speech recognition configured")

	// Speech synthesis
	piper := tts.NewPiper(cfg.PiperEndpoint, cfg.PiperVoice)
	deps.LocalSynth = piper
	if cfg.CartesiaAPIKey != "" {
		deps.RemoteSynth = tts.NewCartesia(tts.CartesiaConfig{
			APIKey:     cfg.CartesiaAPIKey,
			URL:        cfg.CartesiaURL,
			VoiceID:    cfg.CartesiaVoiceID,
			ModelID:    cfg.CartesiaModelID,
			SampleRate: cfg.SampleRate,
		}, newBreaker(cfg, "cartesia"))
	}

	// Command executor
	exec, err := executor.NewClient(executor.Config{
		Addr:       cfg.ExecutorAddr,
		TLSEnabled: cfg.ExecutorTLSEnabled,
		Timeout:    time.Duration(cfg.ExecutorTimeoutMs) * time.Millisecond,
		Retry:      retry,
	}, newBreaker(cfg, "executor"))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create executor client")
	}
	defer exec.Close()
	deps.Dispatcher = dispatch.New(exec)

	voiceHandler := voicews.NewHandler(deps)

	// Create HTTP server
	mux := http.NewServeMux()
	mux.Handle("/voice", voiceHandler)
	mux.HandleFunc("/health", observability.HealthCheckHandler())
	mux.HandleFunc("/ready", observability.ReadinessHandler(3*time.Second,
		observability.HealthCheck{Name: "executor", Check: exec.Health},
		observability.HealthCheck{Name: "piper", Check: piper.Ping, Optional: deps.RemoteSynth != nil},
	))

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	// No write timeout: /voice connections are long-lived
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("ws://localhost:%s/voice", cfg.Port)).
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown does not track hijacked websocket connections
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := voiceHandler.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("Voice connections still open at shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}

// newBreaker creates a circuit breaker that reports its state as a metric
func newBreaker(cfg *config.Config, name string) *resilience.CircuitBreaker {
	cb := resilience.NewCircuitBreaker(name, cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second)
	cb.OnStateChange(func(name string, from, to resilience.CircuitState) {
		observability.UpdateCircuitBreakerState(name, int(to), to.String())
		logger := observability.Component("resilience")
		logger.Warn().
			Str("breaker", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("Circuit breaker state changed")
	})
	return cb
}
