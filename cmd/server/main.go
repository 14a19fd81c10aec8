package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mentor-chat/internal/config"
	"mentor-chat/internal/conversation"
	"mentor-chat/internal/handlers"
	"mentor-chat/internal/logging"
	"mentor-chat/internal/middleware"
	"mentor-chat/internal/router"
	"mentor-chat/internal/services"
	"mentor-chat/internal/websocket"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	_, logCloser, err := logging.Init(cfg)
	if err != nil {
		slog.Warn("✗ Log file unavailable, logging to stdout only", "path", cfg.LogFile, "error", err)
	}
	defer logCloser.Close()

	slog.Info("🚀 Starting mentor chat backend...")
	slog.Info("✓ Environment variables loaded", "env", cfg.Env, "provider", cfg.RelayProvider)

	if err := cfg.Validate(); err != nil {
		slog.Error("✗ Configuration incomplete", "error", err)
	}

	// ──── Step 2: Initialize Relay Provider ────
	provider, configErr := newProvider(cfg)
	if closer, ok := provider.(interface{ Close() }); ok {
		defer closer.Close()
	}

	// ──── Step 3: Initialize Sessions ────
	estimator := conversation.NewEstimator(cfg.TokenEstimator)
	var wsHub *websocket.Hub
	store := conversation.NewStore(provider, conversation.Options{
		SystemPrompt: cfg.SystemPrompt,
		Budget:       cfg.HistoryTokenBudget,
		Estimator:    estimator,
	}, func(s conversation.Snapshot) { wsHub.Publish(s) })
	wsHub = websocket.NewHub(store)
	slog.Info("✓ Session store ready", "budget", cfg.HistoryTokenBudget, "estimator", cfg.TokenEstimator)

	// ──── Step 4: Start HTTP Server ────
	relayLimiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	defer relayLimiter.Stop()

	r := router.New(
		handlers.NewRelayHandler(provider, configErr),
		handlers.NewSessionHandler(store, wsHub),
		wsHub,
		relayLimiter,
		middleware.ParseOrigins(cfg.FrontendURL),
	)

	// WriteTimeout covers a full upstream round trip.
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RelayTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	idle := make(chan struct{})
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		slog.Info("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Shutdown incomplete", "error", err)
		}
		close(idle)
	}()

	slog.Info(fmt.Sprintf("✓ Mentor chat backend ready on http://localhost:%s", cfg.Port))
	slog.Info(fmt.Sprintf("  Relay: http://localhost:%s/api/v1/gemini", cfg.Port))
	slog.Info(fmt.Sprintf("  WS:    ws://localhost:%s/api/v1/sessions/{id}/ws", cfg.Port))

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
	<-idle
}

// newProvider builds the configured upstream provider. A missing secret does
// not stop the server: the relay keeps answering with the configuration error.
func newProvider(cfg *config.Config) (services.Provider, error) {
	provider, err := services.NewProvider(cfg)
	if err == nil {
		slog.Info("✓ Relay provider initialized", "provider", provider.Name())
		return provider, nil
	}

	var cfgErr *services.ConfigurationError
	if !errors.As(err, &cfgErr) {
		slog.Error("✗ Relay provider initialization failed", "error", err)
		os.Exit(1)
	}

	slog.Error("✗ Relay provider not configured; requests will fail", "error", cfgErr)
	name := cfg.RelayProvider
	if name == "" {
		name = config.ProviderGemini
	}
	return &services.MisconfiguredProvider{Provider: name, Err: cfgErr}, cfgErr
}
