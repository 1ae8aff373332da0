// Scopium - GitHub repository chat server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/scopium-app/scopium/internal/answer"
	"github.com/scopium-app/scopium/internal/api"
	"github.com/scopium-app/scopium/internal/chat"
	"github.com/scopium-app/scopium/internal/chatws"
	"github.com/scopium-app/scopium/internal/config"
	"github.com/scopium-app/scopium/internal/github"
	"github.com/scopium-app/scopium/internal/githubauth"
	"github.com/scopium-app/scopium/internal/identity"
	"github.com/scopium-app/scopium/internal/middleware"
	"github.com/scopium-app/scopium/internal/notify"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Key problems surface at boot, not on the first upstream call.
	key, err := githubauth.LoadPrivateKey(cfg.PrivateKeyPath)
	if err != nil {
		slog.Error("Failed to load GitHub App private key", "error", err)
		os.Exit(1)
	}
	issuer := githubauth.New(cfg.AppClientID, key, cfg.AssertionTTL)
	slog.Info("GitHub App credential issuer ready", "client_id", cfg.AppClientID, "assertion_ttl", cfg.AssertionTTL)

	gateway := github.NewClient(cfg.GitHubAPIURL, issuer, cfg.UpstreamTimeout)

	var answerer answer.Answerer = answer.Disabled{}
	if cfg.Answer.APIKey != "" {
		answerer = answer.NewLLM(cfg.Answer.APIKey, cfg.Answer.Model, cfg.Answer.BaseURL, cfg.Answer.Timeout)
		slog.Info("Chat answers enabled", "model", cfg.Answer.Model, "timeout", cfg.Answer.Timeout)
	} else {
		slog.Info("Chat answers disabled (ANSWER_API_KEY not set)")
	}

	hub := chatws.NewHub()

	var notifier chat.Notifier
	if cfg.SelectNotifyURL != "" {
		notifier = notify.Webhook(cfg.SelectNotifyURL, cfg.UpstreamTimeout)
		slog.Info("Selection notifier enabled", "url", cfg.SelectNotifyURL)
	}

	sessions := chat.NewSessions(func(sessionID string) *chat.Controller {
		ctrl := chat.NewController(chat.NewStore(), answerer, logger)
		ctrl.SetObserver(func(ev chat.Event) {
			hub.Broadcast(sessionID, ev)
		})
		if notifier != nil {
			ctrl.SetNotifier(notifier)
		}
		return ctrl
	})

	apiHandler := api.NewHandler(gateway, answerer, sessions)
	wsHandler := chatws.NewHandler(hub, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	corsOrigins := []string{"*"}
	if !cfg.IsDevelopment() && cfg.FrontendURL != "" {
		corsOrigins = []string{cfg.FrontendURL}
	}
	r.Use(middleware.CORS(corsOrigins))
	r.Use(identity.Middleware(cfg.IsDevelopment()))

	apiHandler.RegisterRoutes(r)

	// WebSocket endpoint for pushed assistant replies.
	r.Get("/ws/chat", wsHandler.ServeHTTP)

	// Create server.
	// WebSocket connections are long-lived, so no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	// Let in-flight sends append their replies before exit.
	sessions.Wait()

	slog.Info("Server stopped successfully")
}
