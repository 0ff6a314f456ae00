// FinanceGURU - Financial Advisor Conversation Server
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

	"github.com/financeguru/advisor/internal/advisor"
	"github.com/financeguru/advisor/internal/api"
	"github.com/financeguru/advisor/internal/chat"
	"github.com/financeguru/advisor/internal/config"
	"github.com/financeguru/advisor/internal/connectivity"
	"github.com/financeguru/advisor/internal/middleware"
	"github.com/financeguru/advisor/internal/remote"
	"github.com/financeguru/advisor/internal/session"
	"github.com/financeguru/advisor/internal/store"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
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

	slog.Info("Starting server", "port", cfg.Port, "backend", cfg.BackendURL, "store", cfg.StoreDriver)

	// Initialize persistence. A store that cannot be opened degrades to
	// an in-memory session rather than stopping the process: the advisor
	// must keep answering even without durability.
	repo, err := store.New(store.Driver(cfg.StoreDriver), store.Options{
		DBPath:      cfg.DBPath,
		RedisAddr:   cfg.RedisAddr,
		RedisPrefix: cfg.RedisPrefix,
	})
	if err != nil {
		slog.Error("Failed to open session store, falling back to in-memory persistence", "error", err)
		repo = store.NewMemory()
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close session store", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Session store health check failed", "error", err)
	} else {
		slog.Info("Session store ready")
	}

	sessions := session.NewStore(repo)
	sess := sessions.Load(context.Background())
	slog.Info("Session loaded", "user_id", sess.UserID, "history_len", len(sess.History), "welcome_shown", sess.WelcomeShown)

	// Initialize services.
	backend := remote.NewClient(remote.Config{
		BaseURL:        cfg.BackendURL,
		RequestTimeout: cfg.ChatTimeout,
	})

	hub := chat.NewHub()

	monitor := connectivity.NewMonitor(backend, cfg.ProbeInterval, cfg.ProbeTimeout, func(s connectivity.State) {
		hub.Publish(chat.Event{Type: chat.EventStatus, Status: s.String()})
	})

	dispatcher := chat.NewDispatcher(sessions, sess, backend, monitor, advisor.New(), hub, cfg.ChatTimeout, cfg.HistoryWindow)

	// Initialize handlers.
	chatHandler := chat.NewHandler(dispatcher, monitor, hub)
	healthHandler := api.NewHealthHandler(repo, monitor)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS([]string{"*"}))

	healthHandler.RegisterHealth(r)
	chatHandler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout, the event stream holds connections open
		IdleTimeout:  120 * time.Second,
	}

	// Start the connectivity monitor: immediate probe, then periodic
	// re-probes until shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitor.Start(ctx)
	slog.Info("Initial backend probe settled", "state", monitor.State().String())

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

	slog.Info("Server stopped successfully")
}
