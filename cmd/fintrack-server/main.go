package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fintrack/internal/config"
	"fintrack/internal/domain"
	"fintrack/internal/handler"
	"fintrack/internal/messaging"
	"fintrack/internal/middleware"
	"fintrack/internal/notify"
	"fintrack/internal/observability"
	"fintrack/internal/ratelimit"
	"fintrack/internal/repository/postgres"
	"fintrack/internal/security"
	"fintrack/internal/service"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "json"
	}
	observability.InitLogger(logLevel, logFormat, "fintrack-server")

	slog.Info("starting fintrack server")

	connCtx, connCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer connCancel()

	db, err := config.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.PingContext(connCtx); err != nil {
		slog.Error("database ping failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("connected to postgresql")

	redisClient, err := config.NewRedisClient(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid redis configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	tokenStore := ratelimit.NewRedisStore(redisClient)
	if err := tokenStore.Ping(connCtx); err != nil {
		// Fail-open deployments tolerate a dead Redis at boot; fail-closed
		// ones would reject everything, so refuse to start.
		if !cfg.RateLimitFailOpen {
			slog.Error("redis ping failed and limiter is fail-closed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		slog.Warn("redis unreachable, limiter will use local fallback until it recovers",
			slog.String("error", err.Error()))
	} else {
		slog.Info("connected to redis")
	}

	rmqCtx, rmqCancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer rmqCancel()

	rmq, err := messaging.NewRabbitMQWithRetry(rmqCtx, cfg.RabbitMQURL)
	if err != nil {
		slog.Error("failed to connect to rabbitmq", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer rmq.Close()

	userRepo := postgres.NewUserRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)
	categoryRepo := postgres.NewCategoryRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	budgetRepo := postgres.NewBudgetRepository(db)
	insightRepo := postgres.NewInsightRepository(db)

	hub := notify.NewHub()

	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go func() {
		if err := hub.Run(hubCtx); err != nil && err != context.Canceled {
			slog.Error("hub error", slog.String("error", err.Error()))
		}
	}()
	slog.Info("notification hub started")

	authService := service.NewAuthService(userRepo, sessionRepo)
	ledgerService := service.NewLedgerService(transactionRepo, categoryRepo, budgetRepo, hub)
	insightService := service.NewInsightService(insightRepo, transactionRepo, categoryRepo, rmq)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resultConsumer := messaging.NewResultConsumer(rmq, hub, insightRepo)
	if err := resultConsumer.Start(ctx); err != nil {
		slog.Error("failed to start result consumer", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("result consumer started")

	go startSessionCleanup(ctx, sessionRepo)
	slog.Info("session cleanup task started")

	limiter := ratelimit.NewLimiter(
		tokenStore,
		ratelimit.NewFallback(ctx),
		ratelimit.DefaultPolicies(),
		cfg.RateLimitFailOpen,
	)
	csrfTokens := security.NewTokenManager(cfg.IsProduction())

	authHandler := handler.NewAuthHandler(authService, cfg.IsProduction())
	csrfHandler := handler.NewCSRFHandler(csrfTokens)
	categoryHandler := handler.NewCategoryHandler(ledgerService)
	transactionHandler := handler.NewTransactionHandler(ledgerService)
	budgetHandler := handler.NewBudgetHandler(ledgerService)
	trashHandler := handler.NewTrashHandler(ledgerService)
	insightHandler := handler.NewInsightHandler(insightService)
	notifyHandler := handler.NewNotifyHandler(hub, middleware.ParseOrigins(cfg.AllowedOrigins))

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.CORS(middleware.ParseOrigins(cfg.AllowedOrigins)))
	r.Use(middleware.Metrics())
	// Schema validation catches malformed payloads during development; the
	// config disables it in production and it degrades to a no-op when the
	// API document is missing.
	r.Use(middleware.OpenAPIValidator(middleware.DefaultOpenAPIValidatorConfig(cfg.Environment)))

	r.Get("/health", handler.Health)
	r.Get("/health/ready", handler.Ready(db, tokenStore, rmq, !cfg.RateLimitFailOpen))
	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})

	// The gate order inside every group is fixed: rate limit, then auth,
	// then CSRF, then the handler. Abusive traffic is shed before any
	// session lookup happens.
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(limiter, ratelimit.NamespaceAuth))
			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/login", authHandler.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(limiter, ratelimit.NamespaceRead))
			r.Get("/csrf-token", csrfHandler.Token)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(sessionRepo))

				r.Get("/auth/me", authHandler.Me)
				r.Get("/categories", categoryHandler.List)
				r.Get("/categories/{id}", categoryHandler.Get)
				r.Get("/transactions", transactionHandler.List)
				r.Get("/transactions/{id}", transactionHandler.Get)
				r.Get("/budgets", budgetHandler.List)
				r.Get("/budgets/{id}", budgetHandler.Get)
				r.Get("/budgets/{id}/status", budgetHandler.Status)
				r.Get("/insights", insightHandler.List)
				r.Get("/insights/{id}", insightHandler.Get)
				r.Get("/trash", trashHandler.List)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(limiter, ratelimit.NamespaceWrite))
			r.Use(middleware.Auth(sessionRepo))
			r.Use(middleware.CSRF(csrfTokens))

			r.Post("/auth/logout", authHandler.Logout)

			r.Post("/categories", categoryHandler.Create)
			r.Put("/categories/{id}", categoryHandler.Update)
			r.Delete("/categories/{id}", categoryHandler.Delete)

			r.Post("/transactions", transactionHandler.Create)
			r.Put("/transactions/{id}", transactionHandler.Update)
			r.Delete("/transactions/{id}", transactionHandler.Delete)

			r.Post("/budgets", budgetHandler.Create)
			r.Patch("/budgets/{id}", budgetHandler.Update)
			r.Delete("/budgets/{id}", budgetHandler.Delete)

			r.Post("/insights", insightHandler.Request)

			r.Post("/trash/transactions/{id}/restore", trashHandler.RestoreTransaction)
			r.Delete("/trash/transactions/{id}", trashHandler.PurgeTransaction)
			r.Post("/trash/categories/{id}/restore", trashHandler.RestoreCategory)
			r.Delete("/trash/categories/{id}", trashHandler.PurgeCategory)
		})
	})

	// The socket authenticates through the same session middleware; CSRF
	// does not apply to the upgrade, origin checking happens in the
	// upgrader instead.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(sessionRepo))
		r.Get("/ws/notifications", notifyHandler.HandleConnection)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("fintrack server listening", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", slog.String("error", err.Error()))
	}

	cancel()
	hubCancel()

	time.Sleep(100 * time.Millisecond)

	slog.Info("server stopped gracefully")
}

// startSessionCleanup runs a background task to delete expired sessions
func startSessionCleanup(ctx context.Context, repo domain.SessionRepository) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping session cleanup task")
			return
		case <-ticker.C:
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			count, err := repo.DeleteExpired(cleanupCtx)
			if err != nil {
				slog.Error("session cleanup failed", slog.String("error", err.Error()))
			} else {
				slog.Info("session cleanup completed",
					slog.Int64("sessions_deleted", count))
			}
			cancel()
		}
	}
}
