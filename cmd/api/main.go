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

	httpSwagger "github.com/swaggo/http-swagger"

	_ "loved-api/docs" // This is for Swagger
	"loved-api/internal/auth"
	"loved-api/internal/cache"
	"loved-api/internal/config"
	"loved-api/internal/content"
	"loved-api/internal/database"
	"loved-api/internal/handlers"
	"loved-api/internal/logger"
	"loved-api/internal/middleware"
	"loved-api/internal/models"
	"loved-api/internal/osu"
	"loved-api/internal/repository"
	"loved-api/internal/scheduler"
	"loved-api/internal/service"
	"loved-api/internal/vault"
	"loved-api/migrations"
)

// @title Loved API
// @version 1.0
// @description Backend API for curating beatmapsets into voting rounds

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	if err := run(); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup structured logger
	logger.Setup(logger.Config{
		Level: cfg.Log.Level,
	})

	slog.Info("Starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"env", cfg.App.Env,
		"log_level", cfg.Log.Level,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}()

	slog.Info("Database connection established")

	// Run database migrations
	migrateCtx, cancel := getContext(2 * time.Minute)
	err = database.NewMigrationExecutor(db.DB).RunMigrations(migrateCtx, migrations.FS)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database migrations completed")

	// Load the osu! client secret
	osuSecret := cfg.Osu.ClientSecret
	if cfg.Vault.Enabled {
		vaultClient, err := vault.NewClient(&vault.Config{
			Address: cfg.Vault.Address,
			Token:   cfg.Vault.Token,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize vault client: %w", err)
		}

		secretCtx, cancel := getContext(10 * time.Second)
		osuSecret, err = vaultClient.GetString(secretCtx, cfg.Vault.SecretPath, "client_secret")
		cancel()
		if err != nil {
			return fmt.Errorf("failed to load osu! client secret: %w", err)
		}
		slog.Info("osu! client secret loaded from Vault", "vault_addr", cfg.Vault.Address)
	}

	// Cache invalidation is optional
	var invalidator cache.Invalidator = cache.Noop{}
	var redisInvalidator *cache.RedisInvalidator
	if len(cfg.Redis.Addrs) > 0 {
		redisInvalidator, err = cache.NewRedisInvalidator(ctx, cache.Config{
			Addrs:     cfg.Redis.Addrs,
			Username:  cfg.Redis.Username,
			Password:  cfg.Redis.Password,
			KeyPrefix: cfg.Redis.KeyPrefix,
			Timeout:   cfg.Redis.Timeout,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisInvalidator.Close()
		invalidator = redisInvalidator
		slog.Info("Redis cache invalidation enabled", "addrs", cfg.Redis.Addrs)
	} else {
		slog.Warn("Redis is not configured - cache invalidation is disabled")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.DB)
	roleRepo := repository.NewRoleRepository(db.DB)
	auditRepo := repository.NewAuditRepository(db.DB)
	beatmapsetRepo := repository.NewBeatmapsetRepository(db.DB)
	consentRepo := repository.NewConsentRepository(db.DB)
	reviewRepo := repository.NewReviewRepository(db.DB)
	submissionRepo := repository.NewSubmissionRepository(db.DB)
	roundRepo := repository.NewRoundRepository(db.DB)
	nominationRepo := repository.NewNominationRepository(db.DB)

	// Initialize services
	authService, err := auth.NewService(&cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to initialize auth service: %w", err)
	}

	osuClient := osu.NewClient(osu.Config{
		BaseURL:      cfg.Osu.BaseURL,
		TokenURL:     cfg.Osu.TokenURL,
		ClientID:     cfg.Osu.ClientID,
		ClientSecret: osuSecret,
		Timeout:      cfg.Osu.Timeout,
	})
	resolver := content.NewResolver(db.DB, osuClient)

	auditService := service.NewAuditService(auditRepo, userRepo)
	consentService := service.NewConsentService(db.DB, consentRepo, beatmapsetRepo, auditService, resolver, invalidator)
	reviewService := service.NewReviewService(db.DB, reviewRepo, submissionRepo, auditService, resolver, invalidator)
	nominationService := service.NewNominationService(db.DB, nominationRepo, roundRepo, beatmapsetRepo, userRepo, auditService, resolver)
	roundService := service.NewRoundService(db.DB, roundRepo, nominationService, auditService, cfg.Round.DefaultVotingThreshold)

	// Initialize background refresh
	if cfg.Refresh.Enabled {
		worker := scheduler.NewRefreshWorker(nominationRepo, resolver, cfg.Refresh.RateInterval, cfg.Refresh.QueueSize)
		go worker.Run(ctx)

		sched := scheduler.NewScheduler(ctx)
		if err := sched.Schedule(cfg.Refresh.Cron, "beatmapset_refresh", worker.EnqueueIncompleteRounds); err != nil {
			return fmt.Errorf("failed to schedule beatmapset refresh: %w", err)
		}
		defer sched.Stop()

		slog.Info("Beatmapset refresh enabled",
			"cron", cfg.Refresh.Cron,
			"rate_interval", cfg.Refresh.RateInterval)
	}

	// Initialize middleware
	authMw := middleware.NewAuthMiddleware(authService, roleRepo)
	corsMw := middleware.NewCORSMiddleware(&cfg.CORS)
	rateLimiter := middleware.NewRateLimiter(ctx, &cfg.RateLimit)

	// Initialize handlers
	roundHandler := handlers.NewRoundHandler(roundService, nominationService)
	nominationHandler := handlers.NewNominationHandler(nominationService)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	consentHandler := handlers.NewConsentHandler(consentService)
	auditHandler := handlers.NewAuditHandler(auditService)

	// Setup router
	mux := http.NewServeMux()
	protected := func(h http.HandlerFunc) http.Handler {
		return authMw.Authenticate(h)
	}

	// Rounds
	mux.HandleFunc("GET /api/v1/rounds", roundHandler.ListRounds)
	mux.Handle("POST /api/v1/rounds", protected(roundHandler.CreateRound))
	mux.HandleFunc("GET /api/v1/rounds/{id}", roundHandler.GetRound)
	mux.Handle("PATCH /api/v1/rounds/{id}", protected(roundHandler.UpdateRound))
	mux.Handle("PUT /api/v1/rounds/{id}/lock", protected(roundHandler.LockNominations))

	// Nominations
	mux.Handle("POST /api/v1/nominations", protected(nominationHandler.CreateNomination))
	mux.Handle("PUT /api/v1/nominations/order", protected(nominationHandler.ReorderNominations))
	mux.HandleFunc("GET /api/v1/nominations/{id}", nominationHandler.GetNomination)
	mux.Handle("DELETE /api/v1/nominations/{id}", protected(nominationHandler.DeleteNomination))
	mux.Handle("PUT /api/v1/nominations/{id}/description", protected(nominationHandler.EditDescription))
	mux.Handle("PUT /api/v1/nominations/{id}/metadata", protected(nominationHandler.EditMetadata))
	mux.Handle("PUT /api/v1/nominations/{id}/moderation", protected(nominationHandler.EditModeration))
	mux.Handle("PUT /api/v1/nominations/{id}/nominators", protected(nominationHandler.SetNominators))
	mux.Handle("PUT /api/v1/nominations/{id}/assignees", protected(nominationHandler.SetAssignees))
	mux.Handle("PUT /api/v1/nominations/{id}/excluded-beatmaps", protected(nominationHandler.SetExcludedBeatmaps))

	// Reviews
	mux.HandleFunc("GET /api/v1/reviews", reviewHandler.ListReviews)
	mux.Handle("POST /api/v1/reviews", protected(reviewHandler.SubmitReview))
	mux.Handle("POST /api/v1/reviews/many", protected(reviewHandler.SubmitReviewMany))
	mux.Handle("DELETE /api/v1/reviews/{id}", protected(reviewHandler.DeleteReview))

	// Mapper consents
	mux.HandleFunc("GET /api/v1/consents", consentHandler.ListConsents)
	mux.Handle("PUT /api/v1/consents/{userId}", protected(consentHandler.SetConsent))

	// Audit logs are visible to staff only
	mux.Handle("GET /api/v1/logs",
		authMw.Authenticate(
			middleware.RequireAnyRole(models.RoleCaptain, models.RoleMetadata, models.RoleModerator, models.RoleNews)(
				http.HandlerFunc(auditHandler.ListAuditLogs),
			),
		),
	)

	// Health check endpoint
	var redisHealth healthCheck
	if redisInvalidator != nil {
		redisHealth = redisInvalidator.Health
	}
	mux.HandleFunc("GET /health", healthHandler(cfg.App.Version, db.HealthCheck, redisHealth))

	// Swagger documentation
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	// Apply global middleware
	handler := middleware.RequestID(
		middleware.Logging(
			middleware.SecurityHeaders(cfg.App.Env)(
				corsMw.Handler(
					rateLimiter.Limit(mux),
				),
			),
		),
	)

	// Create server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.TimeoutRead,
		WriteTimeout: cfg.Server.TimeoutWrite,
		IdleTimeout:  cfg.Server.TimeoutIdle,
	}

	// Start server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal to gracefully shut down the server
	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Server shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := getContext(30 * time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server stopped")
	return nil
}
