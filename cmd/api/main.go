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

	"github.com/joho/godotenv"
	"github.com/robonav/server/internal/auth"
	"github.com/robonav/server/internal/config"
	"github.com/robonav/server/internal/db"
	"github.com/robonav/server/internal/fleet"
	httphandler "github.com/robonav/server/internal/http"
	"github.com/robonav/server/internal/http/handlers"
	"github.com/robonav/server/internal/logging"
	"github.com/robonav/server/internal/middleware"
	"github.com/robonav/server/internal/notify"
	"github.com/robonav/server/internal/repo"
)

const (
	// open routes: 30 requests per IP per 10 minutes
	openRouteWindow = 10 * time.Minute
	openRouteLimit  = 30
	shutdownTimeout = 10 * time.Second
)

func main() {
	// Load .env from CWD (env vars override)
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Writer: os.Stderr})
	if err != nil {
		slog.Error("failed to configure logging", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open database connection
	pool := db.DefaultPoolOptions()
	database, err := db.Open(ctx, cfg.DatabaseURL, pool, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	// Run migrations
	if err := db.Migrate(database); err != nil {
		return err
	}
	logger.Info("migrations applied")

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		return err
	}

	// Initialize repositories
	userRepo := repo.NewUserRepo(database)
	confirmationRepo := repo.NewConfirmationRepo(database)

	// Initialize auth services
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.SessionTTL)
	authService := auth.NewAuthService(
		auth.NewCredentialStore(userRepo, auth.NewPasswordHasher(0)),
		auth.NewConfirmationLedger(confirmationRepo),
		jwtService,
		notifier,
		auth.ServiceOptions{
			PublicBaseURL: cfg.PublicBaseURL,
			StoreTimeout:  cfg.StoreTimeout,
			Logger:        logger,
		},
	)

	// Lookups never outnumber pooled connections
	concurrency := min(cfg.FleetConcurrency, pool.MaxOpenConns)
	fleetService := fleet.NewService(fleet.Repos{
		Robots:       repo.NewRobotRepo(database),
		Locations:    repo.NewLocationRepo(database),
		Tasks:        repo.NewTaskRepo(database),
		Instructions: repo.NewInstructionRepo(database),
		Callbacks:    repo.NewCallbackRepo(database),
	}, fleet.Options{
		StoreTimeout: cfg.StoreTimeout,
		Concurrency:  concurrency,
		Logger:       logger,
	})

	// Create router
	router := httphandler.NewRouter(httphandler.Handlers{
		Auth:   handlers.NewAuthHandler(authService, logger),
		Fleet:  handlers.NewFleetHandler(fleetService, logger),
		Health: handlers.NewHealthHandler(database, logger),
	}, jwtService, middleware.NewRateLimiter(ctx, openRouteWindow, openRouteLimit), logger)

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "notifier", cfg.Notifier)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server exited")
	return nil
}

func newNotifier(cfg *config.Config, logger *slog.Logger) (notify.Notifier, error) {
	if cfg.Notifier == config.NotifierLog {
		logger.Warn("emails are logged, not sent")
		return notify.NewLogNotifier(logger), nil
	}
	return notify.NewSMTPNotifier(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})
}
