package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gigportal_backend/internal/billing"
	"gigportal_backend/internal/email"
	apphttp "gigportal_backend/internal/http"
	"gigportal_backend/internal/http/router"
	"gigportal_backend/internal/notification"
	"gigportal_backend/internal/payments"
	"gigportal_backend/internal/projects"
	"gigportal_backend/internal/scheduler"
	"gigportal_backend/internal/wallet"
	"gigportal_backend/migrations"
	"gigportal_backend/platform/config"
	"gigportal_backend/platform/db"
	"gigportal_backend/platform/events"
	"gigportal_backend/platform/logger"
	"gigportal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.Files(), ".")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules
	// ========================================================================

	projectsModule := projects.NewModule(pool, eventBus, val)
	walletModule := wallet.NewModule(pool, val, log)
	payer := payments.New(pool, log)

	billingModule := billing.NewModule(
		pool,
		projectsModule.Store(),
		walletModule.Service(),
		payer,
		cfg,
		eventBus,
		val,
		log,
	)

	notificationModule := notification.NewModule(pool, eventBus, log)
	if cfg.GetEmailEnabled() {
		sender := email.NewSMTPSender(
			cfg.GetSMTPHost(), cfg.GetSMTPPort(),
			cfg.GetSMTPUsername(), cfg.GetSMTPPassword(),
			cfg.GetEmailFromAddress(), cfg.GetEmailFromName(),
		)
		notificationModule.Service().SetEmailSender(sender)
		log.Info("email delivery enabled", "host", cfg.GetSMTPHost())
	} else {
		log.Warn("email delivery disabled; notifications stay queued in the outbox")
	}

	retryClient, closeRetryClient := initRetryScheduler(cfg, log)
	if closeRetryClient != nil {
		defer closeRetryClient()
	}
	if retryClient != nil {
		billingModule.Service().SetRetryScheduler(retryClient)
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:         cfg,
		Logger:         log,
		Health:         db.NewPoolAdapter(pool),
		EventBus:       eventBus,
		ServiceKeyHash: cfg.GetServiceAPIKeyHash(),
		Modules: []apphttp.Module{
			projectsModule,
			billingModule,
			walletModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initRetryScheduler(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; on-hold invoice retries disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return lastErr
}
