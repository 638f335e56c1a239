package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gigportal_backend/internal/billing"
	"gigportal_backend/internal/email"
	"gigportal_backend/internal/notification"
	"gigportal_backend/internal/payments"
	"gigportal_backend/internal/projects"
	"gigportal_backend/internal/scheduler"
	"gigportal_backend/internal/wallet"
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
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	// Worker-side billing wiring (no HTTP handlers required).
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
	} else {
		log.Warn("email delivery disabled; outbox dispatch will fail until a sender is configured")
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()
	billingModule.Service().SetRetryScheduler(client)

	sweepInterval := getDurationEnv("SWEEP_INTERVAL", time.Minute)
	sweeper := scheduler.NewSweeper(client, sweepInterval, log)
	go sweeper.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, billingModule.Service(), notificationModule.Service(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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

	return errors.New(name + ": " + lastErr.Error())
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
