package scheduler

import (
	"context"
	"fmt"

	"gigportal_backend/internal/billing/transport"
	"gigportal_backend/platform/config"
	"gigportal_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// InvoiceRetrier re-enters the payment path for a parked invoice.
// Implemented by the billing service.
type InvoiceRetrier interface {
	RetryInvoicePayment(ctx context.Context, invoiceNumber string, manual bool) (*transport.InvoiceResponse, error)
	MarkOverdueInvoices(ctx context.Context, limit int) (int, error)
}

// OutboxDispatcher drains the notification outbox. Implemented by the
// notification service.
type OutboxDispatcher interface {
	DispatchPending(ctx context.Context, limit int) (int, error)
}

// Worker consumes queued billing and notification jobs.
type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	billing  InvoiceRetrier
	dispatch OutboxDispatcher
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, billing InvoiceRetrier, dispatch OutboxDispatcher, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		billing:  billing,
		dispatch: dispatch,
		log:      log,
	}

	mux.HandleFunc(TaskInvoiceRetry, w.handleInvoiceRetry)
	mux.HandleFunc(TaskInvoiceOverdueSweep, w.handleOverdueSweep)
	mux.HandleFunc(TaskNotificationOutboxDue, w.handleOutboxDue)

	return w, nil
}

func (w *Worker) handleInvoiceRetry(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseInvoiceRetryPayload(task)
	if err != nil {
		return err
	}

	invoice, err := w.billing.RetryInvoicePayment(ctx, payload.InvoiceNumber, payload.Manual)
	if err != nil {
		// A conflict here means the invoice is already settled, cancelled,
		// or out of automatic retries; re-delivering the task cannot help.
		w.log.Warn("invoice retry not applicable",
			"invoice_number", payload.InvoiceNumber, "error", err.Error())
		return nil
	}

	w.log.Info("invoice retry processed",
		"invoice_number", payload.InvoiceNumber, "status", invoice.Status)
	return nil
}

func (w *Worker) handleOverdueSweep(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseOverdueSweepPayload(task)
	if err != nil {
		return err
	}
	if payload.Limit <= 0 {
		payload.Limit = 200
	}

	count, err := w.billing.MarkOverdueInvoices(ctx, payload.Limit)
	if err != nil {
		return err
	}
	if count > 0 {
		w.log.Info("overdue sweep completed", "marked", count)
	}
	return nil
}

func (w *Worker) handleOutboxDue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseOutboxDuePayload(task)
	if err != nil {
		return err
	}
	if payload.Limit <= 0 {
		payload.Limit = 100
	}

	sent, err := w.dispatch.DispatchPending(ctx, payload.Limit)
	if err != nil {
		return err
	}
	if sent > 0 {
		w.log.Info("notification outbox drained", "sent", sent)
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
