package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"gigportal_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Client enqueues delayed billing jobs. It satisfies the billing service's
// RetryScheduler interface.
type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
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

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleInvoiceRetry enqueues an automatic retry of an on-hold invoice at
// runAt. The worker re-enters the same payment path as a manual trigger;
// idempotency comes from the payment guard, not the queue.
func (c *Client) ScheduleInvoiceRetry(ctx context.Context, invoiceNumber string, runAt time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewInvoiceRetryTask(InvoiceRetryPayload{InvoiceNumber: invoiceNumber})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.ProcessAt(runAt), asynq.Queue(c.queue))
	return err
}

// EnqueueOverdueSweep enqueues an immediate sweep of sent invoices past due.
func (c *Client) EnqueueOverdueSweep(ctx context.Context, limit int) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewOverdueSweepTask(OverdueSweepPayload{Limit: limit})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	return err
}

// EnqueueOutboxDispatch enqueues an immediate notification outbox drain.
func (c *Client) EnqueueOutboxDispatch(ctx context.Context, limit int) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewOutboxDueTask(OutboxDuePayload{Limit: limit})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
