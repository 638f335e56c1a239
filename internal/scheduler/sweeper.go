package scheduler

import (
	"context"
	"time"

	"gigportal_backend/platform/logger"
)

// Sweeper periodically enqueues the recurring maintenance jobs: the overdue
// invoice sweep and the notification outbox drain. It only produces tasks;
// all actual work happens in the worker.
type Sweeper struct {
	client   *Client
	interval time.Duration
	log      *logger.Logger
}

func NewSweeper(client *Client, interval time.Duration, log *logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{client: client, interval: interval, log: log}
}

func (s *Sweeper) Run(ctx context.Context) {
	if s == nil || s.client == nil {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.client.EnqueueOverdueSweep(ctx, 200); err != nil {
				s.log.Error("failed to enqueue overdue sweep", "error", err.Error())
			}
			if err := s.client.EnqueueOutboxDispatch(ctx, 100); err != nil {
				s.log.Error("failed to enqueue outbox dispatch", "error", err.Error())
			}
		}
	}
}
