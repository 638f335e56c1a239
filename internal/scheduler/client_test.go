package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
)

type testSchedulerConfig struct {
	redisURL string
}

func (c testSchedulerConfig) GetRedisURL() string       { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string { return "billing" }
func (c testSchedulerConfig) GetAsynqConcurrency() int  { return 1 }

func newTestClient(t *testing.T) (*Client, *asynq.Inspector) {
	t.Helper()

	srv := miniredis.RunT(t)
	cfg := testSchedulerConfig{redisURL: "redis://" + srv.Addr()}

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: srv.Addr()})
	t.Cleanup(func() { _ = inspector.Close() })
	return client, inspector
}

func TestScheduleInvoiceRetry(t *testing.T) {
	client, inspector := newTestClient(t)

	runAt := time.Now().Add(30 * time.Minute)
	if err := client.ScheduleInvoiceRetry(context.Background(), "INV-2026-000042", runAt); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	tasks, err := inspector.ListScheduledTasks("billing")
	if err != nil {
		t.Fatalf("list scheduled: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("scheduled tasks = %d, want 1", len(tasks))
	}
	if tasks[0].Type != TaskInvoiceRetry {
		t.Fatalf("task type = %s, want %s", tasks[0].Type, TaskInvoiceRetry)
	}

	payload, err := ParseInvoiceRetryPayload(asynq.NewTask(tasks[0].Type, tasks[0].Payload))
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if payload.InvoiceNumber != "INV-2026-000042" {
		t.Fatalf("invoice number = %s", payload.InvoiceNumber)
	}
	if payload.Manual {
		t.Fatal("scheduled retries must never be manual")
	}
}

func TestEnqueueMaintenanceTasks(t *testing.T) {
	client, inspector := newTestClient(t)
	ctx := context.Background()

	if err := client.EnqueueOverdueSweep(ctx, 200); err != nil {
		t.Fatalf("enqueue sweep: %v", err)
	}
	if err := client.EnqueueOutboxDispatch(ctx, 100); err != nil {
		t.Fatalf("enqueue outbox: %v", err)
	}

	tasks, err := inspector.ListPendingTasks("billing")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("pending tasks = %d, want 2", len(tasks))
	}

	types := map[string]bool{}
	for _, task := range tasks {
		types[task.Type] = true
	}
	if !types[TaskInvoiceOverdueSweep] || !types[TaskNotificationOutboxDue] {
		t.Fatalf("unexpected task types: %v", types)
	}
}
