package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskInvoiceRetry = "billing.invoice.retry"

const TaskInvoiceOverdueSweep = "billing.invoice.overdue_sweep"

const TaskNotificationOutboxDue = "notification.outbox.due"

type InvoiceRetryPayload struct {
	InvoiceNumber string `json:"invoiceNumber"`
	// Manual marks an operator-initiated retry, which bypasses the
	// automatic retry limit. Scheduled retries always set it false.
	Manual bool `json:"manual"`
}

type OverdueSweepPayload struct {
	Limit int `json:"limit"`
}

type OutboxDuePayload struct {
	Limit int `json:"limit"`
}

func NewInvoiceRetryTask(payload InvoiceRetryPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceRetry, data), nil
}

func ParseInvoiceRetryPayload(task *asynq.Task) (InvoiceRetryPayload, error) {
	var payload InvoiceRetryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return InvoiceRetryPayload{}, err
	}
	return payload, nil
}

func NewOverdueSweepTask(payload OverdueSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceOverdueSweep, data), nil
}

func ParseOverdueSweepPayload(task *asynq.Task) (OverdueSweepPayload, error) {
	var payload OverdueSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return OverdueSweepPayload{}, err
	}
	return payload, nil
}

func NewOutboxDueTask(payload OutboxDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationOutboxDue, data), nil
}

func ParseOutboxDuePayload(task *asynq.Task) (OutboxDuePayload, error) {
	var payload OutboxDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return OutboxDuePayload{}, err
	}
	return payload, nil
}
