// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"gigportal_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Project Lifecycle Events
// =============================================================================

// ProjectActivated is published when a commissioner's work request is matched
// to a freelancer and the project plus its tasks are created.
type ProjectActivated struct {
	BaseEvent
	ProjectID        uuid.UUID `json:"projectId"`
	CommissionerID   uuid.UUID `json:"commissionerId"`
	FreelancerID     uuid.UUID `json:"freelancerId"`
	InvoicingMethod  string    `json:"invoicingMethod"`
	TotalBudgetCents int64     `json:"totalBudgetCents"`
	TotalTasks       int       `json:"totalTasks"`
}

func (e ProjectActivated) EventName() string { return "billing.project.activated" }

// ProjectCompleted is published when the final payout settles and the
// project transitions to completed.
type ProjectCompleted struct {
	BaseEvent
	ProjectID       uuid.UUID `json:"projectId"`
	CommissionerID  uuid.UUID `json:"commissionerId"`
	FreelancerID    uuid.UUID `json:"freelancerId"`
	PaidToDateCents int64     `json:"paidToDateCents"`
}

func (e ProjectCompleted) EventName() string { return "billing.project.completed" }

// RatingPrompt is published after project completion to invite both parties
// to rate each other.
type RatingPrompt struct {
	BaseEvent
	ProjectID      uuid.UUID `json:"projectId"`
	CommissionerID uuid.UUID `json:"commissionerId"`
	FreelancerID   uuid.UUID `json:"freelancerId"`
}

func (e RatingPrompt) EventName() string { return "billing.project.rating_prompt" }

// =============================================================================
// Task Events
// =============================================================================

// TaskApproved is published when a commissioner approves a task, regardless
// of whether the approval triggered a payment.
type TaskApproved struct {
	BaseEvent
	ProjectID       uuid.UUID `json:"projectId"`
	TaskID          uuid.UUID `json:"taskId"`
	CommissionerID  uuid.UUID `json:"commissionerId"`
	FreelancerID    uuid.UUID `json:"freelancerId"`
	InvoicingMethod string    `json:"invoicingMethod"`
}

func (e TaskApproved) EventName() string { return "billing.task.approved" }

// =============================================================================
// Payment Events
// =============================================================================

// UpfrontPaymentExecuted is published when the initial commitment payment
// for a completion project settles.
type UpfrontPaymentExecuted struct {
	BaseEvent
	ProjectID      uuid.UUID `json:"projectId"`
	CommissionerID uuid.UUID `json:"commissionerId"`
	FreelancerID   uuid.UUID `json:"freelancerId"`
	InvoiceNumber  string    `json:"invoiceNumber"`
	AmountCents    int64     `json:"amountCents"`
}

func (e UpfrontPaymentExecuted) EventName() string { return "billing.payment.upfront" }

// InvoicePaid is published whenever any invoice transitions to paid.
type InvoicePaid struct {
	BaseEvent
	ProjectID        uuid.UUID `json:"projectId"`
	CommissionerID   uuid.UUID `json:"commissionerId"`
	FreelancerID     uuid.UUID `json:"freelancerId"`
	InvoiceNumber    string    `json:"invoiceNumber"`
	InvoiceKind      string    `json:"invoiceKind"`
	TotalAmountCents int64     `json:"totalAmountCents"`
	FreelancerCents  int64     `json:"freelancerCents"`
}

func (e InvoicePaid) EventName() string { return "billing.invoice.paid" }

// FinalPaymentExecuted is published when a completion project's remaining
// budget is released.
type FinalPaymentExecuted struct {
	BaseEvent
	ProjectID      uuid.UUID `json:"projectId"`
	CommissionerID uuid.UUID `json:"commissionerId"`
	FreelancerID   uuid.UUID `json:"freelancerId"`
	InvoiceNumber  string    `json:"invoiceNumber"`
	AmountCents    int64     `json:"amountCents"`
}

func (e FinalPaymentExecuted) EventName() string { return "billing.payment.final" }
