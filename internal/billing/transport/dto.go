package transport

import (
	"time"

	"github.com/google/uuid"
)

// ── Requests ─────────────────────────────────────────────────────────────────

// ApproveTaskRequest confirms the commissioner's intent to approve a task.
type ApproveTaskRequest struct {
	Action string `json:"action" validate:"required,oneof=approve"`
}

// ManualInvoiceRequest asks for an interim invoice on a completion project.
// ManualTrigger must be explicitly true so the endpoint can never be fired
// by an automated caller passing a zero-value body.
type ManualInvoiceRequest struct {
	TaskID        uuid.UUID `json:"taskId" validate:"required"`
	AmountCents   int64     `json:"amountCents" validate:"required,gt=0"`
	ManualTrigger bool      `json:"manualTrigger" validate:"required,eq=true"`
}

// RetryInvoiceRequest triggers a manual retry of an on-hold invoice.
type RetryInvoiceRequest struct {
	ManualTrigger bool `json:"manualTrigger" validate:"required,eq=true"`
}

// ListInvoicesRequest filters the invoice listing.
type ListInvoicesRequest struct {
	ProjectID *uuid.UUID `form:"projectId"`
	Status    string     `form:"status" validate:"omitempty,oneof=sent paid on_hold cancelled overdue"`
	Kind      string     `form:"kind" validate:"omitempty,oneof=upfront manual final auto_milestone"`
}

// ── Responses ────────────────────────────────────────────────────────────────

type InvoiceResponse struct {
	InvoiceNumber         string     `json:"invoiceNumber"`
	ProjectID             uuid.UUID  `json:"projectId"`
	TaskID                *uuid.UUID `json:"taskId,omitempty"`
	Kind                  string     `json:"kind"`
	Status                string     `json:"status"`
	TotalAmountCents      int64      `json:"totalAmountCents"`
	PlatformFeeCents      int64      `json:"platformFeeCents"`
	FreelancerAmountCents int64      `json:"freelancerAmountCents"`
	ProcessedAt           *time.Time `json:"processedAt,omitempty"`
	DueAt                 *time.Time `json:"dueAt,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
}

// TaskView is the task projection returned from approval endpoints.
type TaskView struct {
	ID          uuid.UUID  `json:"id"`
	ProjectID   uuid.UUID  `json:"projectId"`
	Status      string     `json:"status"`
	Completed   bool       `json:"completed"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty"`
	InvoicePaid bool       `json:"invoicePaid"`
}

// ReadinessReport is the result of the completion-readiness predicate.
type ReadinessReport struct {
	AllTasksApproved     bool   `json:"allTasksApproved"`
	HasRemainingBudget   bool   `json:"hasRemainingBudget"`
	RemainingBudgetCents int64  `json:"remainingBudgetCents"`
	TotalTasks           int    `json:"totalTasks"`
	ApprovedTasks        int    `json:"approvedTasks"`
	ReadyForFinalPayout  bool   `json:"isReadyForFinalPayout"`
	Reason               string `json:"reason"`
}

// ApproveTaskResponse reports the outcome of a task approval, including
// whether it triggered a payment and, on completion projects, the current
// readiness state.
type ApproveTaskResponse struct {
	Task             TaskView         `json:"task"`
	PaymentTriggered bool             `json:"paymentTriggered"`
	Invoice          *InvoiceResponse `json:"invoice,omitempty"`
	Readiness        *ReadinessReport `json:"readiness,omitempty"`
	ProjectStatus    string           `json:"projectStatus"`
}

// PaymentResponse reports a directly triggered payment (upfront or final).
type PaymentResponse struct {
	Invoice       InvoiceResponse `json:"invoice"`
	ProjectStatus string          `json:"projectStatus"`
}
