package transport

import (
	"time"

	"github.com/google/uuid"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// ActivateProjectRequest is the request body for activating a project,
// matching a freelancer to a commissioner's work request.
type ActivateProjectRequest struct {
	FreelancerID     uuid.UUID `json:"freelancerId" validate:"required"`
	Title            string    `json:"title" validate:"required,min=1,max=500"`
	InvoicingMethod  string    `json:"invoicingMethod" validate:"required,oneof=milestone completion"`
	TotalBudgetCents int64     `json:"totalBudgetCents" validate:"required,gt=0"`
	TaskTitles       []string  `json:"taskTitles" validate:"required,min=1,dive,min=1,max=500"`
}

// TaskActionRequest is the request body for submitting or rejecting a task.
type TaskActionRequest struct {
	Action string `json:"action" validate:"required,oneof=submit reject"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// ProjectResponse is the API representation of a project.
type ProjectResponse struct {
	ID                    uuid.UUID `json:"id"`
	CommissionerID        uuid.UUID `json:"commissionerId"`
	FreelancerID          uuid.UUID `json:"freelancerId"`
	Title                 string    `json:"title"`
	InvoicingMethod       string    `json:"invoicingMethod"`
	Status                string    `json:"status"`
	TotalBudgetCents      int64     `json:"totalBudgetCents"`
	PaidToDateCents       int64     `json:"paidToDateCents"`
	RemainingBudgetCents  int64     `json:"remainingBudgetCents"`
	UpfrontPaid           bool      `json:"upfrontPaid"`
	TotalTasks            int       `json:"totalTasks"`
	CreatedAt             time.Time `json:"createdAt"`
}

// TaskResponse is the API representation of a task.
type TaskResponse struct {
	ID                    uuid.UUID  `json:"id"`
	ProjectID             uuid.UUID  `json:"projectId"`
	Title                 string     `json:"title"`
	Status                string     `json:"status"`
	Completed             bool       `json:"completed"`
	ApprovedAt            *time.Time `json:"approvedAt,omitempty"`
	ManualInvoiceEligible bool       `json:"manualInvoiceEligible"`
	InvoicePaid           bool       `json:"invoicePaid"`
}

// ActivateProjectResponse bundles the created project and its tasks.
type ActivateProjectResponse struct {
	Project ProjectResponse `json:"project"`
	Tasks   []TaskResponse  `json:"tasks"`
}
