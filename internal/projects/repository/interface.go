package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InvoicingMethod selects which of the two mutually exclusive billing models
// governs a project. The value is fixed at activation and never changes.
type InvoicingMethod string

const (
	// MethodMilestone bills each approved task with its own invoice.
	MethodMilestone InvoicingMethod = "milestone"
	// MethodCompletion pays an upfront share at activation and the remainder
	// once every task is approved.
	MethodCompletion InvoicingMethod = "completion"
)

// ProjectStatus is the lifecycle status of a project.
type ProjectStatus string

const (
	ProjectOngoing   ProjectStatus = "ongoing"
	ProjectCompleted ProjectStatus = "completed"
	ProjectPaused    ProjectStatus = "paused"
)

// TaskStatus is the lifecycle status of a task.
type TaskStatus string

const (
	TaskOngoing  TaskStatus = "ongoing"
	TaskInReview TaskStatus = "in_review"
	TaskApproved TaskStatus = "approved"
	TaskRejected TaskStatus = "rejected"
)

// Project is the database model for a project. All money fields are cents.
// Invariant: PaidToDateCents never exceeds TotalBudgetCents.
type Project struct {
	ID               uuid.UUID       `db:"id"`
	CommissionerID   uuid.UUID       `db:"commissioner_id"`
	FreelancerID     uuid.UUID       `db:"freelancer_id"`
	Title            string          `db:"title"`
	InvoicingMethod  InvoicingMethod `db:"invoicing_method"`
	Status           ProjectStatus   `db:"status"`
	TotalBudgetCents int64           `db:"total_budget_cents"`
	PaidToDateCents  int64           `db:"paid_to_date_cents"`
	UpfrontPaid      bool            `db:"upfront_paid"`
	TotalTasks       int             `db:"total_tasks"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

// RemainingBudgetCents is the budget not yet paid out, floored at zero.
func (p Project) RemainingBudgetCents() int64 {
	remaining := p.TotalBudgetCents - p.PaidToDateCents
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Task is the database model for a task.
// Invariant: Completed implies Status == approved.
type Task struct {
	ID                    uuid.UUID  `db:"id"`
	ProjectID             uuid.UUID  `db:"project_id"`
	Title                 string     `db:"title"`
	Status                TaskStatus `db:"status"`
	Completed             bool       `db:"completed"`
	ApprovedAt            *time.Time `db:"approved_at"`
	ManualInvoiceEligible bool       `db:"manual_invoice_eligible"`
	InvoicePaid           bool       `db:"invoice_paid"`
	CreatedAt             time.Time  `db:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at"`
}

// CreateProjectParams contains data for activating a project with its tasks.
type CreateProjectParams struct {
	CommissionerID   uuid.UUID
	FreelancerID     uuid.UUID
	Title            string
	InvoicingMethod  InvoicingMethod
	TotalBudgetCents int64
	TaskTitles       []string
}

// Store is the read/write contract the orchestration engine requires from
// project and task storage. Records are whole-record reads and whole-record
// rewrites; there are no field-level patch primitives, so writers must load
// the full current record, mutate in memory and persist the complete result.
type Store interface {
	CreateProjectWithTasks(ctx context.Context, params CreateProjectParams) (Project, []Task, error)
	GetProject(ctx context.Context, id uuid.UUID) (Project, error)
	UpdateProject(ctx context.Context, project Project) error
	GetTask(ctx context.Context, id uuid.UUID) (Task, error)
	UpdateTask(ctx context.Context, task Task) error
	ListTasks(ctx context.Context, projectID uuid.UUID) ([]Task, error)
}
