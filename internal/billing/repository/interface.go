package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind discriminates what an invoice pays for. The platform fee rate is a
// property of the kind, not a global constant.
type Kind string

const (
	// KindUpfront is the initial commitment payment of a completion project.
	KindUpfront Kind = "upfront"
	// KindManual is a commissioner-triggered interim invoice for a single
	// approved task on a completion project.
	KindManual Kind = "manual"
	// KindFinal is the remaining-budget payout of a completion project.
	KindFinal Kind = "final"
	// KindAutoMilestone is the per-task invoice of a milestone project.
	KindAutoMilestone Kind = "auto_milestone"
)

// Status is the lifecycle status of an invoice.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusPaid      Status = "paid"
	StatusOnHold    Status = "on_hold"
	StatusCancelled Status = "cancelled"
	StatusOverdue   Status = "overdue"
)

// Invoice is the database model for an invoice. The invoice number is
// globally unique and immutable once the invoice is paid.
type Invoice struct {
	InvoiceNumber        string     `db:"invoice_number"`
	ProjectID            uuid.UUID  `db:"project_id"`
	TaskID               *uuid.UUID `db:"task_id"`
	CommissionerID       uuid.UUID  `db:"commissioner_id"`
	FreelancerID         uuid.UUID  `db:"freelancer_id"`
	Kind                 Kind       `db:"kind"`
	Status               Status     `db:"status"`
	TotalAmountCents     int64      `db:"total_amount_cents"`
	PlatformFeeCents     int64      `db:"platform_fee_cents"`
	FreelancerAmountCents int64     `db:"freelancer_amount_cents"`
	ProcessedAt          *time.Time `db:"processed_at"`
	DueAt                *time.Time `db:"due_at"`
	RetryCount           int        `db:"retry_count"`
	CreatedAt            time.Time  `db:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at"`
}

// ListParams contains filters for listing invoices.
type ListParams struct {
	ProjectID *uuid.UUID
	Status    *Status
	Kind      *Kind
	// ExcludeDrafts applies the visibility rule for the paying party:
	// draft invoices are never shown to the actor when they are the
	// commissioner on the invoice.
	ExcludeDrafts bool
}

// Store is the invoice persistence contract. The orchestration engine owns
// invoice records exclusively; no other component mutates invoice status.
type Store interface {
	NextInvoiceNumber(ctx context.Context) (string, error)
	Create(ctx context.Context, invoice Invoice) error
	GetByNumber(ctx context.Context, invoiceNumber string) (Invoice, error)
	// Update persists the complete invoice record but only when the stored
	// status still equals expectedStatus. This is the read-immediately-
	// before-act discipline the Payment Execution Guard relies on: a
	// concurrent writer that got there first makes the predicate fail.
	Update(ctx context.Context, invoice Invoice, expectedStatus Status) error
	Delete(ctx context.Context, invoiceNumber string) error
	List(ctx context.Context, actorID uuid.UUID, params ListParams) ([]Invoice, error)
	// FindByProjectAndKind returns invoices of one kind for a project.
	FindByProjectAndKind(ctx context.Context, projectID uuid.UUID, kind Kind) ([]Invoice, error)
	// FindByTaskAndKind returns the invoice of one kind tied to a task, if any.
	FindByTaskAndKind(ctx context.Context, taskID uuid.UUID, kind Kind) (*Invoice, error)
	// SumPaidByProjectAndKind totals the paid invoices of one kind for a project.
	SumPaidByProjectAndKind(ctx context.Context, projectID uuid.UUID, kind Kind) (int64, error)
	// ListOverdueCandidates returns sent invoices whose due date passed.
	ListOverdueCandidates(ctx context.Context, now time.Time, limit int) ([]Invoice, error)
}
