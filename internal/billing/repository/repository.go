package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gigportal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const invoiceNotFoundMsg = "invoice not found"

// Repository provides database operations for invoices.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new invoices repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const invoiceColumns = `invoice_number, project_id, task_id, commissioner_id, freelancer_id,
	kind, status, total_amount_cents, platform_fee_cents, freelancer_amount_cents,
	processed_at, due_at, retry_count, created_at, updated_at`

// NextInvoiceNumber atomically generates the next globally unique invoice number.
func (r *Repository) NextInvoiceNumber(ctx context.Context) (string, error) {
	var nextNum int
	query := `
		INSERT INTO invoice_counters (year, last_number)
		VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_number = invoice_counters.last_number + 1
		RETURNING last_number`

	year := time.Now().Year()
	if err := r.pool.QueryRow(ctx, query, year).Scan(&nextNum); err != nil {
		return "", fmt.Errorf("failed to generate invoice number: %w", err)
	}

	return fmt.Sprintf("INV-%d-%06d", year, nextNum), nil
}

// Create inserts a new invoice record.
func (r *Repository) Create(ctx context.Context, invoice Invoice) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO invoices (`+invoiceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		invoice.InvoiceNumber, invoice.ProjectID, invoice.TaskID,
		invoice.CommissionerID, invoice.FreelancerID, invoice.Kind, invoice.Status,
		invoice.TotalAmountCents, invoice.PlatformFeeCents, invoice.FreelancerAmountCents,
		invoice.ProcessedAt, invoice.DueAt, invoice.RetryCount,
		invoice.CreatedAt, invoice.UpdatedAt,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to insert invoice", err)
	}
	return nil
}

// GetByNumber loads the full invoice record.
func (r *Repository) GetByNumber(ctx context.Context, invoiceNumber string) (Invoice, error) {
	var inv Invoice
	err := r.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE invoice_number = $1`,
		invoiceNumber,
	).Scan(
		&inv.InvoiceNumber, &inv.ProjectID, &inv.TaskID,
		&inv.CommissionerID, &inv.FreelancerID, &inv.Kind, &inv.Status,
		&inv.TotalAmountCents, &inv.PlatformFeeCents, &inv.FreelancerAmountCents,
		&inv.ProcessedAt, &inv.DueAt, &inv.RetryCount, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, apperr.NotFound(invoiceNotFoundMsg)
		}
		return Invoice{}, apperr.Wrap(apperr.KindInternal, "failed to load invoice", err)
	}
	return inv, nil
}

// Update persists the complete invoice record, guarded by the expected
// current status. A zero-row update means a concurrent writer changed the
// invoice since it was read, which surfaces as a conflict.
func (r *Repository) Update(ctx context.Context, invoice Invoice, expectedStatus Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE invoices
		SET status = $2, total_amount_cents = $3, platform_fee_cents = $4,
		    freelancer_amount_cents = $5, processed_at = $6, due_at = $7,
		    retry_count = $8, updated_at = $9
		WHERE invoice_number = $1 AND status = $10`,
		invoice.InvoiceNumber, invoice.Status, invoice.TotalAmountCents,
		invoice.PlatformFeeCents, invoice.FreelancerAmountCents,
		invoice.ProcessedAt, invoice.DueAt, invoice.RetryCount,
		time.Now().UTC(), expectedStatus,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to update invoice", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("invoice was modified concurrently")
	}
	return nil
}

// Delete removes an invoice. Only used to compensate a failed transaction
// step before the invoice ever left draft; paid invoices are immutable and
// cancellation is a status change, not removal.
func (r *Repository) Delete(ctx context.Context, invoiceNumber string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM invoices WHERE invoice_number = $1 AND status = $2`,
		invoiceNumber, StatusDraft,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to delete invoice", err)
	}
	return nil
}

// List returns invoices visible to the actor, newest first.
func (r *Repository) List(ctx context.Context, actorID uuid.UUID, params ListParams) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices
		WHERE (commissioner_id = $1 OR freelancer_id = $1)`
	args := []interface{}{actorID}

	if params.ProjectID != nil {
		args = append(args, *params.ProjectID)
		query += fmt.Sprintf(" AND project_id = $%d", len(args))
	}
	if params.Status != nil {
		args = append(args, *params.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if params.Kind != nil {
		args = append(args, *params.Kind)
		query += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	if params.ExcludeDrafts {
		// Drafts are engine-internal and never visible to the paying party.
		args = append(args, StatusDraft)
		query += fmt.Sprintf(" AND NOT (status = $%d AND commissioner_id = $1)", len(args))
	}
	query += " ORDER BY created_at DESC"

	return r.queryInvoices(ctx, query, args...)
}

// FindByProjectAndKind returns invoices of one kind for a project.
func (r *Repository) FindByProjectAndKind(ctx context.Context, projectID uuid.UUID, kind Kind) ([]Invoice, error) {
	return r.queryInvoices(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE project_id = $1 AND kind = $2 ORDER BY created_at ASC`,
		projectID, kind,
	)
}

// FindByTaskAndKind returns the invoice of one kind tied to a task, if any.
func (r *Repository) FindByTaskAndKind(ctx context.Context, taskID uuid.UUID, kind Kind) (*Invoice, error) {
	invoices, err := r.queryInvoices(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE task_id = $1 AND kind = $2 AND status != $3
		 ORDER BY created_at DESC LIMIT 1`,
		taskID, kind, StatusCancelled,
	)
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, nil
	}
	return &invoices[0], nil
}

// SumPaidByProjectAndKind totals the paid invoices of one kind for a project.
func (r *Repository) SumPaidByProjectAndKind(ctx context.Context, projectID uuid.UUID, kind Kind) (int64, error) {
	var sum int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_amount_cents), 0) FROM invoices
		WHERE project_id = $1 AND kind = $2 AND status = $3`,
		projectID, kind, StatusPaid,
	).Scan(&sum)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to sum invoices", err)
	}
	return sum, nil
}

// ListOverdueCandidates returns sent invoices whose due date passed.
func (r *Repository) ListOverdueCandidates(ctx context.Context, now time.Time, limit int) ([]Invoice, error) {
	if limit < 1 {
		limit = 100
	}
	return r.queryInvoices(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE status = $1 AND due_at IS NOT NULL AND due_at < $2
		 ORDER BY due_at ASC LIMIT $3`,
		StatusSent, now, limit,
	)
}

func (r *Repository) queryInvoices(ctx context.Context, query string, args ...interface{}) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to query invoices", err)
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(
			&inv.InvoiceNumber, &inv.ProjectID, &inv.TaskID,
			&inv.CommissionerID, &inv.FreelancerID, &inv.Kind, &inv.Status,
			&inv.TotalAmountCents, &inv.PlatformFeeCents, &inv.FreelancerAmountCents,
			&inv.ProcessedAt, &inv.DueAt, &inv.RetryCount, &inv.CreatedAt, &inv.UpdatedAt,
		); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan invoice", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// Compile-time check that Repository implements Store.
var _ Store = (*Repository)(nil)
