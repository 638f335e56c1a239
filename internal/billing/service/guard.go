package service

import (
	"context"

	"gigportal_backend/internal/billing/repository"
	projectrepo "gigportal_backend/internal/projects/repository"
	"gigportal_backend/platform/apperr"
	"gigportal_backend/platform/logger"

	"golang.org/x/sync/singleflight"
)

// Guard enforces the preconditions of every payment-affecting operation:
// billing-model separation, single-flight execution and invoice eligibility.
// The settlement checks read current state immediately before acting, so a
// duplicate trigger observes the first trigger's completed state and
// short-circuits to a no-op instead of double-paying.
type Guard struct {
	invoices repository.Store
	group    singleflight.Group
	log      *logger.Logger
}

// NewGuard creates a payment execution guard.
func NewGuard(invoices repository.Store, log *logger.Logger) *Guard {
	return &Guard{invoices: invoices, log: log}
}

// RequireMethod rejects any attempt to run one billing model's logic against
// a project tagged with the other. The check is structural: it consults the
// project record directly rather than trusting the caller. A violation is a
// cross-wiring defect in the caller, so it is logged at high severity.
func (g *Guard) RequireMethod(project projectrepo.Project, want projectrepo.InvoicingMethod, operation string) error {
	if project.InvoicingMethod == want {
		return nil
	}
	g.log.GuardViolation(operation, project.ID.String(), string(project.InvoicingMethod))
	return apperr.Conflict(
		"operation " + operation + " requires a " + string(want) + " project, but project uses " +
			string(project.InvoicingMethod) + " invoicing")
}

// PayableState classifies an invoice's settlement state for a payment attempt.
type PayableState int

const (
	// PayableNow means the invoice may be paid.
	PayableNow PayableState = iota
	// AlreadySettled means an equivalent payment already completed; the
	// operation should return a no-op success.
	AlreadySettled
)

// CheckInvoicePayable re-reads the invoice and decides whether a payment may
// proceed. sent, on_hold and overdue invoices are payable; an already paid
// invoice is a no-op; drafts and cancelled invoices are rejected.
func (g *Guard) CheckInvoicePayable(ctx context.Context, invoiceNumber string) (repository.Invoice, PayableState, error) {
	invoice, err := g.invoices.GetByNumber(ctx, invoiceNumber)
	if err != nil {
		return repository.Invoice{}, PayableNow, err
	}

	switch invoice.Status {
	case repository.StatusSent, repository.StatusOnHold, repository.StatusOverdue:
		return invoice, PayableNow, nil
	case repository.StatusPaid:
		return invoice, AlreadySettled, nil
	case repository.StatusDraft:
		return repository.Invoice{}, PayableNow, apperr.Conflict("invoice " + invoiceNumber + " has not been sent")
	case repository.StatusCancelled:
		return repository.Invoice{}, PayableNow, apperr.Conflict("invoice " + invoiceNumber + " is cancelled")
	default:
		return repository.Invoice{}, PayableNow, apperr.Conflict("invoice " + invoiceNumber + " is not payable")
	}
}

// SingleFlight collapses concurrent in-process executions sharing a key into
// one. This narrows the check-then-act window for near-simultaneous triggers
// in the same process; cross-process duplicates are handled by the
// re-read-before-act checks and the predicated invoice update.
func (g *Guard) SingleFlight(key string, fn func() (interface{}, error)) (interface{}, error) {
	out, err, _ := g.group.Do(key, fn)
	return out, err
}
