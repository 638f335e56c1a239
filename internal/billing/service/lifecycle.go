package service

import (
	"context"
	"time"

	"gigportal_backend/internal/billing/repository"
	"gigportal_backend/platform/apperr"
)

// FeeRates resolves the platform fee for an invoice kind in basis points.
// Satisfied by config.BillingConfig.
type FeeRates interface {
	GetPlatformFeeBps(invoiceKind string) int
}

// transitions is the status transition whitelist. paid and cancelled are
// terminal; everything outside this table is a conflict.
var transitions = map[repository.Status][]repository.Status{
	repository.StatusDraft:   {repository.StatusSent, repository.StatusCancelled},
	repository.StatusSent:    {repository.StatusPaid, repository.StatusOnHold, repository.StatusCancelled, repository.StatusOverdue},
	repository.StatusOnHold:  {repository.StatusSent, repository.StatusPaid, repository.StatusCancelled},
	repository.StatusOverdue: {repository.StatusPaid, repository.StatusCancelled},
}

// CanTransition reports whether the whitelist allows moving from one invoice
// status to another.
func CanTransition(from, to repository.Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Lifecycle owns the invoice status state machine. All status mutations go
// through Transition so the whitelist and the payment bookkeeping cannot be
// bypassed.
type Lifecycle struct {
	invoices repository.Store
	fees     FeeRates
	now      func() time.Time
}

// NewLifecycle creates the invoice lifecycle manager.
func NewLifecycle(invoices repository.Store, fees FeeRates) *Lifecycle {
	return &Lifecycle{invoices: invoices, fees: fees, now: time.Now}
}

// Transition moves an invoice to a new status and persists the whole record.
// On transition to paid it computes the platform fee from the invoice kind's
// rate, the freelancer amount, and the processing timestamp. The update is
// predicated on the status the invoice was read with, so a concurrent
// transition makes this one fail with a conflict instead of overwriting it.
func (l *Lifecycle) Transition(ctx context.Context, invoice repository.Invoice, to repository.Status) (repository.Invoice, error) {
	from := invoice.Status
	if !CanTransition(from, to) {
		return repository.Invoice{}, apperr.Conflict(
			"invoice " + invoice.InvoiceNumber + " cannot transition from " + string(from) + " to " + string(to))
	}

	if to == repository.StatusPaid {
		feeBps := l.fees.GetPlatformFeeBps(string(invoice.Kind))
		invoice.PlatformFeeCents = roundCents(float64(invoice.TotalAmountCents) * float64(feeBps) / 10000.0)
		invoice.FreelancerAmountCents = invoice.TotalAmountCents - invoice.PlatformFeeCents
		processedAt := l.now().UTC()
		invoice.ProcessedAt = &processedAt
	}

	invoice.Status = to
	if err := l.invoices.Update(ctx, invoice, from); err != nil {
		return repository.Invoice{}, err
	}
	return invoice, nil
}

// Hold parks an invoice after a failed payment attempt, incrementing the
// retry counter. A sent invoice moves to on_hold; an invoice already on_hold
// or overdue keeps its status and only the counter moves. The invoice stays
// retryable; it is never cancelled by a payment failure.
func (l *Lifecycle) Hold(ctx context.Context, invoice repository.Invoice) (repository.Invoice, error) {
	from := invoice.Status
	invoice.RetryCount++
	if from == repository.StatusOnHold || from == repository.StatusOverdue {
		if err := l.invoices.Update(ctx, invoice, from); err != nil {
			return repository.Invoice{}, err
		}
		return invoice, nil
	}
	return l.Transition(ctx, invoice, repository.StatusOnHold)
}
