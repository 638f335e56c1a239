// Package payments charges the commissioner for an invoice. It is the
// downstream collaborator behind the execute_payment settlement step: billing
// talks to it through its Payer interface and never sees charge records.
package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"gigportal_backend/internal/billing/repository"
	"gigportal_backend/platform/apperr"
	"gigportal_backend/platform/logger"
)

// LedgerPayer records charges against the commissioner in a charge ledger.
// Charges are keyed by invoice number, so a duplicate execution of the same
// settlement is absorbed instead of double-charging.
type LedgerPayer struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// New creates a ledger-backed payer.
func New(pool *pgxpool.Pool, log *logger.Logger) *LedgerPayer {
	return &LedgerPayer{pool: pool, log: log}
}

// Execute charges the commissioner for the invoice amount.
func (p *LedgerPayer) Execute(ctx context.Context, invoice repository.Invoice) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO payment_charges (id, invoice_number, commissioner_id, amount_cents, status, created_at)
		VALUES ($1, $2, $3, $4, 'charged', $5)
		ON CONFLICT (invoice_number) DO UPDATE
		SET status = 'charged', updated_at = $5
		WHERE payment_charges.status = 'refunded'`,
		uuid.New(), invoice.InvoiceNumber, invoice.CommissionerID,
		invoice.TotalAmountCents, time.Now().UTC(),
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal,
			fmt.Sprintf("failed to charge invoice %s", invoice.InvoiceNumber), err)
	}

	p.log.PaymentEvent("charge_executed", invoice.ProjectID.String(),
		invoice.InvoiceNumber, invoice.TotalAmountCents)
	return nil
}

// Refund compensates a charge when a later settlement step fails.
func (p *LedgerPayer) Refund(ctx context.Context, invoice repository.Invoice) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE payment_charges
		SET status = 'refunded', updated_at = $2
		WHERE invoice_number = $1 AND status = 'charged'`,
		invoice.InvoiceNumber, time.Now().UTC(),
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal,
			fmt.Sprintf("failed to refund invoice %s", invoice.InvoiceNumber), err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("no charge to refund for invoice " + invoice.InvoiceNumber)
	}

	p.log.PaymentEvent("charge_refunded", invoice.ProjectID.String(),
		invoice.InvoiceNumber, invoice.TotalAmountCents)
	return nil
}
