package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EntryKind classifies a wallet ledger entry.
type EntryKind string

const (
	// KindCredit is a payout credited from a paid invoice.
	KindCredit EntryKind = "credit"
	// KindReversal compensates a credit when a settlement step failed after it.
	KindReversal EntryKind = "reversal"
	// KindWithdrawal moves available balance out of the platform.
	KindWithdrawal EntryKind = "withdrawal"
)

// Entry is one immutable ledger line. Balances are derived, never stored.
type Entry struct {
	ID            uuid.UUID `db:"id"`
	UserID        uuid.UUID `db:"user_id"`
	InvoiceNumber *string   `db:"invoice_number"`
	Kind          EntryKind `db:"kind"`
	AmountCents   int64     `db:"amount_cents"`
	CreatedAt     time.Time `db:"created_at"`
}

// Summary are the derived balances of one user's ledger.
type Summary struct {
	AvailableCents      int64
	LifetimeEarnedCents int64
	WithdrawnCents      int64
}

// Store is the wallet ledger contract.
type Store interface {
	Insert(ctx context.Context, entry Entry) error
	Summarize(ctx context.Context, userID uuid.UUID) (Summary, error)
	ListEntries(ctx context.Context, userID uuid.UUID, limit int) ([]Entry, error)
}
