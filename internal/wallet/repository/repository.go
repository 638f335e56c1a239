package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides database operations for the wallet ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new wallet repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends one ledger entry. Entries are immutable; corrections are
// new entries of the opposite kind.
func (r *Repository) Insert(ctx context.Context, entry Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO wallet_entries (id, user_id, invoice_number, kind, amount_cents, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.UserID, entry.InvoiceNumber, entry.Kind, entry.AmountCents, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert wallet entry: %w", err)
	}
	return nil
}

// Summarize derives the user's balances from the ledger in one scan.
func (r *Repository) Summarize(ctx context.Context, userID uuid.UUID) (Summary, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount_cents) FILTER (WHERE kind = 'credit'), 0),
			COALESCE(SUM(amount_cents) FILTER (WHERE kind = 'reversal'), 0),
			COALESCE(SUM(amount_cents) FILTER (WHERE kind = 'withdrawal'), 0)
		FROM wallet_entries
		WHERE user_id = $1`,
		userID,
	)

	var credits, reversals, withdrawals int64
	if err := row.Scan(&credits, &reversals, &withdrawals); err != nil {
		return Summary{}, fmt.Errorf("failed to summarize wallet: %w", err)
	}

	earned := credits - reversals
	return Summary{
		AvailableCents:      earned - withdrawals,
		LifetimeEarnedCents: earned,
		WithdrawnCents:      withdrawals,
	}, nil
}

// ListEntries returns the user's most recent ledger entries.
func (r *Repository) ListEntries(ctx context.Context, userID uuid.UUID, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, invoice_number, kind, amount_cents, created_at
		FROM wallet_entries
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallet entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.InvoiceNumber, &e.Kind, &e.AmountCents, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wallet entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Compile-time check that Repository implements Store
var _ Store = (*Repository)(nil)
