package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gigportal_backend/platform/apperr"
)

// Repository provides database operations for the notification outbox.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new notification repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Enqueue inserts a pending notification, deduplicating on the logical key.
func (r *Repository) Enqueue(ctx context.Context, n Notification) (bool, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	n.Status = StatusPending

	tag, err := r.pool.Exec(ctx, `
		INSERT INTO notification_outbox
			(id, notification_type, audience, project_id, invoice_number,
			 recipient_id, subject, body, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10)
		ON CONFLICT (notification_type, audience, project_id, invoice_number) DO NOTHING`,
		n.ID, n.Type, n.Audience, n.ProjectID, n.InvoiceNumber,
		n.RecipientID, n.Subject, n.Body, n.Status, n.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListPending returns pending notifications oldest first.
func (r *Repository) ListPending(ctx context.Context, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, notification_type, audience, project_id, invoice_number,
		       recipient_id, subject, body, status, attempts, created_at, sent_at
		FROM notification_outbox
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Type, &n.Audience, &n.ProjectID, &n.InvoiceNumber,
			&n.RecipientID, &n.Subject, &n.Body, &n.Status, &n.Attempts, &n.CreatedAt, &n.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkSent records a successful delivery.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notification_outbox
		SET status = 'sent', attempts = attempts + 1, sent_at = $2
		WHERE id = $1`,
		id, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}

// MarkFailed records a failed delivery attempt.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notification_outbox
		SET status = 'failed', attempts = attempts + 1
		WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	return nil
}

// Compile-time check that Repository implements Store
var _ Store = (*Repository)(nil)

// UserDirectory resolves users from the users table.
type UserDirectory struct {
	pool *pgxpool.Pool
}

// NewUserDirectory creates a directory backed by the users table.
func NewUserDirectory(pool *pgxpool.Pool) *UserDirectory {
	return &UserDirectory{pool: pool}
}

// GetUser loads one user's display data.
func (d *UserDirectory) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	row := d.pool.QueryRow(ctx, `SELECT id, name, email FROM users WHERE id = $1`, id)

	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.NotFound("user not found")
		}
		return User{}, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

// Compile-time check that UserDirectory implements Directory
var _ Directory = (*UserDirectory)(nil)
