package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Audience identifies which party of a project a notification addresses.
type Audience string

const (
	AudienceCommissioner Audience = "commissioner"
	AudienceFreelancer   Audience = "freelancer"
)

// Status is the delivery state of an outbox row.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Notification is one outbox row. The tuple (type, audience, project,
// invoice) is unique, so re-emitting the same logical notification is
// absorbed at insert time.
type Notification struct {
	ID            uuid.UUID  `db:"id"`
	Type          string     `db:"notification_type"`
	Audience      Audience   `db:"audience"`
	ProjectID     uuid.UUID  `db:"project_id"`
	InvoiceNumber string     `db:"invoice_number"` // empty when not invoice-related
	RecipientID   uuid.UUID  `db:"recipient_id"`
	Subject       string     `db:"subject"`
	Body          string     `db:"body"`
	Status        Status     `db:"status"`
	Attempts      int        `db:"attempts"`
	CreatedAt     time.Time  `db:"created_at"`
	SentAt        *time.Time `db:"sent_at"`
}

// User is the directory projection used to enrich notifications.
type User struct {
	ID    uuid.UUID `db:"id"`
	Name  string    `db:"name"`
	Email string    `db:"email"`
}

// Store is the outbox contract.
type Store interface {
	// Enqueue inserts a pending notification. Returns false when the dedup
	// key already exists; the duplicate is silently dropped.
	Enqueue(ctx context.Context, n Notification) (bool, error)
	ListPending(ctx context.Context, limit int) ([]Notification, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
}

// Directory resolves user display data for enrichment at emission time.
type Directory interface {
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
}
