package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"gigportal_backend/internal/events"
	"gigportal_backend/internal/notification/repository"
	"gigportal_backend/platform/apperr"
	"gigportal_backend/platform/logger"
)

type fakeOutbox struct {
	mu   sync.Mutex
	rows map[string]repository.Notification
	sent []uuid.UUID
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{rows: make(map[string]repository.Notification)}
}

func dedupKey(n repository.Notification) string {
	return n.Type + "|" + string(n.Audience) + "|" + n.ProjectID.String() + "|" + n.InvoiceNumber
}

func (f *fakeOutbox) Enqueue(ctx context.Context, n repository.Notification) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := dedupKey(n)
	if _, ok := f.rows[key]; ok {
		return false, nil
	}
	n.ID = uuid.New()
	n.Status = repository.StatusPending
	f.rows[key] = n
	return true, nil
}

func (f *fakeOutbox) ListPending(ctx context.Context, limit int) ([]repository.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Notification
	for _, n := range f.rows {
		if n.Status == repository.StatusPending {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeOutbox) MarkSent(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, n := range f.rows {
		if n.ID == id {
			n.Status = repository.StatusSent
			f.rows[key] = n
			f.sent = append(f.sent, id)
			return nil
		}
	}
	return apperr.NotFound("notification not found")
}

func (f *fakeOutbox) MarkFailed(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, n := range f.rows {
		if n.ID == id {
			n.Status = repository.StatusFailed
			f.rows[key] = n
			return nil
		}
	}
	return apperr.NotFound("notification not found")
}

func (f *fakeOutbox) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeDirectory struct {
	users map[uuid.UUID]repository.User
}

func (f *fakeDirectory) GetUser(ctx context.Context, id uuid.UUID) (repository.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return repository.User{}, apperr.NotFound("user not found")
}

type fakeSender struct {
	mu       sync.Mutex
	sent     []string
	failNext bool
}

func (f *fakeSender) Send(ctx context.Context, toEmail, toName, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, toEmail+": "+subject)
	return nil
}

func newTestService() (*Service, *fakeOutbox, *fakeDirectory, uuid.UUID, uuid.UUID) {
	commissioner := uuid.New()
	freelancer := uuid.New()
	directory := &fakeDirectory{users: map[uuid.UUID]repository.User{
		commissioner: {ID: commissioner, Name: "Ada", Email: "ada@example.com"},
		freelancer:   {ID: freelancer, Name: "Grace", Email: "grace@example.com"},
	}}
	outbox := newFakeOutbox()
	svc := New(outbox, directory, logger.New("test"))
	return svc, outbox, directory, commissioner, freelancer
}

func TestInvoicePaidEnqueuesBothParties(t *testing.T) {
	svc, outbox, _, commissioner, freelancer := newTestService()
	ctx := context.Background()

	event := events.InvoicePaid{
		BaseEvent:        events.NewBaseEvent(),
		ProjectID:        uuid.New(),
		CommissionerID:   commissioner,
		FreelancerID:     freelancer,
		InvoiceNumber:    "INV-2026-000001",
		InvoiceKind:      "final",
		TotalAmountCents: 290400,
		FreelancerCents:  275880,
	}
	if err := svc.onInvoicePaid(ctx, event); err != nil {
		t.Fatalf("onInvoicePaid: %v", err)
	}
	if outbox.count() != 2 {
		t.Fatalf("outbox rows = %d, want 2 (one per party)", outbox.count())
	}

	// Re-emitting the same event is absorbed by the dedup key.
	if err := svc.onInvoicePaid(ctx, event); err != nil {
		t.Fatalf("duplicate onInvoicePaid: %v", err)
	}
	if outbox.count() != 2 {
		t.Fatalf("outbox rows after duplicate = %d, want still 2", outbox.count())
	}
}

func TestEnrichmentFailureDoesNotBlock(t *testing.T) {
	svc, outbox, directory, commissioner, freelancer := newTestService()
	// Wipe the directory: name resolution fails for everyone.
	directory.users = map[uuid.UUID]repository.User{}

	err := svc.onProjectActivated(context.Background(), events.ProjectActivated{
		BaseEvent:        events.NewBaseEvent(),
		ProjectID:        uuid.New(),
		CommissionerID:   commissioner,
		FreelancerID:     freelancer,
		InvoicingMethod:  "completion",
		TotalBudgetCents: 330000,
		TotalTasks:       2,
	})
	if err != nil {
		t.Fatalf("onProjectActivated: %v", err)
	}
	if outbox.count() != 2 {
		t.Fatalf("outbox rows = %d, notifications must be written with fallback names", outbox.count())
	}
}

func TestDispatchPendingDeliversAndMarks(t *testing.T) {
	svc, outbox, _, commissioner, freelancer := newTestService()
	sender := &fakeSender{}
	svc.SetEmailSender(sender)
	ctx := context.Background()

	if err := svc.onRatingPrompt(ctx, events.RatingPrompt{
		BaseEvent:      events.NewBaseEvent(),
		ProjectID:      uuid.New(),
		CommissionerID: commissioner,
		FreelancerID:   freelancer,
	}); err != nil {
		t.Fatalf("onRatingPrompt: %v", err)
	}

	sent, err := svc.DispatchPending(ctx, 10)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if sent != 2 {
		t.Fatalf("delivered = %d, want 2", sent)
	}

	pending, _ := outbox.ListPending(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("pending after dispatch = %d, want 0", len(pending))
	}
}

func TestDispatchPendingMarksFailures(t *testing.T) {
	svc, outbox, _, commissioner, freelancer := newTestService()
	sender := &fakeSender{failNext: true}
	svc.SetEmailSender(sender)
	ctx := context.Background()

	if err := svc.onFinalPayment(ctx, events.FinalPaymentExecuted{
		BaseEvent:      events.NewBaseEvent(),
		ProjectID:      uuid.New(),
		CommissionerID: commissioner,
		FreelancerID:   freelancer,
		InvoiceNumber:  "INV-2026-000009",
		AmountCents:    145200,
	}); err != nil {
		t.Fatalf("onFinalPayment: %v", err)
	}

	sent, err := svc.DispatchPending(ctx, 10)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if sent != 0 {
		t.Fatalf("delivered = %d, want 0", sent)
	}

	pending, _ := outbox.ListPending(ctx, 10)
	if len(pending) != 0 {
		t.Fatal("failed notification must leave pending status")
	}
}
