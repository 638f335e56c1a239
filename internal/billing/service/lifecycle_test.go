package service

import (
	"context"
	"testing"

	"gigportal_backend/internal/billing/repository"
	"gigportal_backend/platform/apperr"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to repository.Status }{
		{repository.StatusDraft, repository.StatusSent},
		{repository.StatusDraft, repository.StatusCancelled},
		{repository.StatusSent, repository.StatusPaid},
		{repository.StatusSent, repository.StatusOnHold},
		{repository.StatusSent, repository.StatusCancelled},
		{repository.StatusSent, repository.StatusOverdue},
		{repository.StatusOnHold, repository.StatusSent},
		{repository.StatusOnHold, repository.StatusPaid},
		{repository.StatusOnHold, repository.StatusCancelled},
		{repository.StatusOverdue, repository.StatusPaid},
		{repository.StatusOverdue, repository.StatusCancelled},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s should be allowed", tc.from, tc.to)
		}
	}

	forbidden := []struct{ from, to repository.Status }{
		{repository.StatusDraft, repository.StatusPaid},
		{repository.StatusDraft, repository.StatusOnHold},
		{repository.StatusPaid, repository.StatusSent},
		{repository.StatusPaid, repository.StatusCancelled},
		{repository.StatusCancelled, repository.StatusSent},
		{repository.StatusCancelled, repository.StatusPaid},
		{repository.StatusOverdue, repository.StatusOnHold},
		{repository.StatusOnHold, repository.StatusOverdue},
	}
	for _, tc := range forbidden {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s should be forbidden", tc.from, tc.to)
		}
	}
}

func TestTransitionRejectsDraftToPaid(t *testing.T) {
	invoices := newFakeInvoices()
	lc := NewLifecycle(invoices, fakePolicy{feeBps: map[string]int{}})

	invoice := repository.Invoice{
		InvoiceNumber:    "INV-2026-000001",
		Kind:             repository.KindManual,
		Status:           repository.StatusDraft,
		TotalAmountCents: 145200,
	}
	if err := invoices.Create(context.Background(), invoice); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := lc.Transition(context.Background(), invoice, repository.StatusPaid)
	if err == nil {
		t.Fatal("draft -> paid must be rejected")
	}
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("kind = %v, want conflict", apperr.GetKind(err))
	}
}

func TestTransitionToPaidComputesFee(t *testing.T) {
	invoices := newFakeInvoices()
	lc := NewLifecycle(invoices, fakePolicy{feeBps: map[string]int{"manual": 500}})

	invoice := repository.Invoice{
		InvoiceNumber:    "INV-2026-000002",
		Kind:             repository.KindManual,
		Status:           repository.StatusSent,
		TotalAmountCents: 145200,
	}
	if err := invoices.Create(context.Background(), invoice); err != nil {
		t.Fatalf("create: %v", err)
	}

	paid, err := lc.Transition(context.Background(), invoice, repository.StatusPaid)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	// 5% of $1452.00 is $72.60.
	if paid.PlatformFeeCents != 7260 {
		t.Fatalf("fee = %d, want 7260", paid.PlatformFeeCents)
	}
	if paid.FreelancerAmountCents != 145200-7260 {
		t.Fatalf("freelancer amount = %d, want %d", paid.FreelancerAmountCents, 145200-7260)
	}
	if paid.ProcessedAt == nil {
		t.Fatal("processedAt must be set on payment")
	}
}

func TestTransitionConflictsOnConcurrentChange(t *testing.T) {
	invoices := newFakeInvoices()
	lc := NewLifecycle(invoices, fakePolicy{feeBps: map[string]int{}})

	invoice := repository.Invoice{
		InvoiceNumber:    "INV-2026-000003",
		Kind:             repository.KindFinal,
		Status:           repository.StatusSent,
		TotalAmountCents: 100000,
	}
	if err := invoices.Create(context.Background(), invoice); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Another writer pays the invoice between our read and our write.
	if _, err := lc.Transition(context.Background(), invoice, repository.StatusPaid); err != nil {
		t.Fatalf("first transition: %v", err)
	}

	_, err := lc.Transition(context.Background(), invoice, repository.StatusOnHold)
	if err == nil {
		t.Fatal("stale transition must conflict")
	}
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("kind = %v, want conflict", apperr.GetKind(err))
	}
}

func TestHoldIncrementsRetryCount(t *testing.T) {
	invoices := newFakeInvoices()
	lc := NewLifecycle(invoices, fakePolicy{feeBps: map[string]int{}})

	invoice := repository.Invoice{
		InvoiceNumber:    "INV-2026-000004",
		Kind:             repository.KindUpfront,
		Status:           repository.StatusSent,
		TotalAmountCents: 39600,
	}
	if err := invoices.Create(context.Background(), invoice); err != nil {
		t.Fatalf("create: %v", err)
	}

	held, err := lc.Hold(context.Background(), invoice)
	if err != nil {
		t.Fatalf("hold: %v", err)
	}
	if held.Status != repository.StatusOnHold {
		t.Fatalf("status = %s, want on_hold", held.Status)
	}
	if held.RetryCount != 1 {
		t.Fatalf("retryCount = %d, want 1", held.RetryCount)
	}
}
