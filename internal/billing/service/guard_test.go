package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gigportal_backend/internal/billing/repository"
	projectrepo "gigportal_backend/internal/projects/repository"
	"gigportal_backend/platform/apperr"
	"gigportal_backend/platform/logger"
)

func TestRequireMethodRejectsCrossModel(t *testing.T) {
	guard := NewGuard(newFakeInvoices(), logger.New("test"))

	project := projectrepo.Project{InvoicingMethod: projectrepo.MethodMilestone}
	err := guard.RequireMethod(project, projectrepo.MethodCompletion, "upfront_payment")
	if err == nil {
		t.Fatal("milestone project must not pass a completion-only check")
	}
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("kind = %v, want conflict", apperr.GetKind(err))
	}

	project.InvoicingMethod = projectrepo.MethodCompletion
	if err := guard.RequireMethod(project, projectrepo.MethodCompletion, "upfront_payment"); err != nil {
		t.Fatalf("matching method rejected: %v", err)
	}
}

func TestCheckInvoicePayable(t *testing.T) {
	invoices := newFakeInvoices()
	guard := NewGuard(invoices, logger.New("test"))
	ctx := context.Background()

	cases := []struct {
		status    repository.Status
		wantState PayableState
		wantErr   bool
	}{
		{repository.StatusSent, PayableNow, false},
		{repository.StatusOnHold, PayableNow, false},
		{repository.StatusOverdue, PayableNow, false},
		{repository.StatusPaid, AlreadySettled, false},
		{repository.StatusDraft, PayableNow, true},
		{repository.StatusCancelled, PayableNow, true},
	}

	for _, tc := range cases {
		number, _ := invoices.NextInvoiceNumber(ctx)
		if err := invoices.Create(ctx, repository.Invoice{InvoiceNumber: number, Status: tc.status}); err != nil {
			t.Fatalf("create: %v", err)
		}

		_, state, err := guard.CheckInvoicePayable(ctx, number)
		if tc.wantErr {
			if err == nil {
				t.Errorf("status %s: expected an error", tc.status)
			} else if apperr.GetKind(err) != apperr.KindConflict {
				t.Errorf("status %s: kind = %v, want conflict", tc.status, apperr.GetKind(err))
			}
			continue
		}
		if err != nil {
			t.Errorf("status %s: %v", tc.status, err)
			continue
		}
		if state != tc.wantState {
			t.Errorf("status %s: state = %v, want %v", tc.status, state, tc.wantState)
		}
	}
}

func TestCheckInvoicePayableNotFound(t *testing.T) {
	guard := NewGuard(newFakeInvoices(), logger.New("test"))
	_, _, err := guard.CheckInvoicePayable(context.Background(), "INV-2026-999999")
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("kind = %v, want not found", apperr.GetKind(err))
	}
}

func TestSingleFlightCollapsesConcurrentCalls(t *testing.T) {
	guard := NewGuard(newFakeInvoices(), logger.New("test"))

	var executions atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup

	// The first call blocks inside the function; the rest arrive while it is
	// in flight and must join it instead of executing again.
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = guard.SingleFlight("invoice:INV-2026-000001", func() (interface{}, error) {
			executions.Add(1)
			close(started)
			<-release
			return "paid", nil
		})
	}()
	<-started

	for i := 0; i < 7; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := guard.SingleFlight("invoice:INV-2026-000001", func() (interface{}, error) {
				executions.Add(1)
				return "paid", nil
			})
			if err != nil || out != "paid" {
				t.Errorf("joined call: out=%v err=%v", out, err)
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	// Late arrivals after the flight completed may execute again, but the
	// seven overlapping calls must not each run the function.
	if got := executions.Load(); got > 2 {
		t.Fatalf("executions = %d, want at most 2", got)
	}
}
