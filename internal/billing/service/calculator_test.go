package service

import (
	"testing"

	projectrepo "gigportal_backend/internal/projects/repository"
)

func TestCalculateUpfrontAmount(t *testing.T) {
	// $3300.00 at a 12% upfront rate is $396.00.
	got := CalculateUpfrontAmount(330000, 1200)
	if got != 39600 {
		t.Fatalf("upfront = %d, want 39600", got)
	}

	if got := CalculateUpfrontAmount(0, 1200); got != 0 {
		t.Fatalf("upfront on zero budget = %d, want 0", got)
	}
}

func TestCalculateManualInvoiceAmount(t *testing.T) {
	// $3300.00 budget, 12% upfront, 2 tasks: ($3300 - $396) / 2 = $1452.00.
	got, ok := CalculateManualInvoiceAmount(330000, 2, 1200)
	if !ok {
		t.Fatal("expected an applicable per-task share")
	}
	if got != 145200 {
		t.Fatalf("manual share = %d, want 145200", got)
	}
}

func TestCalculateManualInvoiceAmountZeroTasks(t *testing.T) {
	got, ok := CalculateManualInvoiceAmount(330000, 0, 1200)
	if ok {
		t.Fatal("zero tasks must have no per-task share")
	}
	if got != 0 {
		t.Fatalf("manual share = %d, want 0", got)
	}
}

func TestCalculateRemainingBudget(t *testing.T) {
	if got := CalculateRemainingBudget(330000, 39600); got != 290400 {
		t.Fatalf("remaining = %d, want 290400", got)
	}
	// Never negative.
	if got := CalculateRemainingBudget(100, 200); got != 0 {
		t.Fatalf("remaining = %d, want 0", got)
	}
}

func TestCalculateMilestoneTaskAmount(t *testing.T) {
	// Three tasks over $100.00: two at $33.33 and the last one absorbing the
	// remainder so the sum equals the budget exactly.
	budget := int64(10000)
	first := CalculateMilestoneTaskAmount(budget, 3, budget, false)
	if first != 3333 {
		t.Fatalf("first share = %d, want 3333", first)
	}
	second := CalculateMilestoneTaskAmount(budget, 3, budget-first, false)
	last := CalculateMilestoneTaskAmount(budget, 3, budget-first-second, true)
	if first+second+last != budget {
		t.Fatalf("shares sum to %d, want %d", first+second+last, budget)
	}

	// The share is always capped at the remaining budget.
	if got := CalculateMilestoneTaskAmount(10000, 3, 1000, false); got != 1000 {
		t.Fatalf("capped share = %d, want 1000", got)
	}
	if got := CalculateMilestoneTaskAmount(10000, 3, 0, false); got != 0 {
		t.Fatalf("share with no budget = %d, want 0", got)
	}
	if got := CalculateMilestoneTaskAmount(10000, 0, 10000, false); got != 0 {
		t.Fatalf("share with zero tasks = %d, want 0", got)
	}
}

func TestEvaluateFinalPayoutReadiness(t *testing.T) {
	project := projectrepo.Project{
		TotalBudgetCents: 330000,
		PaidToDateCents:  39600,
	}
	tasks := []projectrepo.Task{
		{Status: projectrepo.TaskApproved},
		{Status: projectrepo.TaskInReview},
	}

	report := EvaluateFinalPayoutReadiness(project, tasks)
	if report.ReadyForFinalPayout {
		t.Fatal("project with an unapproved task must not be ready")
	}
	if report.ApprovedTasks != 1 || report.TotalTasks != 2 {
		t.Fatalf("counts = %d/%d, want 1/2", report.ApprovedTasks, report.TotalTasks)
	}
	if report.RemainingBudgetCents != 290400 {
		t.Fatalf("remaining = %d, want 290400", report.RemainingBudgetCents)
	}

	tasks[1].Status = projectrepo.TaskApproved
	report = EvaluateFinalPayoutReadiness(project, tasks)
	if !report.ReadyForFinalPayout {
		t.Fatalf("all-approved project must be ready, reason: %s", report.Reason)
	}
	if !report.AllTasksApproved || !report.HasRemainingBudget {
		t.Fatal("report flags must reflect readiness")
	}
}

func TestEvaluateFinalPayoutReadinessEdgeCases(t *testing.T) {
	// Zero tasks is never ready even with budget remaining.
	report := EvaluateFinalPayoutReadiness(projectrepo.Project{TotalBudgetCents: 1000}, nil)
	if report.ReadyForFinalPayout {
		t.Fatal("zero-task project must never be ready")
	}

	// Fully paid out: all approved but nothing left to pay.
	project := projectrepo.Project{TotalBudgetCents: 1000, PaidToDateCents: 1000}
	report = EvaluateFinalPayoutReadiness(project, []projectrepo.Task{{Status: projectrepo.TaskApproved}})
	if report.ReadyForFinalPayout {
		t.Fatal("exhausted budget must not be ready")
	}
	if !report.AllTasksApproved {
		t.Fatal("approval flag must still be reported")
	}
}
