package service

import (
	"math"

	"gigportal_backend/internal/billing/transport"
	projectrepo "gigportal_backend/internal/projects/repository"
)

// The calculation functions in this file are pure and side-effect free.
// All amounts are cents; all rates are basis points.

// roundCents rounds a float amount to the nearest cent.
func roundCents(v float64) int64 {
	return int64(math.Round(v))
}

// CalculateUpfrontAmount returns the initial commitment payment of a
// completion project: the upfront share of the total budget.
func CalculateUpfrontAmount(totalBudgetCents int64, upfrontRateBps int) int64 {
	return roundCents(float64(totalBudgetCents) * float64(upfrontRateBps) / 10000.0)
}

// CalculateManualInvoiceAmount returns the per-task share of the budget
// remaining after the upfront portion, for a manual interim invoice.
// A project with zero tasks has no per-task share; the second return value
// reports whether the amount is applicable.
func CalculateManualInvoiceAmount(totalBudgetCents int64, totalTasks int, upfrontRateBps int) (int64, bool) {
	if totalTasks <= 0 {
		return 0, false
	}
	remainder := float64(totalBudgetCents) * float64(10000-upfrontRateBps) / 10000.0
	return roundCents(remainder / float64(totalTasks)), true
}

// CalculateRemainingBudget returns the budget not yet paid out, floored at zero.
func CalculateRemainingBudget(totalBudgetCents, paidToDateCents int64) int64 {
	remaining := totalBudgetCents - paidToDateCents
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CalculateMilestoneTaskAmount returns the invoice amount for one approved
// task of a milestone project. The nominal amount is an equal split of the
// budget; the last task absorbs the rounding remainder so that the lifetime
// sum of payouts equals the total budget exactly. The amount is always
// capped at the remaining budget.
func CalculateMilestoneTaskAmount(totalBudgetCents int64, totalTasks int, remainingCents int64, lastTask bool) int64 {
	if totalTasks <= 0 || remainingCents <= 0 {
		return 0
	}
	if lastTask {
		return remainingCents
	}
	share := roundCents(float64(totalBudgetCents) / float64(totalTasks))
	if share > remainingCents {
		return remainingCents
	}
	return share
}

// EvaluateFinalPayoutReadiness decides whether a completion project's final
// payout may be released: every task approved and budget remaining. A
// project with zero tasks is never ready.
func EvaluateFinalPayoutReadiness(project projectrepo.Project, tasks []projectrepo.Task) transport.ReadinessReport {
	report := transport.ReadinessReport{
		TotalTasks:           len(tasks),
		RemainingBudgetCents: CalculateRemainingBudget(project.TotalBudgetCents, project.PaidToDateCents),
	}
	report.HasRemainingBudget = report.RemainingBudgetCents > 0

	for _, t := range tasks {
		if t.Status == projectrepo.TaskApproved {
			report.ApprovedTasks++
		}
	}

	switch {
	case report.TotalTasks == 0:
		report.Reason = "project has no tasks"
	case report.ApprovedTasks < report.TotalTasks:
		report.Reason = "not all tasks are approved"
	case !report.HasRemainingBudget:
		report.Reason = "no remaining budget to pay out"
	default:
		report.AllTasksApproved = true
		report.ReadyForFinalPayout = true
		report.Reason = "all tasks approved and budget remaining"
	}

	if report.ApprovedTasks == report.TotalTasks && report.TotalTasks > 0 {
		report.AllTasksApproved = true
	}

	return report
}
