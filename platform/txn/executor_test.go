package txn

import (
	"context"
	"errors"
	"testing"

	"gigportal_backend/platform/logger"
)

func testExecutor() *Executor {
	return NewExecutor(logger.New("development"))
}

func TestRun_AllStepsSucceed(t *testing.T) {
	var order []string
	steps := []Step{
		{
			ID:  "first",
			Run: func(context.Context) (interface{}, error) { order = append(order, "first"); return 1, nil },
		},
		{
			ID:  "second",
			Run: func(context.Context) (interface{}, error) { order = append(order, "second"); return 2, nil },
		},
	}

	res := testExecutor().Run(context.Background(), steps)

	if !res.Success {
		t.Fatalf("expected success, got failure at %q: %v", res.FailedStepID, res.Err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("expected steps in registration order, got %v", order)
	}
	if res.Results["first"] != 1 || res.Results["second"] != 2 {
		t.Fatalf("expected step results recorded, got %v", res.Results)
	}
}

func TestRun_FailureRollsBackInReverseOrder(t *testing.T) {
	var rollbacks []string
	boom := errors.New("boom")

	steps := []Step{
		{
			ID:       "a",
			Run:      func(context.Context) (interface{}, error) { return nil, nil },
			Rollback: func(context.Context) error { rollbacks = append(rollbacks, "a"); return nil },
		},
		{
			ID:       "b",
			Run:      func(context.Context) (interface{}, error) { return nil, nil },
			Rollback: func(context.Context) error { rollbacks = append(rollbacks, "b"); return nil },
		},
		{
			ID:  "c",
			Run: func(context.Context) (interface{}, error) { return nil, boom },
			Rollback: func(context.Context) error {
				t.Fatal("rollback of the failing step must not run")
				return nil
			},
		},
	}

	res := testExecutor().Run(context.Background(), steps)

	if res.Success {
		t.Fatal("expected failure")
	}
	if res.FailedStepID != "c" {
		t.Fatalf("expected failed step c, got %q", res.FailedStepID)
	}
	if !errors.Is(res.Err, boom) {
		t.Fatalf("expected boom error, got %v", res.Err)
	}
	if !res.RolledBack {
		t.Fatal("expected RolledBack to be true")
	}
	if len(rollbacks) != 2 || rollbacks[0] != "b" || rollbacks[1] != "a" {
		t.Fatalf("expected rollbacks in reverse order [b a], got %v", rollbacks)
	}
}

func TestRun_RollbackInvokedAtMostOnce(t *testing.T) {
	counts := map[string]int{}

	steps := []Step{
		{
			ID:       "a",
			Run:      func(context.Context) (interface{}, error) { return nil, nil },
			Rollback: func(context.Context) error { counts["a"]++; return nil },
		},
		{
			ID:  "b",
			Run: func(context.Context) (interface{}, error) { return nil, errors.New("fail") },
		},
	}

	testExecutor().Run(context.Background(), steps)

	if counts["a"] != 1 {
		t.Fatalf("expected rollback of a exactly once, got %d", counts["a"])
	}
}

func TestRun_RollbackFailureIsSwallowed(t *testing.T) {
	var laterRollback bool

	steps := []Step{
		{
			ID:       "a",
			Run:      func(context.Context) (interface{}, error) { return nil, nil },
			Rollback: func(context.Context) error { laterRollback = true; return nil },
		},
		{
			ID:       "b",
			Run:      func(context.Context) (interface{}, error) { return nil, nil },
			Rollback: func(context.Context) error { return errors.New("rollback failed") },
		},
		{
			ID:  "c",
			Run: func(context.Context) (interface{}, error) { return nil, errors.New("fail") },
		},
	}

	res := testExecutor().Run(context.Background(), steps)

	if res.Success {
		t.Fatal("expected failure")
	}
	// b's rollback error must not prevent a's rollback from running.
	if !laterRollback {
		t.Fatal("expected rollback of a to run despite b's rollback failing")
	}
}

func TestRun_StepWithoutRollbackIsSkippedDuringCompensation(t *testing.T) {
	var rolledBack bool

	steps := []Step{
		{
			ID:       "a",
			Run:      func(context.Context) (interface{}, error) { return nil, nil },
			Rollback: func(context.Context) error { rolledBack = true; return nil },
		},
		{
			ID:  "readonly",
			Run: func(context.Context) (interface{}, error) { return "data", nil },
		},
		{
			ID:  "c",
			Run: func(context.Context) (interface{}, error) { return nil, errors.New("fail") },
		},
	}

	res := testExecutor().Run(context.Background(), steps)

	if res.Success {
		t.Fatal("expected failure")
	}
	if !rolledBack {
		t.Fatal("expected rollback of a")
	}
}
