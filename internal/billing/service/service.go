package service

import (
	"context"
	"time"

	"gigportal_backend/internal/billing/repository"
	"gigportal_backend/internal/billing/transport"
	"gigportal_backend/internal/events"
	projectrepo "gigportal_backend/internal/projects/repository"
	"gigportal_backend/platform/apperr"
	"gigportal_backend/platform/logger"
	"gigportal_backend/platform/txn"

	"github.com/google/uuid"
)

// Crediter is the narrow interface billing needs to move settled funds into
// the freelancer's wallet. Implemented by the wallet module; billing never
// reads wallet state.
type Crediter interface {
	Credit(ctx context.Context, userID uuid.UUID, amountCents int64, invoiceNumber string) error
	// Reverse compensates a credit when a later settlement step fails.
	Reverse(ctx context.Context, userID uuid.UUID, amountCents int64, invoiceNumber string) error
}

// Payer executes the actual money movement against the downstream payment
// collaborator. A timeout or failure is subject to the same rollback path as
// any other step.
type Payer interface {
	Execute(ctx context.Context, invoice repository.Invoice) error
	Refund(ctx context.Context, invoice repository.Invoice) error
}

// RetryScheduler schedules a delayed retry for an on-hold invoice.
type RetryScheduler interface {
	ScheduleInvoiceRetry(ctx context.Context, invoiceNumber string, runAt time.Time) error
}

// Policy is the slice of billing configuration the service consumes.
type Policy interface {
	FeeRates
	GetUpfrontRateBps() int
	GetOnHoldRetryDelay() time.Duration
	GetOnHoldMaxRetries() int
}

// Service is the payment and invoicing orchestration engine. It owns invoice
// records exclusively and is the only writer of project payment state.
type Service struct {
	projects  projectrepo.Store
	invoices  repository.Store
	exec      *txn.Executor
	guard     *Guard
	lifecycle *Lifecycle
	wallet    Crediter
	payer     Payer
	scheduler RetryScheduler // optional; nil disables automatic retries
	policy    Policy
	bus       events.Bus // optional
	log       *logger.Logger
	now       func() time.Time
}

// New creates the billing service with all collaborators wired.
func New(projects projectrepo.Store, invoices repository.Store, wallet Crediter, payer Payer, policy Policy, log *logger.Logger) *Service {
	return &Service{
		projects:  projects,
		invoices:  invoices,
		exec:      txn.NewExecutor(log),
		guard:     NewGuard(invoices, log),
		lifecycle: NewLifecycle(invoices, policy),
		wallet:    wallet,
		payer:     payer,
		policy:    policy,
		log:       log,
		now:       time.Now,
	}
}

// SetEventBus injects the event bus (set after construction to break circular deps).
func (s *Service) SetEventBus(bus events.Bus) {
	s.bus = bus
}

// SetRetryScheduler injects the scheduler client for on-hold retries.
func (s *Service) SetRetryScheduler(scheduler RetryScheduler) {
	s.scheduler = scheduler
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, event)
	}
}

// ── Settlement ────────────────────────────────────────────────────────────────

// settlementPlan captures the per-kind ledger mutation a settlement applies
// to the project record, so first attempts and retries run identical code.
type settlementPlan struct {
	invoice repository.Invoice
	task    *projectrepo.Task
	// mutate applies the ledger update to a freshly loaded project record.
	mutate func(p *projectrepo.Project)
}

// planFor rebuilds the settlement plan from the invoice kind. Used by the
// retry path, which only has the invoice at hand.
func (s *Service) planFor(ctx context.Context, invoice repository.Invoice) (settlementPlan, error) {
	var task *projectrepo.Task
	if invoice.TaskID != nil {
		t, err := s.projects.GetTask(ctx, *invoice.TaskID)
		if err != nil {
			return settlementPlan{}, err
		}
		task = &t
	}

	amount := invoice.TotalAmountCents
	var mutate func(p *projectrepo.Project)
	switch invoice.Kind {
	case repository.KindUpfront:
		mutate = func(p *projectrepo.Project) {
			p.PaidToDateCents += amount
			p.UpfrontPaid = true
		}
	case repository.KindManual:
		mutate = func(p *projectrepo.Project) {
			p.PaidToDateCents += amount
		}
	case repository.KindFinal:
		mutate = func(p *projectrepo.Project) {
			p.PaidToDateCents += amount
			p.Status = projectrepo.ProjectCompleted
		}
	case repository.KindAutoMilestone:
		mutate = func(p *projectrepo.Project) {
			p.PaidToDateCents += amount
			if p.PaidToDateCents >= p.TotalBudgetCents {
				p.Status = projectrepo.ProjectCompleted
			}
		}
	default:
		return settlementPlan{}, apperr.Internal("unknown invoice kind " + string(invoice.Kind))
	}

	return settlementPlan{invoice: invoice, task: task, mutate: mutate}, nil
}

// settle runs the payment execution transaction for a sent, on-hold or
// overdue invoice: execute the payment, update the project ledger, mark the
// task's invoice paid, credit the freelancer wallet, and finally mark the
// invoice paid. Any step failure rolls the preceding steps back and leaves
// the invoice on_hold with a scheduled retry; the invoice is never lost in
// an indeterminate state.
//
// The returned invoice reflects the outcome: paid on success, on_hold on a
// failed attempt. The error is non-nil only when even the hold could not be
// recorded.
func (s *Service) settle(ctx context.Context, plan settlementPlan) (repository.Invoice, error) {
	invoice := plan.invoice
	feeBps := s.policy.GetPlatformFeeBps(string(invoice.Kind))
	platformFee := roundCents(float64(invoice.TotalAmountCents) * float64(feeBps) / 10000.0)
	freelancerAmount := invoice.TotalAmountCents - platformFee

	var priorProject *projectrepo.Project
	var priorTask *projectrepo.Task

	steps := []txn.Step{
		{
			ID:          "execute_payment",
			Description: "execute payment for invoice " + invoice.InvoiceNumber,
			Run: func(ctx context.Context) (interface{}, error) {
				return nil, s.payer.Execute(ctx, invoice)
			},
			Rollback: func(ctx context.Context) error {
				return s.payer.Refund(ctx, invoice)
			},
		},
		{
			ID:          "update_project_ledger",
			Description: "apply " + string(invoice.Kind) + " payment to project ledger",
			Run: func(ctx context.Context) (interface{}, error) {
				// Read immediately before acting: a concurrent settlement
				// of the same invoice has already moved paidToDate, which
				// the budget invariant below surfaces as a conflict.
				project, err := s.projects.GetProject(ctx, invoice.ProjectID)
				if err != nil {
					return nil, err
				}
				snapshot := project
				priorProject = &snapshot

				updated := project
				plan.mutate(&updated)
				if updated.PaidToDateCents > updated.TotalBudgetCents {
					return nil, apperr.Conflict("payment would exceed project budget")
				}
				if err := s.projects.UpdateProject(ctx, updated); err != nil {
					return nil, err
				}
				return updated, nil
			},
			Rollback: func(ctx context.Context) error {
				if priorProject == nil {
					return nil
				}
				return s.projects.UpdateProject(ctx, *priorProject)
			},
		},
	}

	if plan.task != nil {
		task := *plan.task
		steps = append(steps, txn.Step{
			ID:          "mark_task_invoice_paid",
			Description: "mark invoice paid on task " + task.ID.String(),
			Run: func(ctx context.Context) (interface{}, error) {
				current, err := s.projects.GetTask(ctx, task.ID)
				if err != nil {
					return nil, err
				}
				snapshot := current
				priorTask = &snapshot

				current.InvoicePaid = true
				if err := s.projects.UpdateTask(ctx, current); err != nil {
					return nil, err
				}
				return current, nil
			},
			Rollback: func(ctx context.Context) error {
				if priorTask == nil {
					return nil
				}
				return s.projects.UpdateTask(ctx, *priorTask)
			},
		})
	}

	steps = append(steps,
		txn.Step{
			ID:          "credit_wallet",
			Description: "credit freelancer wallet",
			Run: func(ctx context.Context) (interface{}, error) {
				return nil, s.wallet.Credit(ctx, invoice.FreelancerID, freelancerAmount, invoice.InvoiceNumber)
			},
			Rollback: func(ctx context.Context) error {
				return s.wallet.Reverse(ctx, invoice.FreelancerID, freelancerAmount, invoice.InvoiceNumber)
			},
		},
		txn.Step{
			ID:          "mark_invoice_paid",
			Description: "transition invoice " + invoice.InvoiceNumber + " to paid",
			Run: func(ctx context.Context) (interface{}, error) {
				return s.lifecycle.Transition(ctx, invoice, repository.StatusPaid)
			},
			// Last step: nothing after it can fail, so no rollback is needed
			// and paid stays terminal.
		},
	)

	result := s.exec.Run(ctx, steps)
	if result.Success {
		paid := result.Results["mark_invoice_paid"].(repository.Invoice)
		s.log.PaymentEvent("invoice_paid", invoice.ProjectID.String(), paid.InvoiceNumber, paid.TotalAmountCents)
		return paid, nil
	}

	// The payment attempt failed and its steps were compensated. Park the
	// invoice on_hold so it stays retryable.
	held, holdErr := s.lifecycle.Hold(ctx, invoice)
	if holdErr != nil {
		// A concurrent settlement may have paid the invoice between our
		// failed attempt and the hold. Re-read before giving up.
		if fresh, readErr := s.invoices.GetByNumber(ctx, invoice.InvoiceNumber); readErr == nil && fresh.Status == repository.StatusPaid {
			return fresh, nil
		}
		return repository.Invoice{}, apperr.Wrap(apperr.KindInternal,
			"payment failed and invoice could not be put on hold", result.Err)
	}

	if s.scheduler != nil && held.RetryCount <= s.policy.GetOnHoldMaxRetries() {
		runAt := s.now().Add(s.policy.GetOnHoldRetryDelay())
		if err := s.scheduler.ScheduleInvoiceRetry(ctx, held.InvoiceNumber, runAt); err != nil {
			s.log.Error("failed to schedule invoice retry",
				"invoice_number", held.InvoiceNumber, "error", err.Error())
		}
	}

	s.log.PaymentEvent("invoice_on_hold", invoice.ProjectID.String(), held.InvoiceNumber, held.TotalAmountCents)
	return held, nil
}

// issueInvoice creates an invoice in draft and moves it to sent inside a
// compensating transaction. Drafts are engine-internal; the invoice only
// becomes visible to the paying party once sent.
func (s *Service) issueInvoice(ctx context.Context, invoice repository.Invoice) (repository.Invoice, error) {
	var created repository.Invoice

	result := s.exec.Run(ctx, []txn.Step{
		{
			ID:          "create_invoice",
			Description: "create draft invoice for project " + invoice.ProjectID.String(),
			Run: func(ctx context.Context) (interface{}, error) {
				number, err := s.invoices.NextInvoiceNumber(ctx)
				if err != nil {
					return nil, err
				}
				now := s.now().UTC()
				due := now.Add(14 * 24 * time.Hour)
				invoice.InvoiceNumber = number
				invoice.Status = repository.StatusDraft
				invoice.DueAt = &due
				invoice.CreatedAt = now
				invoice.UpdatedAt = now
				if err := s.invoices.Create(ctx, invoice); err != nil {
					return nil, err
				}
				created = invoice
				return invoice, nil
			},
			Rollback: func(ctx context.Context) error {
				return s.invoices.Delete(ctx, created.InvoiceNumber)
			},
		},
		{
			ID:          "send_invoice",
			Description: "transition invoice to sent",
			Run: func(ctx context.Context) (interface{}, error) {
				return s.lifecycle.Transition(ctx, created, repository.StatusSent)
			},
		},
	})
	if !result.Success {
		return repository.Invoice{}, asAppError(result.Err)
	}
	return result.Results["send_invoice"].(repository.Invoice), nil
}

// publishPaidEvents emits the event vocabulary for a settled invoice.
func (s *Service) publishPaidEvents(ctx context.Context, paid repository.Invoice, project projectrepo.Project) {
	s.publish(ctx, events.InvoicePaid{
		BaseEvent:        events.NewBaseEvent(),
		ProjectID:        paid.ProjectID,
		CommissionerID:   paid.CommissionerID,
		FreelancerID:     paid.FreelancerID,
		InvoiceNumber:    paid.InvoiceNumber,
		InvoiceKind:      string(paid.Kind),
		TotalAmountCents: paid.TotalAmountCents,
		FreelancerCents:  paid.FreelancerAmountCents,
	})

	switch paid.Kind {
	case repository.KindUpfront:
		s.publish(ctx, events.UpfrontPaymentExecuted{
			BaseEvent:      events.NewBaseEvent(),
			ProjectID:      paid.ProjectID,
			CommissionerID: paid.CommissionerID,
			FreelancerID:   paid.FreelancerID,
			InvoiceNumber:  paid.InvoiceNumber,
			AmountCents:    paid.TotalAmountCents,
		})
	case repository.KindFinal:
		s.publish(ctx, events.FinalPaymentExecuted{
			BaseEvent:      events.NewBaseEvent(),
			ProjectID:      paid.ProjectID,
			CommissionerID: paid.CommissionerID,
			FreelancerID:   paid.FreelancerID,
			InvoiceNumber:  paid.InvoiceNumber,
			AmountCents:    paid.TotalAmountCents,
		})
	}

	// Completion of the project is observed from the post-settlement record.
	fresh, err := s.projects.GetProject(ctx, project.ID)
	if err == nil && fresh.Status == projectrepo.ProjectCompleted && project.Status != projectrepo.ProjectCompleted {
		s.publish(ctx, events.ProjectCompleted{
			BaseEvent:       events.NewBaseEvent(),
			ProjectID:       fresh.ID,
			CommissionerID:  fresh.CommissionerID,
			FreelancerID:    fresh.FreelancerID,
			PaidToDateCents: fresh.PaidToDateCents,
		})
		s.publish(ctx, events.RatingPrompt{
			BaseEvent:      events.NewBaseEvent(),
			ProjectID:      fresh.ID,
			CommissionerID: fresh.CommissionerID,
			FreelancerID:   fresh.FreelancerID,
		})
	}
}

// ── Retry & maintenance entry points ─────────────────────────────────────────

// RetryInvoicePayment re-enters the settlement path for an on-hold (or still
// sent) invoice. Automatic retries are bounded; once the limit is reached
// only an explicit manual trigger proceeds, so routine polling can never
// fire accidental retries.
func (s *Service) RetryInvoicePayment(ctx context.Context, invoiceNumber string, manual bool) (*transport.InvoiceResponse, error) {
	out, err := s.guard.SingleFlight("invoice:"+invoiceNumber, func() (interface{}, error) {
		invoice, state, err := s.guard.CheckInvoicePayable(ctx, invoiceNumber)
		if err != nil {
			return nil, err
		}
		if state == AlreadySettled {
			return invoice, nil
		}

		if !manual && invoice.RetryCount >= s.policy.GetOnHoldMaxRetries() {
			return nil, apperr.Conflict("automatic retry limit reached; a manual trigger is required")
		}

		plan, err := s.planFor(ctx, invoice)
		if err != nil {
			return nil, err
		}
		project, err := s.projects.GetProject(ctx, invoice.ProjectID)
		if err != nil {
			return nil, err
		}

		settled, err := s.settle(ctx, plan)
		if err != nil {
			return nil, err
		}
		if settled.Status == repository.StatusPaid {
			s.publishPaidEvents(ctx, settled, project)
		}
		return settled, nil
	})
	if err != nil {
		return nil, err
	}

	resp := toInvoiceResponse(out.(repository.Invoice))
	return &resp, nil
}

// MarkOverdueInvoices sweeps sent invoices past their due date to overdue.
// Returns the number of invoices transitioned.
func (s *Service) MarkOverdueInvoices(ctx context.Context, limit int) (int, error) {
	candidates, err := s.invoices.ListOverdueCandidates(ctx, s.now().UTC(), limit)
	if err != nil {
		return 0, err
	}

	var count int
	for _, invoice := range candidates {
		if _, err := s.lifecycle.Transition(ctx, invoice, repository.StatusOverdue); err != nil {
			s.log.Error("failed to mark invoice overdue",
				"invoice_number", invoice.InvoiceNumber, "error", err.Error())
			continue
		}
		count++
	}
	return count, nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

// ListInvoices returns invoices visible to the actor. Draft invoices are
// excluded for the paying party.
func (s *Service) ListInvoices(ctx context.Context, actorID uuid.UUID, params transport.ListInvoicesRequest) ([]transport.InvoiceResponse, error) {
	listParams := repository.ListParams{ExcludeDrafts: true}
	if params.ProjectID != nil {
		listParams.ProjectID = params.ProjectID
	}
	if params.Status != "" {
		status := repository.Status(params.Status)
		listParams.Status = &status
	}
	if params.Kind != "" {
		kind := repository.Kind(params.Kind)
		listParams.Kind = &kind
	}

	invoices, err := s.invoices.List(ctx, actorID, listParams)
	if err != nil {
		return nil, err
	}

	out := make([]transport.InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, toInvoiceResponse(inv))
	}
	return out, nil
}

// GetReadiness reports the completion-readiness of a project for either party.
func (s *Service) GetReadiness(ctx context.Context, actorID, projectID uuid.UUID) (*transport.ReadinessReport, error) {
	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.CommissionerID != actorID && project.FreelancerID != actorID {
		return nil, apperr.Forbidden("not a party to this project")
	}
	if err := s.guard.RequireMethod(project, projectrepo.MethodCompletion, "readiness"); err != nil {
		return nil, err
	}

	tasks, err := s.projects.ListTasks(ctx, projectID)
	if err != nil {
		return nil, err
	}
	report := EvaluateFinalPayoutReadiness(project, tasks)
	return &report, nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func toInvoiceResponse(inv repository.Invoice) transport.InvoiceResponse {
	return transport.InvoiceResponse{
		InvoiceNumber:         inv.InvoiceNumber,
		ProjectID:             inv.ProjectID,
		TaskID:                inv.TaskID,
		Kind:                  string(inv.Kind),
		Status:                string(inv.Status),
		TotalAmountCents:      inv.TotalAmountCents,
		PlatformFeeCents:      inv.PlatformFeeCents,
		FreelancerAmountCents: inv.FreelancerAmountCents,
		ProcessedAt:           inv.ProcessedAt,
		DueAt:                 inv.DueAt,
		CreatedAt:             inv.CreatedAt,
	}
}

// asAppError preserves typed domain errors surfacing from transaction steps
// and wraps everything else as internal.
func asAppError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*apperr.Error); ok {
		return err
	}
	return apperr.Wrap(apperr.KindInternal, "transaction failed", err)
}
