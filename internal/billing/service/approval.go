package service

import (
	"context"

	"github.com/google/uuid"

	"gigportal_backend/internal/billing/repository"
	"gigportal_backend/internal/billing/transport"
	"gigportal_backend/internal/events"
	projectrepo "gigportal_backend/internal/projects/repository"
	"gigportal_backend/platform/apperr"
	"gigportal_backend/platform/txn"
)

// ApproveTask is the per-billing-model entry point for task approval. The
// two flows are mutually exclusive and selected structurally from the
// project's invoicing method:
//
//   - milestone: approving a task always creates and pays its own invoice
//     in the same operation; task state and money movement are 1:1.
//   - completion: approving a task only releases the final payout once the
//     completion-readiness gate passes. A single approved task must never
//     unlock the remaining budget.
func (s *Service) ApproveTask(ctx context.Context, commissionerID uuid.UUID, projectID uuid.UUID, taskID uuid.UUID) (*transport.ApproveTaskResponse, error) {
	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.CommissionerID != commissionerID {
		return nil, apperr.Forbidden("only the commissioner can approve a task")
	}
	if project.Status == projectrepo.ProjectPaused {
		return nil, apperr.Conflict("project is paused")
	}

	task, err := s.projects.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.ProjectID != projectID {
		return nil, apperr.NotFound("task does not belong to this project")
	}

	switch project.InvoicingMethod {
	case projectrepo.MethodMilestone:
		return s.approveMilestoneTask(ctx, project, task)
	case projectrepo.MethodCompletion:
		return s.approveCompletionTask(ctx, project, task)
	default:
		return nil, apperr.Internal("project has unknown invoicing method " + string(project.InvoicingMethod))
	}
}

// approveTaskRecord flips the task to approved inside a compensating
// transaction step list. Duplicate approval triggers are tolerated: an
// already approved task skips the write.
func (s *Service) approveTaskStep(task projectrepo.Task, out *projectrepo.Task) txn.Step {
	return txn.Step{
		ID:          "approve_task",
		Description: "approve task " + task.ID.String(),
		Run: func(ctx context.Context) (interface{}, error) {
			current, err := s.projects.GetTask(ctx, task.ID)
			if err != nil {
				return nil, err
			}
			if current.Status == projectrepo.TaskApproved {
				*out = current
				return current, nil
			}
			if current.Status != projectrepo.TaskInReview {
				return nil, apperr.Conflict("task must be in review to be approved")
			}

			approvedAt := s.now().UTC()
			current.Status = projectrepo.TaskApproved
			current.Completed = true
			current.ApprovedAt = &approvedAt
			current.ManualInvoiceEligible = true
			if err := s.projects.UpdateTask(ctx, current); err != nil {
				return nil, err
			}
			*out = current
			return current, nil
		},
		Rollback: func(ctx context.Context) error {
			// Restore the pre-approval record so a failed transaction
			// leaves the task unapproved.
			current, err := s.projects.GetTask(ctx, task.ID)
			if err != nil {
				return err
			}
			current.Status = task.Status
			current.Completed = task.Completed
			current.ApprovedAt = task.ApprovedAt
			current.ManualInvoiceEligible = task.ManualInvoiceEligible
			return s.projects.UpdateTask(ctx, current)
		},
	}
}

// ── Milestone flow ───────────────────────────────────────────────────────────

func (s *Service) approveMilestoneTask(ctx context.Context, project projectrepo.Project, task projectrepo.Task) (*transport.ApproveTaskResponse, error) {
	out, err := s.guard.SingleFlight("task:"+task.ID.String(), func() (interface{}, error) {
		// Duplicate delivery of the approval event: the task's own invoice
		// may already exist from an earlier trigger, either settled or parked
		// by a settlement failure. Never mint a second one for the same task.
		existing, err := s.invoices.FindByTaskAndKind(ctx, task.ID, repository.KindAutoMilestone)
		if err != nil {
			return nil, err
		}
		if task.InvoicePaid || (existing != nil && existing.Status == repository.StatusPaid) {
			resp := &transport.ApproveTaskResponse{
				Task:             toApprovedTaskView(task),
				PaymentTriggered: true,
				ProjectStatus:    string(project.Status),
			}
			if existing != nil {
				inv := toInvoiceResponse(*existing)
				resp.Invoice = &inv
			}
			return resp, nil
		}
		if existing != nil && existing.Status != repository.StatusDraft {
			return s.resettleMilestoneInvoice(ctx, project, task, *existing)
		}

		tasks, err := s.projects.ListTasks(ctx, project.ID)
		if err != nil {
			return nil, err
		}
		paidTasks := 0
		for _, t := range tasks {
			if t.InvoicePaid {
				paidTasks++
			}
		}
		remaining := project.RemainingBudgetCents()
		amount := CalculateMilestoneTaskAmount(project.TotalBudgetCents, project.TotalTasks, remaining, paidTasks == project.TotalTasks-1)
		if amount <= 0 {
			return nil, apperr.Conflict("no remaining budget for this task's invoice")
		}

		// Phase one: approve the task and issue its invoice. A failure here
		// rolls everything back and leaves the task unapproved.
		var approved projectrepo.Task
		var issued repository.Invoice
		result := s.exec.Run(ctx, []txn.Step{
			s.approveTaskStep(task, &approved),
			{
				ID:          "issue_invoice",
				Description: "issue milestone invoice for task " + task.ID.String(),
				Run: func(ctx context.Context) (interface{}, error) {
					taskID := task.ID
					inv, err := s.issueInvoice(ctx, repository.Invoice{
						ProjectID:        project.ID,
						TaskID:           &taskID,
						CommissionerID:   project.CommissionerID,
						FreelancerID:     project.FreelancerID,
						Kind:             repository.KindAutoMilestone,
						TotalAmountCents: amount,
					})
					if err != nil {
						return nil, err
					}
					issued = inv
					return inv, nil
				},
			},
		})
		if !result.Success {
			return nil, asAppError(result.Err)
		}

		s.publish(ctx, events.TaskApproved{
			BaseEvent:       events.NewBaseEvent(),
			ProjectID:       project.ID,
			TaskID:          task.ID,
			CommissionerID:  project.CommissionerID,
			FreelancerID:    project.FreelancerID,
			InvoicingMethod: string(project.InvoicingMethod),
		})

		// Phase two: settle. A failure here must not undo the approval; the
		// invoice is parked on_hold and retried.
		plan := settlementPlan{invoice: issued, task: &approved, mutate: func(p *projectrepo.Project) {
			p.PaidToDateCents += amount
			if p.PaidToDateCents >= p.TotalBudgetCents {
				p.Status = projectrepo.ProjectCompleted
			}
		}}
		settled, err := s.settle(ctx, plan)
		if err != nil {
			return nil, err
		}

		fresh, err := s.projects.GetProject(ctx, project.ID)
		if err != nil {
			fresh = project
		}
		if settled.Status == repository.StatusPaid {
			s.publishPaidEvents(ctx, settled, project)
		}

		inv := toInvoiceResponse(settled)
		return &transport.ApproveTaskResponse{
			Task:             toApprovedTaskView(approved),
			PaymentTriggered: true,
			Invoice:          &inv,
			ProjectStatus:    string(fresh.Status),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(*transport.ApproveTaskResponse), nil
}

// resettleMilestoneInvoice pays a task's already-issued milestone invoice
// instead of minting a new one. Reached when an approval trigger is
// re-delivered while the first settlement attempt left the invoice parked.
func (s *Service) resettleMilestoneInvoice(ctx context.Context, project projectrepo.Project, task projectrepo.Task, invoice repository.Invoice) (*transport.ApproveTaskResponse, error) {
	var approved projectrepo.Task
	result := s.exec.Run(ctx, []txn.Step{s.approveTaskStep(task, &approved)})
	if !result.Success {
		return nil, asAppError(result.Err)
	}

	amount := invoice.TotalAmountCents
	plan := settlementPlan{invoice: invoice, task: &approved, mutate: func(p *projectrepo.Project) {
		p.PaidToDateCents += amount
		if p.PaidToDateCents >= p.TotalBudgetCents {
			p.Status = projectrepo.ProjectCompleted
		}
	}}
	settled, err := s.settle(ctx, plan)
	if err != nil {
		return nil, err
	}

	fresh, err := s.projects.GetProject(ctx, project.ID)
	if err != nil {
		fresh = project
	}
	if settled.Status == repository.StatusPaid {
		s.publishPaidEvents(ctx, settled, project)
	}

	inv := toInvoiceResponse(settled)
	return &transport.ApproveTaskResponse{
		Task:             toApprovedTaskView(approved),
		PaymentTriggered: true,
		Invoice:          &inv,
		ProjectStatus:    string(fresh.Status),
	}, nil
}

// ── Completion flow ──────────────────────────────────────────────────────────

func (s *Service) approveCompletionTask(ctx context.Context, project projectrepo.Project, task projectrepo.Task) (*transport.ApproveTaskResponse, error) {
	var approved projectrepo.Task
	result := s.exec.Run(ctx, []txn.Step{s.approveTaskStep(task, &approved)})
	if !result.Success {
		return nil, asAppError(result.Err)
	}

	s.publish(ctx, events.TaskApproved{
		BaseEvent:       events.NewBaseEvent(),
		ProjectID:       project.ID,
		TaskID:          task.ID,
		CommissionerID:  project.CommissionerID,
		FreelancerID:    project.FreelancerID,
		InvoicingMethod: string(project.InvoicingMethod),
	})

	// Readiness is evaluated on fresh state: the approval above counts.
	tasks, err := s.projects.ListTasks(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	freshProject, err := s.projects.GetProject(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	report := EvaluateFinalPayoutReadiness(freshProject, tasks)

	resp := &transport.ApproveTaskResponse{
		Task:          toApprovedTaskView(approved),
		Readiness:     &report,
		ProjectStatus: string(freshProject.Status),
	}

	if !report.ReadyForFinalPayout {
		// The critical correctness property: the task ends approved with no
		// payment triggered.
		return resp, nil
	}

	invoice, err := s.releaseFinalPayout(ctx, freshProject)
	if err != nil {
		return nil, err
	}
	if invoice != nil {
		resp.PaymentTriggered = true
		resp.Invoice = invoice
		if final, err := s.projects.GetProject(ctx, project.ID); err == nil {
			resp.ProjectStatus = string(final.Status)
		}
	}
	return resp, nil
}

// releaseFinalPayout creates, sends and settles the final invoice for a
// completion project. Idempotent: concurrent or repeated triggers observe
// the settled state and no-op. Returns nil when nothing was to pay.
func (s *Service) releaseFinalPayout(ctx context.Context, project projectrepo.Project) (*transport.InvoiceResponse, error) {
	out, err := s.guard.SingleFlight("final:"+project.ID.String(), func() (interface{}, error) {
		if err := s.guard.RequireMethod(project, projectrepo.MethodCompletion, "final_payout"); err != nil {
			return nil, err
		}

		// Read immediately before acting: a concurrent "approve last task"
		// call may have completed the payout already.
		fresh, err := s.projects.GetProject(ctx, project.ID)
		if err != nil {
			return nil, err
		}
		existing, err := s.activeFinalInvoice(ctx, fresh.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.Status == repository.StatusPaid {
			resp := toInvoiceResponse(*existing)
			return &resp, nil
		}
		if fresh.Status == projectrepo.ProjectCompleted {
			if existing != nil {
				resp := toInvoiceResponse(*existing)
				return &resp, nil
			}
			return (*transport.InvoiceResponse)(nil), nil
		}

		// The final payout is the remaining budget: the total minus the
		// upfront and every manual invoice already paid, all of which have
		// accrued into paidToDate. Cross-check the ledger against the paid
		// invoices before releasing the rest of the budget on top of it.
		upfrontPaid, err := s.invoices.SumPaidByProjectAndKind(ctx, fresh.ID, repository.KindUpfront)
		if err != nil {
			return nil, err
		}
		manualPaid, err := s.invoices.SumPaidByProjectAndKind(ctx, fresh.ID, repository.KindManual)
		if err != nil {
			return nil, err
		}
		if upfrontPaid+manualPaid != fresh.PaidToDateCents {
			return nil, apperr.Internal("project ledger does not match paid invoices")
		}
		amount := CalculateRemainingBudget(fresh.TotalBudgetCents, fresh.PaidToDateCents)
		if amount <= 0 {
			return (*transport.InvoiceResponse)(nil), nil
		}

		invoice := existing
		if invoice == nil {
			issued, err := s.issueInvoice(ctx, repository.Invoice{
				ProjectID:        fresh.ID,
				CommissionerID:   fresh.CommissionerID,
				FreelancerID:     fresh.FreelancerID,
				Kind:             repository.KindFinal,
				TotalAmountCents: amount,
			})
			if err != nil {
				return nil, err
			}
			invoice = &issued
		}

		settled, err := s.settle(ctx, settlementPlan{
			invoice: *invoice,
			mutate: func(p *projectrepo.Project) {
				p.PaidToDateCents += invoice.TotalAmountCents
				p.Status = projectrepo.ProjectCompleted
			},
		})
		if err != nil {
			return nil, err
		}
		if settled.Status == repository.StatusPaid {
			s.publishPaidEvents(ctx, settled, fresh)
		}
		resp := toInvoiceResponse(settled)
		return &resp, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(*transport.InvoiceResponse), nil
}

// activeFinalInvoice returns the project's non-cancelled final invoice, if any.
func (s *Service) activeFinalInvoice(ctx context.Context, projectID uuid.UUID) (*repository.Invoice, error) {
	finals, err := s.invoices.FindByProjectAndKind(ctx, projectID, repository.KindFinal)
	if err != nil {
		return nil, err
	}
	for i := range finals {
		if finals[i].Status != repository.StatusCancelled {
			return &finals[i], nil
		}
	}
	return nil, nil
}

func toApprovedTaskView(t projectrepo.Task) transport.TaskView {
	return transport.TaskView{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		Status:      string(t.Status),
		Completed:   t.Completed,
		ApprovedAt:  t.ApprovedAt,
		InvoicePaid: t.InvoicePaid,
	}
}
