package service

import (
	"context"

	"github.com/google/uuid"

	"gigportal_backend/internal/billing/repository"
	"gigportal_backend/internal/billing/transport"
	projectrepo "gigportal_backend/internal/projects/repository"
	"gigportal_backend/platform/apperr"
)

// ExecuteUpfront charges the commitment payment of a completion project.
// Idempotent: a second trigger after the upfront has settled returns the
// existing invoice instead of charging twice.
func (s *Service) ExecuteUpfront(ctx context.Context, commissionerID, projectID uuid.UUID) (*transport.PaymentResponse, error) {
	out, err := s.guard.SingleFlight("upfront:"+projectID.String(), func() (interface{}, error) {
		project, err := s.projects.GetProject(ctx, projectID)
		if err != nil {
			return nil, err
		}
		if project.CommissionerID != commissionerID {
			return nil, apperr.Forbidden("only the commissioner can execute the upfront payment")
		}
		if err := s.guard.RequireMethod(project, projectrepo.MethodCompletion, "upfront_payment"); err != nil {
			return nil, err
		}

		if project.UpfrontPaid {
			existing, err := s.invoices.FindByProjectAndKind(ctx, projectID, repository.KindUpfront)
			if err != nil {
				return nil, err
			}
			for i := range existing {
				if existing[i].Status == repository.StatusPaid {
					return &transport.PaymentResponse{
						Invoice:       toInvoiceResponse(existing[i]),
						ProjectStatus: string(project.Status),
					}, nil
				}
			}
			return nil, apperr.Conflict("upfront payment already recorded")
		}

		// An upfront invoice parked on_hold from an earlier failed attempt is
		// retried rather than duplicated.
		invoice, err := s.pendingInvoice(ctx, projectID, repository.KindUpfront)
		if err != nil {
			return nil, err
		}
		if invoice == nil {
			amount := CalculateUpfrontAmount(project.TotalBudgetCents, s.policy.GetUpfrontRateBps())
			if amount <= 0 {
				return nil, apperr.Validation("project budget yields no upfront amount")
			}
			issued, err := s.issueInvoice(ctx, repository.Invoice{
				ProjectID:        project.ID,
				CommissionerID:   project.CommissionerID,
				FreelancerID:     project.FreelancerID,
				Kind:             repository.KindUpfront,
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
				p.UpfrontPaid = true
			},
		})
		if err != nil {
			return nil, err
		}
		if settled.Status == repository.StatusPaid {
			s.publishPaidEvents(ctx, settled, project)
		}

		status := string(project.Status)
		if fresh, err := s.projects.GetProject(ctx, projectID); err == nil {
			status = string(fresh.Status)
		}
		return &transport.PaymentResponse{
			Invoice:       toInvoiceResponse(settled),
			ProjectStatus: status,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(*transport.PaymentResponse), nil
}

// CreateManualInvoice issues and settles an interim invoice for one approved
// task of a completion project. The operation exists only as an explicit
// manual trigger; the request amount must match the computed per-task share.
func (s *Service) CreateManualInvoice(ctx context.Context, commissionerID, projectID uuid.UUID, req transport.ManualInvoiceRequest) (*transport.PaymentResponse, error) {
	if !req.ManualTrigger {
		return nil, apperr.Validation("manual invoices require an explicit manual trigger")
	}

	out, err := s.guard.SingleFlight("manual:"+req.TaskID.String(), func() (interface{}, error) {
		project, err := s.projects.GetProject(ctx, projectID)
		if err != nil {
			return nil, err
		}
		if project.CommissionerID != commissionerID {
			return nil, apperr.Forbidden("only the commissioner can create a manual invoice")
		}
		if err := s.guard.RequireMethod(project, projectrepo.MethodCompletion, "manual_invoice"); err != nil {
			return nil, err
		}

		task, err := s.projects.GetTask(ctx, req.TaskID)
		if err != nil {
			return nil, err
		}
		if task.ProjectID != projectID {
			return nil, apperr.NotFound("task does not belong to this project")
		}
		if task.Status != projectrepo.TaskApproved {
			return nil, apperr.Conflict("manual invoices require an approved task")
		}
		// A re-delivered trigger must never invoice the task a second time:
		// the task's manual invoice may be settled already or parked by a
		// failed settlement. In both cases the existing invoice is the answer.
		existing, err := s.invoices.FindByTaskAndKind(ctx, task.ID, repository.KindManual)
		if err != nil {
			return nil, err
		}
		if task.InvoicePaid || (existing != nil && existing.Status == repository.StatusPaid) {
			if existing != nil {
				return &transport.PaymentResponse{
					Invoice:       toInvoiceResponse(*existing),
					ProjectStatus: string(project.Status),
				}, nil
			}
			return nil, apperr.Conflict("task is already invoiced")
		}
		if existing != nil && existing.Status != repository.StatusDraft {
			settled, err := s.settle(ctx, settlementPlan{
				invoice: *existing,
				task:    &task,
				mutate: func(p *projectrepo.Project) {
					p.PaidToDateCents += existing.TotalAmountCents
				},
			})
			if err != nil {
				return nil, err
			}
			if settled.Status == repository.StatusPaid {
				s.publishPaidEvents(ctx, settled, project)
			}
			return &transport.PaymentResponse{
				Invoice:       toInvoiceResponse(settled),
				ProjectStatus: string(project.Status),
			}, nil
		}

		share, ok := CalculateManualInvoiceAmount(project.TotalBudgetCents, project.TotalTasks, s.policy.GetUpfrontRateBps())
		if !ok {
			return nil, apperr.Conflict("project has no per-task share")
		}
		if req.AmountCents != share {
			return nil, apperr.Validation("amount does not match the per-task share for this project")
		}
		remaining := project.RemainingBudgetCents()
		amount := share
		if amount > remaining {
			amount = remaining
		}
		if amount <= 0 {
			return nil, apperr.Conflict("no remaining budget for a manual invoice")
		}

		taskID := task.ID
		issued, err := s.issueInvoice(ctx, repository.Invoice{
			ProjectID:        project.ID,
			TaskID:           &taskID,
			CommissionerID:   project.CommissionerID,
			FreelancerID:     project.FreelancerID,
			Kind:             repository.KindManual,
			TotalAmountCents: amount,
		})
		if err != nil {
			return nil, err
		}

		settled, err := s.settle(ctx, settlementPlan{
			invoice: issued,
			task:    &task,
			mutate: func(p *projectrepo.Project) {
				p.PaidToDateCents += issued.TotalAmountCents
			},
		})
		if err != nil {
			return nil, err
		}
		if settled.Status == repository.StatusPaid {
			s.publishPaidEvents(ctx, settled, project)
		}
		return &transport.PaymentResponse{
			Invoice:       toInvoiceResponse(settled),
			ProjectStatus: string(project.Status),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(*transport.PaymentResponse), nil
}

// ExecuteFinalPayout is the explicit trigger for the remaining-budget payout
// of a completion project. The readiness gate applies exactly as it does on
// the approve-last-task path.
func (s *Service) ExecuteFinalPayout(ctx context.Context, commissionerID, projectID uuid.UUID) (*transport.PaymentResponse, error) {
	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.CommissionerID != commissionerID {
		return nil, apperr.Forbidden("only the commissioner can release the final payout")
	}
	if err := s.guard.RequireMethod(project, projectrepo.MethodCompletion, "final_payout"); err != nil {
		return nil, err
	}

	tasks, err := s.projects.ListTasks(ctx, projectID)
	if err != nil {
		return nil, err
	}
	report := EvaluateFinalPayoutReadiness(project, tasks)
	if !report.ReadyForFinalPayout {
		return nil, apperr.Conflict("project is not ready for the final payout: " + report.Reason)
	}

	invoice, err := s.releaseFinalPayout(ctx, project)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, apperr.Conflict("no remaining budget to pay out")
	}

	status := string(project.Status)
	if fresh, err := s.projects.GetProject(ctx, projectID); err == nil {
		status = string(fresh.Status)
	}
	return &transport.PaymentResponse{
		Invoice:       *invoice,
		ProjectStatus: status,
	}, nil
}

// pendingInvoice returns a sent, on-hold or overdue invoice of the given kind
// for the project, if one exists.
func (s *Service) pendingInvoice(ctx context.Context, projectID uuid.UUID, kind repository.Kind) (*repository.Invoice, error) {
	invoices, err := s.invoices.FindByProjectAndKind(ctx, projectID, kind)
	if err != nil {
		return nil, err
	}
	for i := range invoices {
		switch invoices[i].Status {
		case repository.StatusSent, repository.StatusOnHold, repository.StatusOverdue:
			return &invoices[i], nil
		}
	}
	return nil, nil
}
