package service

import (
	"context"
	"time"

	"gigportal_backend/internal/events"
	"gigportal_backend/internal/projects/repository"
	"gigportal_backend/internal/projects/transport"
	"gigportal_backend/platform/apperr"

	"github.com/google/uuid"
)

// Service provides business logic for project and task lifecycle outside
// of money movement. Approval and payment live in the billing module.
type Service struct {
	store repository.Store
	bus   events.Bus
}

// New creates a new projects service
func New(store repository.Store) *Service {
	return &Service{store: store}
}

// SetEventBus injects the event bus (set after construction to break circular deps).
func (s *Service) SetEventBus(bus events.Bus) {
	s.bus = bus
}

// Activate creates a project and its tasks from a matched work request.
// Entity records for the whole project lifetime come into existence here.
func (s *Service) Activate(ctx context.Context, commissionerID uuid.UUID, req transport.ActivateProjectRequest) (*transport.ActivateProjectResponse, error) {
	if commissionerID == req.FreelancerID {
		return nil, apperr.Validation("commissioner and freelancer must be different users")
	}

	project, tasks, err := s.store.CreateProjectWithTasks(ctx, repository.CreateProjectParams{
		CommissionerID:   commissionerID,
		FreelancerID:     req.FreelancerID,
		Title:            req.Title,
		InvoicingMethod:  repository.InvoicingMethod(req.InvoicingMethod),
		TotalBudgetCents: req.TotalBudgetCents,
		TaskTitles:       req.TaskTitles,
	})
	if err != nil {
		return nil, err
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.ProjectActivated{
			BaseEvent:        events.NewBaseEvent(),
			ProjectID:        project.ID,
			CommissionerID:   project.CommissionerID,
			FreelancerID:     project.FreelancerID,
			InvoicingMethod:  string(project.InvoicingMethod),
			TotalBudgetCents: project.TotalBudgetCents,
			TotalTasks:       project.TotalTasks,
		})
	}

	resp := &transport.ActivateProjectResponse{Project: ToProjectResponse(project)}
	for _, t := range tasks {
		resp.Tasks = append(resp.Tasks, ToTaskResponse(t))
	}
	return resp, nil
}

// GetProject returns a project visible to either party.
func (s *Service) GetProject(ctx context.Context, actorID, projectID uuid.UUID) (*transport.ProjectResponse, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.CommissionerID != actorID && project.FreelancerID != actorID {
		return nil, apperr.Forbidden("not a party to this project")
	}
	resp := ToProjectResponse(project)
	return &resp, nil
}

// ListTasks returns a project's tasks, visible to either party.
func (s *Service) ListTasks(ctx context.Context, actorID, projectID uuid.UUID) ([]transport.TaskResponse, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.CommissionerID != actorID && project.FreelancerID != actorID {
		return nil, apperr.Forbidden("not a party to this project")
	}

	tasks, err := s.store.ListTasks(ctx, projectID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, ToTaskResponse(t))
	}
	return out, nil
}

// SubmitTask moves a task into review. Only the assigned freelancer may
// submit; rejected tasks may re-enter review.
func (s *Service) SubmitTask(ctx context.Context, freelancerID, projectID, taskID uuid.UUID) (*transport.TaskResponse, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.FreelancerID != freelancerID {
		return nil, apperr.Forbidden("only the assigned freelancer can submit a task")
	}
	if project.Status != repository.ProjectOngoing {
		return nil, apperr.Conflict("project is not ongoing")
	}

	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.ProjectID != projectID {
		return nil, apperr.NotFound("task does not belong to this project")
	}
	if task.Status != repository.TaskOngoing && task.Status != repository.TaskRejected {
		return nil, apperr.Conflict("task cannot be submitted from status " + string(task.Status))
	}

	task.Status = repository.TaskInReview
	if err := s.store.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	resp := ToTaskResponse(task)
	return &resp, nil
}

// RejectTask returns a task in review to the freelancer for rework.
func (s *Service) RejectTask(ctx context.Context, commissionerID, projectID, taskID uuid.UUID) (*transport.TaskResponse, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.CommissionerID != commissionerID {
		return nil, apperr.Forbidden("only the commissioner can reject a task")
	}

	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.ProjectID != projectID {
		return nil, apperr.NotFound("task does not belong to this project")
	}
	if task.Status != repository.TaskInReview {
		return nil, apperr.Conflict("only tasks in review can be rejected")
	}

	task.Status = repository.TaskRejected
	if err := s.store.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	resp := ToTaskResponse(task)
	return &resp, nil
}

// ToProjectResponse converts a repository project to its API representation.
func ToProjectResponse(p repository.Project) transport.ProjectResponse {
	return transport.ProjectResponse{
		ID:                   p.ID,
		CommissionerID:       p.CommissionerID,
		FreelancerID:         p.FreelancerID,
		Title:                p.Title,
		InvoicingMethod:      string(p.InvoicingMethod),
		Status:               string(p.Status),
		TotalBudgetCents:     p.TotalBudgetCents,
		PaidToDateCents:      p.PaidToDateCents,
		RemainingBudgetCents: p.RemainingBudgetCents(),
		UpfrontPaid:          p.UpfrontPaid,
		TotalTasks:           p.TotalTasks,
		CreatedAt:            p.CreatedAt,
	}
}

// ToTaskResponse converts a repository task to its API representation.
func ToTaskResponse(t repository.Task) transport.TaskResponse {
	var approvedAt *time.Time
	if t.ApprovedAt != nil {
		at := *t.ApprovedAt
		approvedAt = &at
	}
	return transport.TaskResponse{
		ID:                    t.ID,
		ProjectID:             t.ProjectID,
		Title:                 t.Title,
		Status:                string(t.Status),
		Completed:             t.Completed,
		ApprovedAt:            approvedAt,
		ManualInvoiceEligible: t.ManualInvoiceEligible,
		InvoicePaid:           t.InvoicePaid,
	}
}
