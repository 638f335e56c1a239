package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gigportal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	projectNotFoundMsg = "project not found"
	taskNotFoundMsg    = "task not found"
)

// Repository provides database operations for projects and tasks.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new projects repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const projectColumns = `id, commissioner_id, freelancer_id, title, invoicing_method, status,
	total_budget_cents, paid_to_date_cents, upfront_paid, total_tasks, created_at, updated_at`

const taskColumns = `id, project_id, title, status, completed, approved_at,
	manual_invoice_eligible, invoice_paid, created_at, updated_at`

// CreateProjectWithTasks inserts a project and its tasks in a single database
// transaction. Called once at activation; tasks start in status ongoing.
func (r *Repository) CreateProjectWithTasks(ctx context.Context, params CreateProjectParams) (Project, []Task, error) {
	now := time.Now().UTC()
	project := Project{
		ID:               uuid.New(),
		CommissionerID:   params.CommissionerID,
		FreelancerID:     params.FreelancerID,
		Title:            params.Title,
		InvoicingMethod:  params.InvoicingMethod,
		Status:           ProjectOngoing,
		TotalBudgetCents: params.TotalBudgetCents,
		TotalTasks:       len(params.TaskTitles),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Project{}, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		project.ID, project.CommissionerID, project.FreelancerID, project.Title,
		project.InvoicingMethod, project.Status, project.TotalBudgetCents,
		project.PaidToDateCents, project.UpfrontPaid, project.TotalTasks,
		project.CreatedAt, project.UpdatedAt,
	); err != nil {
		return Project{}, nil, fmt.Errorf("failed to insert project: %w", err)
	}

	tasks := make([]Task, 0, len(params.TaskTitles))
	for _, title := range params.TaskTitles {
		task := Task{
			ID:        uuid.New(),
			ProjectID: project.ID,
			Title:     title,
			Status:    TaskOngoing,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO tasks (`+taskColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			task.ID, task.ProjectID, task.Title, task.Status, task.Completed,
			task.ApprovedAt, task.ManualInvoiceEligible, task.InvoicePaid,
			task.CreatedAt, task.UpdatedAt,
		); err != nil {
			return Project{}, nil, fmt.Errorf("failed to insert task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := tx.Commit(ctx); err != nil {
		return Project{}, nil, fmt.Errorf("failed to commit: %w", err)
	}
	return project, tasks, nil
}

// GetProject loads the full project record.
func (r *Repository) GetProject(ctx context.Context, id uuid.UUID) (Project, error) {
	var p Project
	err := r.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id).Scan(
		&p.ID, &p.CommissionerID, &p.FreelancerID, &p.Title, &p.InvoicingMethod, &p.Status,
		&p.TotalBudgetCents, &p.PaidToDateCents, &p.UpfrontPaid, &p.TotalTasks,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, apperr.NotFound(projectNotFoundMsg)
		}
		return Project{}, apperr.Wrap(apperr.KindInternal, "failed to load project", err)
	}
	return p, nil
}

// UpdateProject persists the complete project record (whole-record rewrite).
func (r *Repository) UpdateProject(ctx context.Context, project Project) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE projects
		SET status = $2, total_budget_cents = $3, paid_to_date_cents = $4,
		    upfront_paid = $5, total_tasks = $6, updated_at = $7
		WHERE id = $1`,
		project.ID, project.Status, project.TotalBudgetCents, project.PaidToDateCents,
		project.UpfrontPaid, project.TotalTasks, time.Now().UTC(),
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to update project", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(projectNotFoundMsg)
	}
	return nil
}

// GetTask loads the full task record.
func (r *Repository) GetTask(ctx context.Context, id uuid.UUID) (Task, error) {
	var t Task
	err := r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id).Scan(
		&t.ID, &t.ProjectID, &t.Title, &t.Status, &t.Completed, &t.ApprovedAt,
		&t.ManualInvoiceEligible, &t.InvoicePaid, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, apperr.NotFound(taskNotFoundMsg)
		}
		return Task{}, apperr.Wrap(apperr.KindInternal, "failed to load task", err)
	}
	return t, nil
}

// UpdateTask persists the complete task record (whole-record rewrite).
func (r *Repository) UpdateTask(ctx context.Context, task Task) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks
		SET status = $2, completed = $3, approved_at = $4,
		    manual_invoice_eligible = $5, invoice_paid = $6, updated_at = $7
		WHERE id = $1`,
		task.ID, task.Status, task.Completed, task.ApprovedAt,
		task.ManualInvoiceEligible, task.InvoicePaid, time.Now().UTC(),
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to update task", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(taskNotFoundMsg)
	}
	return nil
}

// ListTasks returns every task of a project in creation order.
func (r *Repository) ListTasks(ctx context.Context, projectID uuid.UUID) ([]Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE project_id = $1 ORDER BY created_at ASC`,
		projectID,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list tasks", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(
			&t.ID, &t.ProjectID, &t.Title, &t.Status, &t.Completed, &t.ApprovedAt,
			&t.ManualInvoiceEligible, &t.InvoicePaid, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan task", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Compile-time check that Repository implements Store.
var _ Store = (*Repository)(nil)
