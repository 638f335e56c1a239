package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"gigportal_backend/internal/billing/repository"
	projectrepo "gigportal_backend/internal/projects/repository"
	"gigportal_backend/platform/apperr"
	"gigportal_backend/platform/logger"
)

// ── In-memory stores ─────────────────────────────────────────────────────────

type fakeProjects struct {
	mu       sync.Mutex
	projects map[uuid.UUID]projectrepo.Project
	tasks    map[uuid.UUID]projectrepo.Task
}

func newFakeProjects() *fakeProjects {
	return &fakeProjects{
		projects: make(map[uuid.UUID]projectrepo.Project),
		tasks:    make(map[uuid.UUID]projectrepo.Task),
	}
}

func (f *fakeProjects) CreateProjectWithTasks(ctx context.Context, params projectrepo.CreateProjectParams) (projectrepo.Project, []projectrepo.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	project := projectrepo.Project{
		ID:               uuid.New(),
		CommissionerID:   params.CommissionerID,
		FreelancerID:     params.FreelancerID,
		Title:            params.Title,
		InvoicingMethod:  params.InvoicingMethod,
		Status:           projectrepo.ProjectOngoing,
		TotalBudgetCents: params.TotalBudgetCents,
		TotalTasks:       len(params.TaskTitles),
	}
	f.projects[project.ID] = project

	tasks := make([]projectrepo.Task, 0, len(params.TaskTitles))
	for _, title := range params.TaskTitles {
		task := projectrepo.Task{
			ID:        uuid.New(),
			ProjectID: project.ID,
			Title:     title,
			Status:    projectrepo.TaskOngoing,
		}
		f.tasks[task.ID] = task
		tasks = append(tasks, task)
	}
	return project, tasks, nil
}

func (f *fakeProjects) GetProject(ctx context.Context, id uuid.UUID) (projectrepo.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return projectrepo.Project{}, apperr.NotFound("project not found")
	}
	return p, nil
}

func (f *fakeProjects) UpdateProject(ctx context.Context, project projectrepo.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.projects[project.ID]; !ok {
		return apperr.NotFound("project not found")
	}
	f.projects[project.ID] = project
	return nil
}

func (f *fakeProjects) GetTask(ctx context.Context, id uuid.UUID) (projectrepo.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return projectrepo.Task{}, apperr.NotFound("task not found")
	}
	return t, nil
}

func (f *fakeProjects) UpdateTask(ctx context.Context, task projectrepo.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[task.ID]; !ok {
		return apperr.NotFound("task not found")
	}
	f.tasks[task.ID] = task
	return nil
}

func (f *fakeProjects) ListTasks(ctx context.Context, projectID uuid.UUID) ([]projectrepo.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []projectrepo.Task
	for _, t := range f.tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeInvoices struct {
	mu       sync.Mutex
	seq      int
	invoices map[string]repository.Invoice
}

func newFakeInvoices() *fakeInvoices {
	return &fakeInvoices{invoices: make(map[string]repository.Invoice)}
}

func (f *fakeInvoices) NextInvoiceNumber(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return fmt.Sprintf("INV-2026-%06d", f.seq), nil
}

func (f *fakeInvoices) Create(ctx context.Context, invoice repository.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.invoices[invoice.InvoiceNumber]; ok {
		return apperr.Conflict("invoice number already exists")
	}
	f.invoices[invoice.InvoiceNumber] = invoice
	return nil
}

func (f *fakeInvoices) GetByNumber(ctx context.Context, number string) (repository.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[number]
	if !ok {
		return repository.Invoice{}, apperr.NotFound("invoice not found")
	}
	return inv, nil
}

func (f *fakeInvoices) Update(ctx context.Context, invoice repository.Invoice, expectedStatus repository.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.invoices[invoice.InvoiceNumber]
	if !ok {
		return apperr.NotFound("invoice not found")
	}
	if current.Status != expectedStatus {
		return apperr.Conflict("invoice was modified concurrently")
	}
	f.invoices[invoice.InvoiceNumber] = invoice
	return nil
}

func (f *fakeInvoices) Delete(ctx context.Context, number string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[number]
	if !ok {
		return apperr.NotFound("invoice not found")
	}
	if inv.Status != repository.StatusDraft {
		return apperr.Conflict("only draft invoices can be deleted")
	}
	delete(f.invoices, number)
	return nil
}

func (f *fakeInvoices) List(ctx context.Context, actorID uuid.UUID, params repository.ListParams) ([]repository.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Invoice
	for _, inv := range f.invoices {
		if inv.CommissionerID != actorID && inv.FreelancerID != actorID {
			continue
		}
		if params.ExcludeDrafts && inv.Status == repository.StatusDraft && inv.CommissionerID == actorID {
			continue
		}
		if params.ProjectID != nil && inv.ProjectID != *params.ProjectID {
			continue
		}
		if params.Status != nil && inv.Status != *params.Status {
			continue
		}
		if params.Kind != nil && inv.Kind != *params.Kind {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

func (f *fakeInvoices) FindByProjectAndKind(ctx context.Context, projectID uuid.UUID, kind repository.Kind) ([]repository.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Invoice
	for _, inv := range f.invoices {
		if inv.ProjectID == projectID && inv.Kind == kind {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (f *fakeInvoices) FindByTaskAndKind(ctx context.Context, taskID uuid.UUID, kind repository.Kind) (*repository.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.invoices {
		if inv.TaskID != nil && *inv.TaskID == taskID && inv.Kind == kind && inv.Status != repository.StatusCancelled {
			found := inv
			return &found, nil
		}
	}
	return nil, nil
}

func (f *fakeInvoices) SumPaidByProjectAndKind(ctx context.Context, projectID uuid.UUID, kind repository.Kind) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, inv := range f.invoices {
		if inv.ProjectID == projectID && inv.Kind == kind && inv.Status == repository.StatusPaid {
			sum += inv.TotalAmountCents
		}
	}
	return sum, nil
}

func (f *fakeInvoices) ListOverdueCandidates(ctx context.Context, asOf time.Time, limit int) ([]repository.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Invoice
	for _, inv := range f.invoices {
		if inv.Status == repository.StatusSent && inv.DueAt != nil && inv.DueAt.Before(asOf) {
			out = append(out, inv)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// byStatus counts invoices in a given status.
func (f *fakeInvoices) byStatus(status repository.Status) []repository.Invoice {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Invoice
	for _, inv := range f.invoices {
		if inv.Status == status {
			out = append(out, inv)
		}
	}
	return out
}

// ── Collaborator fakes ───────────────────────────────────────────────────────

type walletCall struct {
	userID        uuid.UUID
	amountCents   int64
	invoiceNumber string
}

type fakeWallet struct {
	mu         sync.Mutex
	credits    []walletCall
	reversals  []walletCall
	failCredit bool
}

func (f *fakeWallet) Credit(ctx context.Context, userID uuid.UUID, amountCents int64, invoiceNumber string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCredit {
		return apperr.Internal("wallet unavailable")
	}
	f.credits = append(f.credits, walletCall{userID, amountCents, invoiceNumber})
	return nil
}

func (f *fakeWallet) Reverse(ctx context.Context, userID uuid.UUID, amountCents int64, invoiceNumber string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reversals = append(f.reversals, walletCall{userID, amountCents, invoiceNumber})
	return nil
}

type fakePayer struct {
	mu       sync.Mutex
	failures int // number of Execute calls to fail before succeeding
	executes int
	refunds  int
}

func (f *fakePayer) Execute(ctx context.Context, invoice repository.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executes++
	if f.failures > 0 {
		f.failures--
		return apperr.Internal("payment provider unavailable")
	}
	return nil
}

func (f *fakePayer) Refund(ctx context.Context, invoice repository.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunds++
	return nil
}

type fakePolicy struct {
	upfrontBps int
	feeBps     map[string]int
	maxRetries int
}

func (f fakePolicy) GetUpfrontRateBps() int { return f.upfrontBps }

func (f fakePolicy) GetPlatformFeeBps(kind string) int {
	if bps, ok := f.feeBps[kind]; ok {
		return bps
	}
	return 500
}

func (f fakePolicy) GetOnHoldRetryDelay() time.Duration { return time.Minute }
func (f fakePolicy) GetOnHoldMaxRetries() int           { return f.maxRetries }

// ── Fixture ──────────────────────────────────────────────────────────────────

type fixture struct {
	svc      *Service
	projects *fakeProjects
	invoices *fakeInvoices
	wallet   *fakeWallet
	payer    *fakePayer
}

func newFixture() *fixture {
	projects := newFakeProjects()
	invoices := newFakeInvoices()
	wallet := &fakeWallet{}
	payer := &fakePayer{}
	policy := fakePolicy{
		upfrontBps: 1200,
		feeBps:     map[string]int{"upfront": 250, "manual": 500, "final": 500, "auto_milestone": 500},
		maxRetries: 3,
	}
	svc := New(projects, invoices, wallet, payer, policy, logger.New("test"))
	return &fixture{svc: svc, projects: projects, invoices: invoices, wallet: wallet, payer: payer}
}

// seedProject activates a project with the given method, budget and task
// titles, returning the project and its tasks.
func (fx *fixture) seedProject(method projectrepo.InvoicingMethod, budgetCents int64, taskTitles ...string) (projectrepo.Project, []projectrepo.Task) {
	project, tasks, _ := fx.projects.CreateProjectWithTasks(context.Background(), projectrepo.CreateProjectParams{
		CommissionerID:   uuid.New(),
		FreelancerID:     uuid.New(),
		Title:            "test project",
		InvoicingMethod:  method,
		TotalBudgetCents: budgetCents,
		TaskTitles:       taskTitles,
	})
	return project, tasks
}

// submitTask moves a task to in_review so it can be approved.
func (fx *fixture) submitTask(t projectrepo.Task) {
	task, _ := fx.projects.GetTask(context.Background(), t.ID)
	task.Status = projectrepo.TaskInReview
	_ = fx.projects.UpdateTask(context.Background(), task)
}
