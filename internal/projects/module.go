// Package projects provides the project and task lifecycle domain module.
package projects

import (
	apphttp "gigportal_backend/internal/http"
	"gigportal_backend/internal/projects/handler"
	"gigportal_backend/internal/projects/repository"
	"gigportal_backend/internal/projects/service"
	"gigportal_backend/platform/events"
	"gigportal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the projects domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates a new projects module with all dependencies wired
func NewModule(pool *pgxpool.Pool, eventBus *events.InMemoryBus, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)
	svc.SetEventBus(eventBus)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "projects"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// Store returns the entity store for the billing module.
func (m *Module) Store() repository.Store {
	return m.repo
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	projects := ctx.Protected.Group("/projects")
	m.handler.RegisterRoutes(projects)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
