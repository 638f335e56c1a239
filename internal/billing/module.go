// Package billing provides the payment and invoicing orchestration module.
package billing

import (
	"gigportal_backend/internal/billing/handler"
	"gigportal_backend/internal/billing/repository"
	"gigportal_backend/internal/billing/service"
	apphttp "gigportal_backend/internal/http"
	projectrepo "gigportal_backend/internal/projects/repository"
	"gigportal_backend/platform/events"
	"gigportal_backend/platform/logger"
	"gigportal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the billing domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates a new billing module with all dependencies wired.
// The scheduler client and event bus are injected afterwards via the
// service setters.
func NewModule(
	pool *pgxpool.Pool,
	projects projectrepo.Store,
	wallet service.Crediter,
	payer service.Payer,
	policy service.Policy,
	eventBus *events.InMemoryBus,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(projects, repo, wallet, payer, policy, log)
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
	return "billing"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	billing := ctx.Protected.Group("/billing")
	m.handler.RegisterRoutes(billing)

	maintenance := ctx.Internal.Group("/billing")
	m.handler.RegisterMaintenanceRoutes(maintenance)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
