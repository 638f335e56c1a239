// Package wallet provides the freelancer wallet ledger module.
package wallet

import (
	apphttp "gigportal_backend/internal/http"
	"gigportal_backend/internal/wallet/handler"
	"gigportal_backend/internal/wallet/repository"
	"gigportal_backend/internal/wallet/service"
	"gigportal_backend/platform/logger"
	"gigportal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the wallet domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new wallet module with all dependencies wired
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "wallet"
}

// Service returns the service layer; billing consumes it as its Crediter.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	wallet := ctx.Protected.Group("/wallet")
	m.handler.RegisterRoutes(wallet)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
