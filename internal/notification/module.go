// Package notification provides the notification dispatcher module.
package notification

import (
	"gigportal_backend/internal/notification/repository"
	"gigportal_backend/internal/notification/service"
	"gigportal_backend/platform/events"
	"gigportal_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the notification domain module. It exposes no HTTP
// routes; it listens to the event bus and feeds the outbox.
type Module struct {
	service *service.Service
}

// NewModule creates the notification module and subscribes it to the bus.
func NewModule(pool *pgxpool.Pool, bus *events.InMemoryBus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	directory := repository.NewUserDirectory(pool)
	svc := service.New(repo, directory, log)
	svc.Subscribe(bus)

	return &Module{service: svc}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "notification"
}

// Service returns the service layer; the scheduler worker drives dispatch.
func (m *Module) Service() *service.Service {
	return m.service
}
