// Package http defines the application's HTTP composition surface: the
// module contract, the router context handed to each module, and the App
// aggregate the composition root builds before constructing the router.
package http

import (
	"context"

	"gigportal_backend/platform/config"
	"gigportal_backend/platform/events"
	"gigportal_backend/platform/logger"
)

// RouterConfig is the slice of configuration the router needs.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker reports whether the application's critical dependency
// (the database) is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App aggregates everything the router needs to serve the application.
type App struct {
	Config         RouterConfig
	Logger         *logger.Logger
	Health         HealthChecker
	EventBus       *events.InMemoryBus
	ServiceKeyHash string
	Modules        []Module
}
