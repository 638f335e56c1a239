package http

import (
	"github.com/gin-gonic/gin"

	"gigportal_backend/platform/config"
)

// Module is implemented by every feature module that exposes HTTP routes.
// The composition root collects modules and hands each one the shared
// router groups during startup.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext carries the route groups a module can attach to.
//
// V1 is the public API surface, Protected requires a valid access token,
// and Internal requires the service API key (used by operational tooling,
// not end users).
type RouterContext struct {
	Engine         *gin.Engine
	V1             *gin.RouterGroup
	Protected      *gin.RouterGroup
	Internal       *gin.RouterGroup
	Config         config.JWTConfig
	AuthMiddleware gin.HandlerFunc
}
