// Package router assembles the gin engine: global middleware, the health
// endpoint, the versioned API groups, and every module's routes.
package router

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"gigportal_backend/internal/auth"
	apphttp "gigportal_backend/internal/http"
	"gigportal_backend/platform/httpkit"
)

// New builds the engine and registers every module's routes.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.NewRateLimiter(50, 100, app.Logger).Middleware())
	engine.Use(cors.New(corsConfig(app.Config)))

	engine.GET("/api/health", func(c *gin.Context) {
		if err := app.Health.Ping(c.Request.Context()); err != nil {
			httpkit.Error(c, http.StatusServiceUnavailable, "UNHEALTHY", "database unreachable")
			return
		}
		httpkit.OK(c, gin.H{"status": "ok"})
	})

	authMiddleware := auth.JWTMiddleware(app.Config, app.Logger)

	v1 := engine.Group("/api/v1")

	protected := v1.Group("")
	protected.Use(authMiddleware)

	internal := v1.Group("/internal")
	internal.Use(auth.ServiceKeyMiddleware(app.ServiceKeyHash, app.Logger))

	ctx := &apphttp.RouterContext{
		Engine:         engine,
		V1:             v1,
		Protected:      protected,
		Internal:       internal,
		Config:         app.Config,
		AuthMiddleware: authMiddleware,
	}

	for _, module := range app.Modules {
		module.RegisterRoutes(ctx)
		app.Logger.Info("module routes registered", "module", module.Name())
	}

	return engine
}

func corsConfig(cfg apphttp.RouterConfig) cors.Config {
	if cfg.GetCORSAllowAll() {
		corsCfg := cors.DefaultConfig()
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "X-Service-API-Key")
		return corsCfg
	}
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = cfg.GetCORSOrigins()
	corsCfg.AllowCredentials = cfg.GetCORSAllowCreds()
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "X-Service-API-Key")
	return corsCfg
}
