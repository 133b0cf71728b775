package server

import (
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/normscout/normscout-backend/internal/http/handlers"
	"github.com/normscout/normscout-backend/internal/middleware"
	"github.com/normscout/normscout-backend/internal/observability"
)

type RouterConfig struct {
	AuthMiddleware   *middleware.AuthMiddleware
	HealthHandler    *handlers.HealthHandler
	DevelopHandler   *handlers.DevelopHandler
	WorkspaceHandler *handlers.WorkspaceHandler
	PackagesHandler  *handlers.PackagesHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "Accept"},
		AllowCredentials: true,
	}))
	router.Use(otelgin.Middleware("normscout"))
	router.Use(middleware.Metrics())

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	router.GET("/internal/catalog/stats", cfg.HealthHandler.CatalogStats)
	if m := observability.Current(); m != nil {
		router.GET("/internal/metrics", gin.WrapF(m.WriteHTTP))
	}

	// Intake and analysis run anonymously on the free tier; a valid token
	// upgrades the entitlement resolution.
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.Optional())
	{
		api.POST("/develop/start", cfg.DevelopHandler.Start)
		api.POST("/develop/respond", cfg.DevelopHandler.Respond)
		api.GET("/develop/session/:id", cfg.DevelopHandler.GetSession)
		api.POST("/develop/analyze", cfg.DevelopHandler.Analyze)

		api.POST("/workspace/create", cfg.WorkspaceHandler.Create)
		api.GET("/workspace/:id", cfg.WorkspaceHandler.Get)
		api.PUT("/workspace/:id", cfg.WorkspaceHandler.Update)
		api.DELETE("/workspace/:id", cfg.WorkspaceHandler.Delete)
		api.GET("/workspaces", cfg.WorkspaceHandler.List)
		api.POST("/workspace/:id/reanalyze", cfg.WorkspaceHandler.Reanalyze)

		api.GET("/packages/list", cfg.PackagesHandler.List)
		api.GET("/packages/allowed-databases", cfg.PackagesHandler.AllowedDatabases)
	}

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/api")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	{
		protected.POST("/packages/activate", cfg.PackagesHandler.Activate)
		protected.POST("/packages/deactivate", cfg.PackagesHandler.Deactivate)
	}

	return router
}

func corsOrigins() []string {
	raw := strings.TrimSpace(os.Getenv("CORS_ORIGINS"))
	if raw == "" {
		return []string{"http://localhost:80", "http://localhost:3000", "http://localhost:5174"}
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
