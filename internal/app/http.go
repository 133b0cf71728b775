package app

import (
	"github.com/gin-gonic/gin"

	"github.com/normscout/normscout-backend/internal/catalog"
	"github.com/normscout/normscout-backend/internal/http/handlers"
	"github.com/normscout/normscout-backend/internal/middleware"
	"github.com/normscout/normscout-backend/internal/platform/logger"
	"github.com/normscout/normscout-backend/internal/server"
)

type Middleware struct {
	Auth *middleware.AuthMiddleware
}

type Handlers struct {
	Health    *handlers.HealthHandler
	Develop   *handlers.DevelopHandler
	Workspace *handlers.WorkspaceHandler
	Packages  *handlers.PackagesHandler
}

func wireHandlers(log *logger.Logger, serviceset Services, cat *catalog.Catalog) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:    handlers.NewHealthHandler(cat),
		Develop:   handlers.NewDevelopHandler(log, serviceset.Conversation, serviceset.Analysis),
		Workspace: handlers.NewWorkspaceHandler(log, serviceset.Conversation, serviceset.Workspace, serviceset.Analysis),
		Packages:  handlers.NewPackagesHandler(log, serviceset.Entitlement),
	}
}

func wireMiddleware(log *logger.Logger) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: middleware.NewAuthMiddleware(log),
	}
}

func wireRouter(handlerset Handlers, mw Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AuthMiddleware:   mw.Auth,
		HealthHandler:    handlerset.Health,
		DevelopHandler:   handlerset.Develop,
		WorkspaceHandler: handlerset.Workspace,
		PackagesHandler:  handlerset.Packages,
	})
}
