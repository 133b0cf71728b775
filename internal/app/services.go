package app

import (
	"fmt"

	"github.com/normscout/normscout-backend/internal/catalog"
	"github.com/normscout/normscout-backend/internal/platform/logger"
	"github.com/normscout/normscout-backend/internal/services"
	"github.com/normscout/normscout-backend/internal/store"
)

type Services struct {
	Completeness services.CompletenessService
	Conversation services.ConversationService
	Matcher      services.MatcherService
	Entitlement  services.EntitlementService
	Analysis     services.AnalysisService
	Workspace    services.WorkspaceService
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, reposet Repos, cat *catalog.Catalog) (Services, error) {
	log.Info("Wiring services...")

	pkgCfg, err := services.LoadPackagesConfig(cfg.PackagesPath)
	if err != nil {
		return Services{}, fmt.Errorf("load packages config: %w", err)
	}

	var sessionStore store.SessionStore
	var workspaceStore store.WorkspaceStore
	if clients.Redis != nil {
		sessionStore = store.NewRedisSessionStore(log, clients.Redis)
		workspaceStore = store.NewRedisWorkspaceStore(log, clients.Redis)
	} else {
		sessionStore = store.NewMemorySessionStore()
		workspaceStore = store.NewMemoryWorkspaceStore()
	}

	completeness := services.NewCompletenessService(log, clients.OpenRouter)
	conversation := services.NewConversationService(log, clients.OpenRouter, completeness, sessionStore)
	matcher := services.NewMatcherService(log, clients.OpenRouter)
	entitlement := services.NewEntitlementService(log, pkgCfg, reposet.PackageGrant)
	analysis := services.NewAnalysisService(log, entitlement, cat, matcher, reposet.AnalysisRecord)
	workspace := services.NewWorkspaceService(log, workspaceStore, analysis)

	// Fail fast on a corrupt free-tier database; paid partitions load lazily.
	if err := cat.Preload(pkgCfg.FreeDatabases); err != nil {
		return Services{}, fmt.Errorf("preload free norm databases: %w", err)
	}

	return Services{
		Completeness: completeness,
		Conversation: conversation,
		Matcher:      matcher,
		Entitlement:  entitlement,
		Analysis:     analysis,
		Workspace:    workspace,
	}, nil
}
