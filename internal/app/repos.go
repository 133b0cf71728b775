package app

import (
	"gorm.io/gorm"

	"github.com/normscout/normscout-backend/internal/platform/logger"
	"github.com/normscout/normscout-backend/internal/repos"
)

type Repos struct {
	PackageGrant   repos.PackageGrantRepo
	AnalysisRecord repos.AnalysisRecordRepo
}

// wireRepos returns zero-value repos when Postgres is not configured; the
// services treat nil repos as "free tier only, no audit trail".
func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	if db == nil {
		return Repos{}
	}
	log.Info("Wiring repos...")
	return Repos{
		PackageGrant:   repos.NewPackageGrantRepo(db, log),
		AnalysisRecord: repos.NewAnalysisRecordRepo(db, log),
	}
}
