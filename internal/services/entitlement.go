package services

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/normscout/normscout-backend/internal/domain"
	apperrors "github.com/normscout/normscout-backend/internal/pkg/errors"
	"github.com/normscout/normscout-backend/internal/platform/logger"
	"github.com/normscout/normscout-backend/internal/repos"
)

// DatabaseSet is either an explicit list of database files or the special
// "all" value used by bundle packages.
type DatabaseSet struct {
	All   bool
	Files []string
}

func (d *DatabaseSet) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		if s != "all" {
			return fmt.Errorf("database set scalar must be \"all\", got %q", s)
		}
		d.All = true
		return nil
	}
	return value.Decode(&d.Files)
}

type PackageDef struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Databases   DatabaseSet `yaml:"databases"`
	PriceCents  int         `yaml:"price_cents"`
	TrialDays   int         `yaml:"trial_days"`
	Regions     []string    `yaml:"regions"`
	Industries  []string    `yaml:"industries"`
	Features    []string    `yaml:"features"`
}

// PackagesConfig is the content of packages.yaml: which database files are
// free, which exist at all, and what each purchasable package unlocks.
type PackagesConfig struct {
	FreeDatabases []string              `yaml:"free_databases"`
	AllDatabases  []string              `yaml:"all_databases"`
	Packages      map[string]PackageDef `yaml:"packages"`
}

func LoadPackagesConfig(path string) (*PackagesConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read packages config: %w", err)
	}
	var cfg PackagesConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse packages config: %w", err)
	}
	if len(cfg.FreeDatabases) == 0 {
		return nil, fmt.Errorf("packages config has no free_databases")
	}
	for id, pkg := range cfg.Packages {
		if !pkg.Databases.All && len(pkg.Databases.Files) == 0 {
			return nil, fmt.Errorf("package %s grants no databases", id)
		}
	}
	return &cfg, nil
}

type PackageInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Databases   []string `json:"databases,omitempty"`
	AllAccess   bool     `json:"all_access"`
	PriceCents  int      `json:"price_cents"`
	TrialDays   int      `json:"trial_days"`
	Regions     []string `json:"regions,omitempty"`
	Industries  []string `json:"industries,omitempty"`
	Features    []string `json:"features,omitempty"`
}

// EntitlementService resolves which norm database files a user may analyze
// against. Resolution fails closed: if grants cannot be read the user gets
// the free tier, never an error and never extra access.
type EntitlementService interface {
	AllowedDatabases(ctx context.Context, userID string) []string
	HasDatabaseAccess(ctx context.Context, userID, database string) bool
	Packages() []PackageInfo
	ActivatePackage(ctx context.Context, userID, packageID string, trial bool) (*domain.PackageGrant, error)
	DeactivatePackage(ctx context.Context, userID, packageID string) error
}

type entitlementService struct {
	log    *logger.Logger
	cfg    *PackagesConfig
	grants repos.PackageGrantRepo
}

// NewEntitlementService builds the resolver. grants may be nil when running
// without Postgres; everyone then gets the free tier.
func NewEntitlementService(log *logger.Logger, cfg *PackagesConfig, grants repos.PackageGrantRepo) EntitlementService {
	return &entitlementService{
		log:    log.With("service", "EntitlementService"),
		cfg:    cfg,
		grants: grants,
	}
}

func (s *entitlementService) AllowedDatabases(ctx context.Context, userID string) []string {
	allowed := map[string]struct{}{}
	for _, db := range s.cfg.FreeDatabases {
		allowed[db] = struct{}{}
	}

	if userID != "" && s.grants != nil {
		grants, err := s.grants.GetActiveByUserID(ctx, nil, userID)
		if err != nil {
			s.log.Error("grant lookup failed, falling back to free tier", "user_id", userID, "error", err)
			return sortedKeys(allowed)
		}
		for _, grant := range grants {
			pkg, ok := s.cfg.Packages[grant.PackageID]
			if !ok {
				s.log.Warn("grant references unknown package, skipping", "user_id", userID, "package", grant.PackageID)
				continue
			}
			if pkg.Databases.All {
				for _, db := range s.cfg.AllDatabases {
					allowed[db] = struct{}{}
				}
				continue
			}
			for _, db := range pkg.Databases.Files {
				allowed[db] = struct{}{}
			}
		}
	}

	return sortedKeys(allowed)
}

func (s *entitlementService) HasDatabaseAccess(ctx context.Context, userID, database string) bool {
	for _, db := range s.AllowedDatabases(ctx, userID) {
		if db == database {
			return true
		}
	}
	return false
}

func (s *entitlementService) Packages() []PackageInfo {
	out := make([]PackageInfo, 0, len(s.cfg.Packages))
	for id, pkg := range s.cfg.Packages {
		out = append(out, PackageInfo{
			ID:          id,
			Name:        pkg.Name,
			Description: pkg.Description,
			Databases:   pkg.Databases.Files,
			AllAccess:   pkg.Databases.All,
			PriceCents:  pkg.PriceCents,
			TrialDays:   pkg.TrialDays,
			Regions:     pkg.Regions,
			Industries:  pkg.Industries,
			Features:    pkg.Features,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *entitlementService) ActivatePackage(ctx context.Context, userID, packageID string, trial bool) (*domain.PackageGrant, error) {
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	pkg, ok := s.cfg.Packages[packageID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if s.grants == nil {
		return nil, fmt.Errorf("package grants not configured")
	}

	grant := &domain.PackageGrant{
		UserID:      userID,
		PackageID:   packageID,
		Status:      domain.PackageStatusActive,
		ActivatedAt: time.Now(),
	}
	if trial && pkg.TrialDays > 0 {
		expires := time.Now().AddDate(0, 0, pkg.TrialDays)
		grant.ExpiresAt = &expires
	}

	created, err := s.grants.Create(ctx, nil, []*domain.PackageGrant{grant})
	if err != nil {
		return nil, err
	}
	s.log.Info("package activated", "user_id", userID, "package", packageID, "trial", trial)
	return created[0], nil
}

func (s *entitlementService) DeactivatePackage(ctx context.Context, userID, packageID string) error {
	if userID == "" {
		return apperrors.ErrUnauthorized
	}
	if s.grants == nil {
		return fmt.Errorf("package grants not configured")
	}
	if err := s.grants.Deactivate(ctx, nil, userID, packageID); err != nil {
		return err
	}
	s.log.Info("package deactivated", "user_id", userID, "package", packageID)
	return nil
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
