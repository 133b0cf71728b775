package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/normscout/normscout-backend/internal/domain"
	apperrors "github.com/normscout/normscout-backend/internal/pkg/errors"
)

func testPackagesConfig() *PackagesConfig {
	return &PackagesConfig{
		FreeDatabases: []string{"norms.json"},
		AllDatabases:  []string{"norms.json", "norms_iso.json", "norms_iec.json", "norms_us.json"},
		Packages: map[string]PackageDef{
			"iso_box": {
				Name:      "ISO Standards Box",
				Databases: DatabaseSet{Files: []string{"norms_iso.json", "norms_iec.json"}},
				TrialDays: 14,
			},
			"us_box": {
				Name:      "US Standards Box",
				Databases: DatabaseSet{Files: []string{"norms_us.json"}},
			},
			"mega_bundle": {
				Name:      "All Access Bundle",
				Databases: DatabaseSet{All: true},
			},
		},
	}
}

func activeGrant(userID, packageID string) *domain.PackageGrant {
	return &domain.PackageGrant{
		UserID: userID, PackageID: packageID,
		Status: domain.PackageStatusActive, ActivatedAt: time.Now(),
	}
}

func TestAllowedDatabasesAnonymousGetsFreeTier(t *testing.T) {
	svc := NewEntitlementService(testLogger(t), testPackagesConfig(), &fakeGrantRepo{})
	got := svc.AllowedDatabases(context.Background(), "")
	if !reflect.DeepEqual(got, []string{"norms.json"}) {
		t.Errorf("anonymous allowed = %v, want free tier only", got)
	}
}

func TestAllowedDatabasesUnionsPackages(t *testing.T) {
	repo := &fakeGrantRepo{grants: []*domain.PackageGrant{
		activeGrant("user-1", "iso_box"),
		activeGrant("user-1", "us_box"),
	}}
	svc := NewEntitlementService(testLogger(t), testPackagesConfig(), repo)

	got := svc.AllowedDatabases(context.Background(), "user-1")
	want := []string{"norms.json", "norms_iec.json", "norms_iso.json", "norms_us.json"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("allowed = %v, want %v", got, want)
	}
}

func TestAllowedDatabasesAllBundle(t *testing.T) {
	repo := &fakeGrantRepo{grants: []*domain.PackageGrant{activeGrant("user-1", "mega_bundle")}}
	cfg := testPackagesConfig()
	svc := NewEntitlementService(testLogger(t), cfg, repo)

	got := svc.AllowedDatabases(context.Background(), "user-1")
	if len(got) != len(cfg.AllDatabases) {
		t.Errorf("all bundle allowed = %v, want every database", got)
	}
}

func TestAllowedDatabasesFailsClosedOnRepoError(t *testing.T) {
	repo := &fakeGrantRepo{err: errors.New("db down")}
	svc := NewEntitlementService(testLogger(t), testPackagesConfig(), repo)

	got := svc.AllowedDatabases(context.Background(), "user-1")
	if !reflect.DeepEqual(got, []string{"norms.json"}) {
		t.Errorf("repo error must fall back to free tier, got %v", got)
	}
}

func TestAllowedDatabasesSkipsUnknownPackage(t *testing.T) {
	repo := &fakeGrantRepo{grants: []*domain.PackageGrant{activeGrant("user-1", "retired_box")}}
	svc := NewEntitlementService(testLogger(t), testPackagesConfig(), repo)

	got := svc.AllowedDatabases(context.Background(), "user-1")
	if !reflect.DeepEqual(got, []string{"norms.json"}) {
		t.Errorf("unknown package should grant nothing, got %v", got)
	}
}

func TestActivatePackageTrialSetsExpiry(t *testing.T) {
	repo := &fakeGrantRepo{}
	svc := NewEntitlementService(testLogger(t), testPackagesConfig(), repo)

	grant, err := svc.ActivatePackage(context.Background(), "user-1", "iso_box", true)
	if err != nil {
		t.Fatalf("ActivatePackage: %v", err)
	}
	if grant.ExpiresAt == nil {
		t.Fatal("trial grant should carry an expiry")
	}
	if got := svc.AllowedDatabases(context.Background(), "user-1"); len(got) != 3 {
		t.Errorf("post-activation allowed = %v", got)
	}
}

func TestActivateUnknownPackage(t *testing.T) {
	svc := NewEntitlementService(testLogger(t), testPackagesConfig(), &fakeGrantRepo{})
	if _, err := svc.ActivatePackage(context.Background(), "user-1", "nope", false); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadPackagesConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "packages.yaml")
	content := `
free_databases:
  - norms.json
all_databases:
  - norms.json
  - norms_iso.json
packages:
  iso_box:
    name: ISO Standards Box
    databases:
      - norms_iso.json
    trial_days: 14
  mega_bundle:
    name: All Access Bundle
    databases: all
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadPackagesConfig(path)
	if err != nil {
		t.Fatalf("LoadPackagesConfig: %v", err)
	}
	if !cfg.Packages["mega_bundle"].Databases.All {
		t.Error("mega_bundle should parse as all-access")
	}
	if got := cfg.Packages["iso_box"].Databases.Files; !reflect.DeepEqual(got, []string{"norms_iso.json"}) {
		t.Errorf("iso_box databases = %v", got)
	}
}

func TestLoadPackagesConfigRejectsEmptyPackage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "packages.yaml")
	content := `
free_databases:
  - norms.json
packages:
  broken:
    name: Broken
    databases: []
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadPackagesConfig(path); err == nil {
		t.Error("expected error for package granting no databases")
	}
}
