package repos

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/normscout/normscout-backend/internal/domain"
	"github.com/normscout/normscout-backend/internal/platform/logger"
)

type PackageGrantRepo interface {
	Create(ctx context.Context, tx *gorm.DB, grants []*domain.PackageGrant) ([]*domain.PackageGrant, error)
	GetActiveByUserID(ctx context.Context, tx *gorm.DB, userID string) ([]*domain.PackageGrant, error)
	Deactivate(ctx context.Context, tx *gorm.DB, userID, packageID string) error
}

type packageGrantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPackageGrantRepo(db *gorm.DB, baseLog *logger.Logger) PackageGrantRepo {
	return &packageGrantRepo{db: db, log: baseLog.With("repo", "PackageGrantRepo")}
}

func (r *packageGrantRepo) Create(ctx context.Context, tx *gorm.DB, grants []*domain.PackageGrant) ([]*domain.PackageGrant, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(grants) == 0 {
		return []*domain.PackageGrant{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&grants).Error; err != nil {
		return nil, err
	}
	return grants, nil
}

// GetActiveByUserID returns the user's grants that are active and not past
// their expiry.
func (r *packageGrantRepo) GetActiveByUserID(ctx context.Context, tx *gorm.DB, userID string) ([]*domain.PackageGrant, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*domain.PackageGrant
	if userID == "" {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, domain.PackageStatusActive).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *packageGrantRepo) Deactivate(ctx context.Context, tx *gorm.DB, userID, packageID string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&domain.PackageGrant{}).
		Where("user_id = ? AND package_id = ? AND status = ?", userID, packageID, domain.PackageStatusActive).
		Updates(map[string]any{"status": "canceled", "updated_at": time.Now()}).Error
}
