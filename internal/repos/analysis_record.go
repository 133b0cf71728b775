package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/normscout/normscout-backend/internal/domain"
	apperrors "github.com/normscout/normscout-backend/internal/pkg/errors"
	"github.com/normscout/normscout-backend/internal/platform/logger"
)

type AnalysisRecordRepo interface {
	Create(ctx context.Context, tx *gorm.DB, records []*domain.AnalysisRecord) ([]*domain.AnalysisRecord, error)
	GetByRunID(ctx context.Context, tx *gorm.DB, runID string) (*domain.AnalysisRecord, error)
	ListByUserID(ctx context.Context, tx *gorm.DB, userID string, limit int) ([]*domain.AnalysisRecord, error)
	ListByWorkspaceID(ctx context.Context, tx *gorm.DB, workspaceID string) ([]*domain.AnalysisRecord, error)
}

type analysisRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnalysisRecordRepo(db *gorm.DB, baseLog *logger.Logger) AnalysisRecordRepo {
	return &analysisRecordRepo{db: db, log: baseLog.With("repo", "AnalysisRecordRepo")}
}

func (r *analysisRecordRepo) Create(ctx context.Context, tx *gorm.DB, records []*domain.AnalysisRecord) ([]*domain.AnalysisRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(records) == 0 {
		return []*domain.AnalysisRecord{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *analysisRecordRepo) GetByRunID(ctx context.Context, tx *gorm.DB, runID string) (*domain.AnalysisRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result domain.AnalysisRecord
	err := transaction.WithContext(ctx).
		Where("run_id = ?", runID).
		First(&result).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (r *analysisRecordRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID string, limit int) ([]*domain.AnalysisRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*domain.AnalysisRecord
	if userID == "" {
		return results, nil
	}
	q := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *analysisRecordRepo) ListByWorkspaceID(ctx context.Context, tx *gorm.DB, workspaceID string) ([]*domain.AnalysisRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*domain.AnalysisRecord
	if workspaceID == "" {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
