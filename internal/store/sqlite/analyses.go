package sqlite

import (
	"context"
	"errors"

	"cryptocandles/internal/store/model"

	"gorm.io/gorm"
)

type analysisRepository struct {
	db *gorm.DB
}

func NewAnalysisRepo(db *gorm.DB) *analysisRepository {
	return &analysisRepository{db: db}
}

func (r *analysisRepository) Insert(ctx context.Context, a *model.AnalysisModel) error {
	if a == nil {
		return errors.New("analysis cannot be nil")
	}
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *analysisRepository) ListRecent(ctx context.Context, limit int) ([]model.AnalysisModel, error) {
	var out []model.AnalysisModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
