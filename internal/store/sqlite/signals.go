package sqlite

import (
	"context"
	"errors"

	"cryptocandles/internal/store/model"

	"gorm.io/gorm"
)

type signalRepository struct {
	db *gorm.DB
}

func NewSignalRepo(db *gorm.DB) *signalRepository {
	return &signalRepository{db: db}
}

func (r *signalRepository) Insert(ctx context.Context, s *model.SignalModel) error {
	if s == nil {
		return errors.New("signal cannot be nil")
	}
	return r.db.WithContext(ctx).Omit("Provider").Create(s).Error
}

func (r *signalRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.SignalModel{}).Count(&n).Error
	return n, err
}

// List 按 seq 升序返回 [offset, offset+limit)，并预加载提供者。
func (r *signalRepository) List(ctx context.Context, offset, limit int) ([]model.SignalModel, error) {
	var out []model.SignalModel
	err := r.db.WithContext(ctx).
		Preload("Provider").
		Order("seq ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
