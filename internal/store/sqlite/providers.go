package sqlite

import (
	"context"
	"errors"
	"fmt"

	"cryptocandles/internal/store"
	"cryptocandles/internal/store/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// providerRepository implements the ProviderRepository interface.
type providerRepository struct {
	db *gorm.DB
}

func NewProviderRepo(db *gorm.DB) *providerRepository {
	return &providerRepository{db: db}
}

// Save inserts or replaces a provider by id.
func (r *providerRepository) Save(ctx context.Context, p *model.ProviderModel) error {
	if p == nil {
		return errors.New("provider cannot be nil")
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(p).Error
}

func (r *providerRepository) FindByID(ctx context.Context, id string) (*model.ProviderModel, error) {
	var p model.ProviderModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("provider %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *providerRepository) List(ctx context.Context) ([]model.ProviderModel, error) {
	var out []model.ProviderModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *providerRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ProviderModel{}).Count(&n).Error
	return n, err
}

// AdjustFollowers 调整关注数，不会低于 0。
func (r *providerRepository) AdjustFollowers(ctx context.Context, id string, delta int) error {
	res := r.db.WithContext(ctx).Model(&model.ProviderModel{}).
		Where("id = ?", id).
		Update("followers", gorm.Expr("MAX(followers + ?, 0)", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("provider %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (r *providerRepository) IncrementSignals(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&model.ProviderModel{}).
		Where("id = ?", id).
		Update("total_signals", gorm.Expr("total_signals + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("provider %s: %w", id, store.ErrNotFound)
	}
	return nil
}
